package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pellston/hexhammer/internal/model"
)

// MatchRepo handles match and match_player database operations.
type MatchRepo struct {
	db *sql.DB
}

// NewMatchRepo creates a MatchRepo.
func NewMatchRepo(db *sql.DB) *MatchRepo {
	return &MatchRepo{db: db}
}

// Create inserts a new match in waiting status.
func (r *MatchRepo) Create(ctx context.Context, name, creatorID, boardName string, seed int64, maxTurns int) (*model.Match, error) {
	var m model.Match
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO matches (name, creator_id, board_name, seed, max_turns)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, name, creator_id, status, board_name, seed, max_turns, created_at`,
		name, creatorID, boardName, seed, maxTurns,
	).Scan(&m.ID, &m.Name, &m.CreatorID, &m.Status, &m.BoardName, &m.Seed, &m.MaxTurns, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}
	return &m, nil
}

// FindByID returns a match by ID with its players.
func (r *MatchRepo) FindByID(ctx context.Context, id string) (*model.Match, error) {
	var m model.Match
	var winner sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, creator_id, status, winner, board_name, seed, max_turns,
		        created_at, started_at, finished_at
		 FROM matches WHERE id = $1`, id,
	).Scan(&m.ID, &m.Name, &m.CreatorID, &m.Status, &winner, &m.BoardName, &m.Seed, &m.MaxTurns,
		&m.CreatedAt, &m.StartedAt, &m.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find match: %w", err)
	}
	m.Winner = winner.String

	players, err := r.ListPlayers(ctx, id)
	if err != nil {
		return nil, err
	}
	m.Players = players
	return &m, nil
}

// ListOpen returns matches in "waiting" status.
func (r *MatchRepo) ListOpen(ctx context.Context) ([]model.Match, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, creator_id, status, board_name, seed, max_turns, created_at
		 FROM matches WHERE status = 'waiting' ORDER BY created_at DESC LIMIT 50`)
	if err != nil {
		return nil, fmt.Errorf("list open matches: %w", err)
	}
	defer rows.Close()

	var matches []model.Match
	for rows.Next() {
		var m model.Match
		if err := rows.Scan(&m.ID, &m.Name, &m.CreatorID, &m.Status, &m.BoardName, &m.Seed, &m.MaxTurns, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// ListByUser returns all matches a user is part of (as player or creator).
func (r *MatchRepo) ListByUser(ctx context.Context, userID string) ([]model.Match, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT m.id, m.name, m.creator_id, m.status, m.winner, m.board_name, m.seed, m.max_turns,
		        m.created_at, m.started_at, m.finished_at
		 FROM matches m LEFT JOIN match_players mp ON m.id = mp.match_id AND mp.user_id = $1
		 WHERE mp.user_id = $1 OR m.creator_id = $1
		 ORDER BY m.created_at DESC LIMIT 50`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user matches: %w", err)
	}
	defer rows.Close()
	return scanMatches(rows)
}

// ListActive returns matches currently in play, with their players.
func (r *MatchRepo) ListActive(ctx context.Context) ([]model.Match, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.name, m.creator_id, m.status, m.winner, m.board_name, m.seed, m.max_turns,
		        m.created_at, m.started_at, m.finished_at
		 FROM matches m
		 WHERE m.status = 'active'
		 ORDER BY m.started_at`)
	if err != nil {
		return nil, fmt.Errorf("list active matches: %w", err)
	}
	defer rows.Close()
	matches, err := scanMatches(rows)
	if err != nil {
		return nil, err
	}
	for i := range matches {
		players, err := r.ListPlayers(ctx, matches[i].ID)
		if err != nil {
			return nil, err
		}
		matches[i].Players = players
	}
	return matches, nil
}

// ListFinished returns finished matches, most recent first.
func (r *MatchRepo) ListFinished(ctx context.Context) ([]model.Match, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.name, m.creator_id, m.status, m.winner, m.board_name, m.seed, m.max_turns,
		        m.created_at, m.started_at, m.finished_at
		 FROM matches m
		 WHERE m.status = 'finished'
		 ORDER BY m.finished_at DESC LIMIT 100`)
	if err != nil {
		return nil, fmt.Errorf("list finished matches: %w", err)
	}
	defer rows.Close()
	return scanMatches(rows)
}

func scanMatches(rows *sql.Rows) ([]model.Match, error) {
	var matches []model.Match
	for rows.Next() {
		var m model.Match
		var winner sql.NullString
		if err := rows.Scan(&m.ID, &m.Name, &m.CreatorID, &m.Status, &winner, &m.BoardName, &m.Seed, &m.MaxTurns,
			&m.CreatedAt, &m.StartedAt, &m.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		m.Winner = winner.String
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// JoinMatch seats a player on the given side.
func (r *MatchRepo) JoinMatch(ctx context.Context, matchID, userID, side string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO match_players (match_id, user_id, side) VALUES ($1, $2, $3)
		 ON CONFLICT DO NOTHING`,
		matchID, userID, side,
	)
	if err != nil {
		return fmt.Errorf("join match: %w", err)
	}
	return nil
}

// JoinMatchAsBot seats a bot policy on the given side.
func (r *MatchRepo) JoinMatchAsBot(ctx context.Context, matchID, side, policy string) error {
	if policy == "" {
		policy = "greedy"
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO match_players (match_id, side, is_bot, policy) VALUES ($1, $2, true, $3)
		 ON CONFLICT DO NOTHING`,
		matchID, side, policy,
	)
	if err != nil {
		return fmt.Errorf("join match as bot: %w", err)
	}
	return nil
}

// ListPlayers returns the seats of a match.
func (r *MatchRepo) ListPlayers(ctx context.Context, matchID string) ([]model.MatchPlayer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT match_id, user_id, side, is_bot, policy, joined_at
		 FROM match_players WHERE match_id = $1 ORDER BY joined_at`,
		matchID,
	)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var players []model.MatchPlayer
	for rows.Next() {
		var p model.MatchPlayer
		var userID, policy sql.NullString
		if err := rows.Scan(&p.MatchID, &userID, &p.Side, &p.IsBot, &policy, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		p.UserID = userID.String
		p.Policy = policy.String
		players = append(players, p)
	}
	return players, rows.Err()
}

// SetStarted flips a match to active.
func (r *MatchRepo) SetStarted(ctx context.Context, matchID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE matches SET status = 'active', started_at = now() WHERE id = $1`, matchID,
	)
	if err != nil {
		return fmt.Errorf("set started: %w", err)
	}
	return nil
}

// SetFinished marks a match as finished. Winner is "red", "blue", or "" for
// a draw.
func (r *MatchRepo) SetFinished(ctx context.Context, matchID, winner string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE matches SET status = 'finished', winner = $1, finished_at = now() WHERE id = $2`,
		winner, matchID,
	)
	if err != nil {
		return fmt.Errorf("set finished: %w", err)
	}
	return nil
}

// Delete removes a match and all associated data (cascades to players and events).
func (r *MatchRepo) Delete(ctx context.Context, matchID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, matchID)
	if err != nil {
		return fmt.Errorf("delete match: %w", err)
	}
	return nil
}
