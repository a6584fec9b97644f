package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pellston/hexhammer/internal/model"
)

// EventRepo handles match event log database operations.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo creates an EventRepo.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

// Append inserts an event at the given sequence number. Sequence numbers are
// contiguous per match; the (match_id, sequence) unique constraint rejects
// double-writes.
func (r *EventRepo) Append(ctx context.Context, matchID string, seq int, kind string, turn int, phase, player string, unitID, targetID int, payload json.RawMessage) (*model.MatchEvent, error) {
	if payload == nil {
		payload = json.RawMessage(`{}`)
	}
	var e model.MatchEvent
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO match_events (match_id, sequence, kind, turn, phase, player, unit_id, target_id, payload)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, match_id, sequence, kind, turn, phase, player, unit_id, target_id, payload, created_at`,
		matchID, seq, kind, turn, phase, player, unitID, targetID, []byte(payload),
	).Scan(&e.ID, &e.MatchID, &e.Sequence, &e.Kind, &e.Turn, &e.Phase, &e.Player, &e.UnitID, &e.TargetID, &e.Payload, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("append event: %w", err)
	}
	return &e, nil
}

// ListByMatch returns the full event log of a match in sequence order.
func (r *EventRepo) ListByMatch(ctx context.Context, matchID string) ([]model.MatchEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, match_id, sequence, kind, turn, phase, player, unit_id, target_id, payload, created_at
		 FROM match_events WHERE match_id = $1 ORDER BY sequence`,
		matchID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.MatchEvent
	for rows.Next() {
		var e model.MatchEvent
		if err := rows.Scan(&e.ID, &e.MatchID, &e.Sequence, &e.Kind, &e.Turn, &e.Phase, &e.Player, &e.UnitID, &e.TargetID, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// LastSequence returns the highest sequence number written for a match, or 0
// when the log is empty.
func (r *EventRepo) LastSequence(ctx context.Context, matchID string) (int, error) {
	var seq int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) FROM match_events WHERE match_id = $1`,
		matchID,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last sequence: %w", err)
	}
	return seq, nil
}
