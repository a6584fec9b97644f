package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pellston/hexhammer/internal/model"
)

// UserRepository defines user data operations.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByProviderID(ctx context.Context, provider, providerID string) (*model.User, error)
	Upsert(ctx context.Context, provider, providerID, displayName, avatarURL string) (*model.User, error)
	UpdateDisplayName(ctx context.Context, id, displayName string) error
}

// MatchRepository defines match and seat data operations.
type MatchRepository interface {
	Create(ctx context.Context, name, creatorID, boardName string, seed int64, maxTurns int) (*model.Match, error)
	FindByID(ctx context.Context, id string) (*model.Match, error)
	ListOpen(ctx context.Context) ([]model.Match, error)
	ListByUser(ctx context.Context, userID string) ([]model.Match, error)
	ListActive(ctx context.Context) ([]model.Match, error)
	ListFinished(ctx context.Context) ([]model.Match, error)
	JoinMatch(ctx context.Context, matchID, userID, side string) error
	JoinMatchAsBot(ctx context.Context, matchID, side, policy string) error
	ListPlayers(ctx context.Context, matchID string) ([]model.MatchPlayer, error)
	SetStarted(ctx context.Context, matchID string) error
	SetFinished(ctx context.Context, matchID, winner string) error
	Delete(ctx context.Context, matchID string) error
}

// EventRepository persists the replay log: every engine event of a match in
// sequence order.
type EventRepository interface {
	Append(ctx context.Context, matchID string, seq int, kind string, turn int, phase, player string, unitID, targetID int, payload json.RawMessage) (*model.MatchEvent, error)
	ListByMatch(ctx context.Context, matchID string) ([]model.MatchEvent, error)
	LastSequence(ctx context.Context, matchID string) (int, error)
}

// MatchCache defines live match state operations (Redis): the serialized
// engine snapshot the service layer rehydrates from, the per-match action
// counter, seat readiness, and the turn deadline timer.
type MatchCache interface {
	SetSnapshot(ctx context.Context, matchID string, snapshot json.RawMessage) error
	GetSnapshot(ctx context.Context, matchID string) (json.RawMessage, error)
	NextActionSeq(ctx context.Context, matchID string) (int64, error)
	MarkReady(ctx context.Context, matchID, side string) error
	UnmarkReady(ctx context.Context, matchID, side string) error
	ReadyCount(ctx context.Context, matchID string) (int64, error)
	ReadySides(ctx context.Context, matchID string) ([]string, error)
	SetTurnTimer(ctx context.Context, matchID string, deadline time.Time) error
	ClearTurnTimer(ctx context.Context, matchID string) error
	DeleteMatchData(ctx context.Context, matchID string) error
}
