package model

import (
	"encoding/json"
	"time"
)

// User represents a registered user.
type User struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	ProviderID  string    `json:"provider_id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Match represents one tactical skirmish.
type Match struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	CreatorID  string        `json:"creator_id"`
	Status     string        `json:"status"` // waiting, active, finished
	Winner     string        `json:"winner,omitempty"`
	Seed       int64         `json:"seed"`
	MaxTurns   int           `json:"max_turns"`
	BoardName  string        `json:"board_name"`
	CreatedAt  time.Time     `json:"created_at"`
	StartedAt  *time.Time    `json:"started_at,omitempty"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Players    []MatchPlayer `json:"players,omitempty"`
}

// MatchPlayer represents a seat in a match: a human user or a bot policy.
type MatchPlayer struct {
	MatchID  string    `json:"match_id"`
	UserID   string    `json:"user_id,omitempty"`
	Side     string    `json:"side"` // red or blue
	IsBot    bool      `json:"is_bot"`
	Policy   string    `json:"policy,omitempty"` // random, greedy, onnx
	JoinedAt time.Time `json:"joined_at"`
}

// MatchEvent is one persisted engine event, the unit of the replay log.
// Sequence numbers are contiguous per match starting at 1.
type MatchEvent struct {
	ID        string          `json:"id"`
	MatchID   string          `json:"match_id"`
	Sequence  int             `json:"sequence"`
	Kind      string          `json:"kind"`
	Turn      int             `json:"turn"`
	Phase     string          `json:"phase"`
	Player    string          `json:"player"`
	UnitID    int             `json:"unit_id,omitempty"`
	TargetID  int             `json:"target_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
