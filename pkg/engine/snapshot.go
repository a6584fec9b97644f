package engine

import (
	"encoding/json"
	"fmt"
)

// Snapshot is the JSON-serializable form of a full match: terrain, unit
// state, phase machinery, and the dice stream position. A snapshot plus the
// match seed is enough to resume play exactly where it stopped.
type Snapshot struct {
	Board          BoardConfig `json:"board"`
	State          *GameState  `json:"state"`
	FightsThisTurn int         `json:"fights_this_turn"`
	RollsConsumed  int         `json:"rolls_consumed"`
}

// NewSnapshot captures the current state. The roller position is supplied by
// the caller because the engine does not own the roller's lifecycle.
func NewSnapshot(gs *GameState, rollsConsumed int) Snapshot {
	return Snapshot{
		Board:          gs.Board.Config(),
		State:          gs.Clone(),
		FightsThisTurn: gs.fightsThisTurn,
		RollsConsumed:  rollsConsumed,
	}
}

// Marshal serializes the snapshot.
func (s Snapshot) Marshal() (json.RawMessage, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalSnapshot parses a serialized snapshot.
func UnmarshalSnapshot(data json.RawMessage) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if s.State == nil {
		return Snapshot{}, fmt.Errorf("snapshot has no state")
	}
	return s, nil
}

// Restore rebuilds a live GameState from the snapshot. Clone normalizes the
// set maps dropped by omitempty, so the restored state never carries nil maps.
func (s Snapshot) Restore() (*GameState, error) {
	board, err := NewBoard(s.Board)
	if err != nil {
		return nil, fmt.Errorf("restore board: %w", err)
	}
	gs := s.State.Clone()
	gs.Board = board
	gs.fightsThisTurn = s.FightsThisTurn
	for id, u := range gs.Units {
		if u == nil {
			return nil, fmt.Errorf("snapshot unit %d is nil", id)
		}
		if !board.InBounds(u.Pos) || board.IsWall(u.Pos) {
			return nil, fmt.Errorf("snapshot unit %d at invalid position %v", id, u.Pos)
		}
	}
	return gs, nil
}
