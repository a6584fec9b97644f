package engine

import (
	"fmt"
	"sort"

	"github.com/pellston/hexhammer/pkg/hexgrid"
)

// Phase is one of the five turn phases.
type Phase string

const (
	PhaseCommand Phase = "command"
	PhaseMove    Phase = "move"
	PhaseShoot   Phase = "shoot"
	PhaseCharge  Phase = "charge"
	PhaseFight   Phase = "fight"
)

// CombatSubPhase orders fight-phase activations: units that charged this turn
// strike first, then the remaining engaged units alternate between players.
type CombatSubPhase string

const (
	SubPhaseNone         CombatSubPhase = ""
	SubPhaseChargedUnits CombatSubPhase = "charged_units"
	SubPhaseAlternating  CombatSubPhase = "alternating_combat"
)

// MatchStatus is the overall match state.
type MatchStatus string

const (
	StatusActive   MatchStatus = "active"
	StatusFinished MatchStatus = "finished"
)

// GameState is the single mutable aggregate for one match. It is mutated
// exclusively through Controller actions and owns no global state, so
// independent matches can run concurrently, each with its own instance.
type GameState struct {
	Board *Board        `json:"-"`
	Units map[int]*Unit `json:"units"`

	Turn          int    `json:"turn"`
	MaxTurns      int    `json:"max_turns"`
	CurrentPlayer Player `json:"current_player"`
	Phase         Phase  `json:"phase"`

	// Fight-phase sub-machine. Valid only while Phase == PhaseFight.
	CombatSubPhase     CombatSubPhase `json:"combat_sub_phase,omitempty"`
	CombatActivePlayer Player         `json:"combat_active_player"`

	// Per-phase "already acted" sets. Each set is cleared exactly once per
	// turn, at the entry of its own phase, never mid-phase.
	Moved    map[int]bool `json:"moved,omitempty"`
	Shot     map[int]bool `json:"shot,omitempty"`
	Fled     map[int]bool `json:"fled,omitempty"`
	Charged  map[int]bool `json:"charged,omitempty"`
	Attacked map[int]bool `json:"attacked,omitempty"`

	// ChargeRolls caches each unit's 2d6 charge roll for the turn. Cleared
	// on turn change, never mid-turn, so re-selecting a unit never re-rolls.
	ChargeRolls map[int]int `json:"charge_rolls,omitempty"`

	VictoryPoints map[Player]int `json:"victory_points"`

	Status MatchStatus `json:"status"`
	Winner *Player     `json:"winner,omitempty"` // nil while active or on a draw

	// fightsThisTurn counts completed fight phases; the turn increments
	// after the second player's fight completes.
	fightsThisTurn int
}

// NewGameState builds the initial state from a board and unit roster.
// Unit IDs must be unique and positions must be distinct, in bounds, and
// off walls.
func NewGameState(board *Board, units []*Unit, maxTurns int) (*GameState, error) {
	if board == nil {
		return nil, fmt.Errorf("board is required")
	}
	if maxTurns <= 0 {
		return nil, fmt.Errorf("max turns must be positive, got %d", maxTurns)
	}
	gs := &GameState{
		Board:         board,
		Units:         make(map[int]*Unit, len(units)),
		Turn:          1,
		MaxTurns:      maxTurns,
		CurrentPlayer: PlayerRed,
		Phase:         PhaseCommand,
		Moved:         make(map[int]bool),
		Shot:          make(map[int]bool),
		Fled:          make(map[int]bool),
		Charged:       make(map[int]bool),
		Attacked:      make(map[int]bool),
		ChargeRolls:   make(map[int]int),
		VictoryPoints: map[Player]int{PlayerRed: 0, PlayerBlue: 0},
		Status:        StatusActive,
	}

	occupied := make(map[hexgrid.Coord]int, len(units))
	for _, u := range units {
		if u == nil {
			return nil, fmt.Errorf("nil unit in roster")
		}
		if _, dup := gs.Units[u.ID]; dup {
			return nil, fmt.Errorf("duplicate unit id %d", u.ID)
		}
		if !board.InBounds(u.Pos) {
			return nil, fmt.Errorf("unit %d at %v is out of bounds", u.ID, u.Pos)
		}
		if board.IsWall(u.Pos) {
			return nil, fmt.Errorf("unit %d at %v is on a wall", u.ID, u.Pos)
		}
		if other, taken := occupied[u.Pos]; taken {
			return nil, fmt.Errorf("units %d and %d share hex %v", other, u.ID, u.Pos)
		}
		occupied[u.Pos] = u.ID
		gs.Units[u.ID] = u
	}

	if gs.LivingCount(PlayerRed) == 0 || gs.LivingCount(PlayerBlue) == 0 {
		return nil, fmt.Errorf("both players need at least one unit")
	}
	return gs, nil
}

// Unit returns the living unit with the given ID, or nil.
func (gs *GameState) Unit(id int) *Unit {
	return gs.Units[id]
}

// UnitAt returns the unit occupying the hex, or nil.
func (gs *GameState) UnitAt(c hexgrid.Coord) *Unit {
	for _, u := range gs.Units {
		if u.Pos == c {
			return u
		}
	}
	return nil
}

// UnitIDs returns all living unit IDs in ascending order. Sorted iteration
// keeps replays deterministic despite map storage.
func (gs *GameState) UnitIDs() []int {
	ids := make([]int, 0, len(gs.Units))
	for id := range gs.Units {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// UnitsOf returns the player's living units sorted by ID.
func (gs *GameState) UnitsOf(p Player) []*Unit {
	var units []*Unit
	for _, id := range gs.UnitIDs() {
		if u := gs.Units[id]; u.Player == p {
			units = append(units, u)
		}
	}
	return units
}

// LivingCount returns how many of the player's units remain.
func (gs *GameState) LivingCount(p Player) int {
	count := 0
	for _, u := range gs.Units {
		if u.Player == p {
			count++
		}
	}
	return count
}

// RemoveUnit deletes a dead unit from the roster. Dead units never
// participate in later phases or turns.
func (gs *GameState) RemoveUnit(id int) {
	delete(gs.Units, id)
}

// AdjacentEnemy reports whether any enemy unit stands within 1 hex of u.
func (gs *GameState) AdjacentEnemy(u *Unit) bool {
	return gs.EnemyWithin(u, 1)
}

// EnemyWithin reports whether any enemy unit stands within dist hexes of u.
func (gs *GameState) EnemyWithin(u *Unit, dist int) bool {
	for _, other := range gs.Units {
		if other.Player != u.Player && hexgrid.Distance(u.Pos, other.Pos) <= dist {
			return true
		}
	}
	return false
}

// AdjacentFriendly reports whether any unit of player p stands within 1 hex
// of the coordinate, excluding the unit with exceptID. Used by the
// shoot-through-ally restriction.
func (gs *GameState) AdjacentFriendly(c hexgrid.Coord, p Player, exceptID int) bool {
	for _, other := range gs.Units {
		if other.ID == exceptID || other.Player != p {
			continue
		}
		if hexgrid.Distance(c, other.Pos) <= 1 {
			return true
		}
	}
	return false
}

// Passable reports whether a hex can be moved through: in bounds, not a
// wall, and unoccupied.
func (gs *GameState) Passable(c hexgrid.Coord) bool {
	return gs.Board.InBounds(c) && !gs.Board.IsWall(c) && gs.UnitAt(c) == nil
}

// Clone returns a deep copy of the state. Mutations to the clone do not
// affect the original, which search-based policies rely on for speculative
// rollouts.
func (gs *GameState) Clone() *GameState {
	c := *gs
	c.Units = make(map[int]*Unit, len(gs.Units))
	for id, u := range gs.Units {
		c.Units[id] = u.clone()
	}
	c.Moved = cloneSet(gs.Moved)
	c.Shot = cloneSet(gs.Shot)
	c.Fled = cloneSet(gs.Fled)
	c.Charged = cloneSet(gs.Charged)
	c.Attacked = cloneSet(gs.Attacked)
	c.ChargeRolls = make(map[int]int, len(gs.ChargeRolls))
	for id, roll := range gs.ChargeRolls {
		c.ChargeRolls[id] = roll
	}
	c.VictoryPoints = map[Player]int{
		PlayerRed:  gs.VictoryPoints[PlayerRed],
		PlayerBlue: gs.VictoryPoints[PlayerBlue],
	}
	if gs.Winner != nil {
		w := *gs.Winner
		c.Winner = &w
	}
	return &c
}

func cloneSet(s map[int]bool) map[int]bool {
	c := make(map[int]bool, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}
