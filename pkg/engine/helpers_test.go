package engine

import (
	"testing"

	"github.com/pellston/hexhammer/pkg/hexgrid"
)

// Test profiles with exact stats, so threshold arithmetic in assertions is
// easy to follow.

func rifleProfile() Profile {
	return Profile{
		Name: "rifle", Move: 3, Toughness: 4, ArmorSave: 3, MaxHP: 1,
		Ranged: []Weapon{{Name: "rifle", Shots: 1, Skill: 3, Strength: 4, AP: 1, Damage: 1, Range: 12}},
	}
}

func bladeProfile() Profile {
	return Profile{
		Name: "blade", Move: 4, Toughness: 4, ArmorSave: 4, MaxHP: 2,
		Melee: []Weapon{{Name: "blade", Shots: 2, Skill: 3, Strength: 4, AP: 0, Damage: 1, Range: 1}},
	}
}

func mustBoard(t *testing.T, cfg BoardConfig) *Board {
	t.Helper()
	b, err := NewBoard(cfg)
	if err != nil {
		t.Fatalf("NewBoard: %v", err)
	}
	return b
}

func mustUnit(t *testing.T, id int, p Player, profile Profile, col, row int) *Unit {
	t.Helper()
	u, err := NewUnit(id, p, profile, hexgrid.Coord{Col: col, Row: row})
	if err != nil {
		t.Fatalf("NewUnit %d: %v", id, err)
	}
	return u
}

func mustGame(t *testing.T, board *Board, maxTurns int, units ...*Unit) *GameState {
	t.Helper()
	gs, err := NewGameState(board, units, maxTurns)
	if err != nil {
		t.Fatalf("NewGameState: %v", err)
	}
	return gs
}

func at(col, row int) hexgrid.Coord { return hexgrid.Coord{Col: col, Row: row} }

// skipAll skips every eligible unit of the active player in the current
// phase, driving the controller to the next phase that needs input.
func skipAll(t *testing.T, c *Controller) {
	t.Helper()
	for i := 0; i < 100; i++ {
		ids := c.EligibleUnits(c.State().Phase)
		if len(ids) == 0 {
			return
		}
		res := c.Apply(Action{Kind: ActionSkip, UnitID: ids[0]})
		if !res.Success {
			t.Fatalf("skip unit %d rejected: %s", ids[0], res.Error)
		}
		if res.PhaseComplete {
			return
		}
	}
	t.Fatal("skipAll did not converge")
}
