package engine

import (
	"fmt"
	"sort"

	"github.com/pellston/hexhammer/pkg/hexgrid"
)

// UnitSetup places one archetype on the board at match start.
type UnitSetup struct {
	ID        int           `json:"id"`
	Player    Player        `json:"player"`
	Archetype string        `json:"archetype"`
	Pos       hexgrid.Coord `json:"pos"`
}

// Scenario is a named board layout with a starting roster for each side.
type Scenario struct {
	Name  string      `json:"name"`
	Board BoardConfig `json:"board"`
	Units []UnitSetup `json:"units"`
}

var scenarios = map[string]Scenario{
	"crossfire": {
		Name: "crossfire",
		Board: BoardConfig{
			Width:  16,
			Height: 12,
			Walls: []hexgrid.Coord{
				{Col: 7, Row: 2}, {Col: 7, Row: 3},
				{Col: 8, Row: 8}, {Col: 8, Row: 9},
				{Col: 4, Row: 6}, {Col: 11, Row: 5},
			},
			Cover: []hexgrid.Coord{
				{Col: 3, Row: 3}, {Col: 3, Row: 8},
				{Col: 12, Row: 3}, {Col: 12, Row: 8},
				{Col: 6, Row: 5}, {Col: 9, Row: 6},
			},
			Objectives: []hexgrid.Coord{
				{Col: 2, Row: 6}, {Col: 7, Row: 6}, {Col: 13, Row: 6},
			},
		},
		Units: []UnitSetup{
			{ID: 1, Player: PlayerRed, Archetype: "warlord", Pos: hexgrid.Coord{Col: 0, Row: 5}},
			{ID: 2, Player: PlayerRed, Archetype: "trooper", Pos: hexgrid.Coord{Col: 1, Row: 3}},
			{ID: 3, Player: PlayerRed, Archetype: "trooper", Pos: hexgrid.Coord{Col: 1, Row: 8}},
			{ID: 4, Player: PlayerRed, Archetype: "marksman", Pos: hexgrid.Coord{Col: 0, Row: 2}},
			{ID: 5, Player: PlayerRed, Archetype: "assault", Pos: hexgrid.Coord{Col: 1, Row: 6}},
			{ID: 6, Player: PlayerBlue, Archetype: "warlord", Pos: hexgrid.Coord{Col: 15, Row: 6}},
			{ID: 7, Player: PlayerBlue, Archetype: "trooper", Pos: hexgrid.Coord{Col: 14, Row: 3}},
			{ID: 8, Player: PlayerBlue, Archetype: "trooper", Pos: hexgrid.Coord{Col: 14, Row: 8}},
			{ID: 9, Player: PlayerBlue, Archetype: "marksman", Pos: hexgrid.Coord{Col: 15, Row: 9}},
			{ID: 10, Player: PlayerBlue, Archetype: "assault", Pos: hexgrid.Coord{Col: 14, Row: 5}},
		},
	},
	"open-field": {
		Name: "open-field",
		Board: BoardConfig{
			Width:  14,
			Height: 10,
			Cover: []hexgrid.Coord{
				{Col: 6, Row: 4}, {Col: 7, Row: 5},
			},
			Objectives: []hexgrid.Coord{
				{Col: 6, Row: 5},
			},
		},
		Units: []UnitSetup{
			{ID: 1, Player: PlayerRed, Archetype: "trooper", Pos: hexgrid.Coord{Col: 0, Row: 3}},
			{ID: 2, Player: PlayerRed, Archetype: "assault", Pos: hexgrid.Coord{Col: 0, Row: 6}},
			{ID: 3, Player: PlayerRed, Archetype: "brute", Pos: hexgrid.Coord{Col: 1, Row: 4}},
			{ID: 4, Player: PlayerBlue, Archetype: "trooper", Pos: hexgrid.Coord{Col: 13, Row: 3}},
			{ID: 5, Player: PlayerBlue, Archetype: "assault", Pos: hexgrid.Coord{Col: 13, Row: 6}},
			{ID: 6, Player: PlayerBlue, Archetype: "brute", Pos: hexgrid.Coord{Col: 12, Row: 5}},
		},
	},
	"ruins": {
		Name: "ruins",
		Board: BoardConfig{
			Width:  12,
			Height: 12,
			Walls: []hexgrid.Coord{
				{Col: 5, Row: 5}, {Col: 6, Row: 5}, {Col: 5, Row: 6},
				{Col: 3, Row: 2}, {Col: 8, Row: 9},
			},
			Cover: []hexgrid.Coord{
				{Col: 2, Row: 8}, {Col: 9, Row: 2}, {Col: 6, Row: 7},
			},
			Objectives: []hexgrid.Coord{
				{Col: 1, Row: 1}, {Col: 10, Row: 10}, {Col: 6, Row: 2},
			},
		},
		Units: []UnitSetup{
			{ID: 1, Player: PlayerRed, Archetype: "warlord", Pos: hexgrid.Coord{Col: 1, Row: 1}},
			{ID: 2, Player: PlayerRed, Archetype: "swarmling", Pos: hexgrid.Coord{Col: 0, Row: 0}},
			{ID: 3, Player: PlayerRed, Archetype: "swarmling", Pos: hexgrid.Coord{Col: 0, Row: 2}},
			{ID: 4, Player: PlayerBlue, Archetype: "warlord", Pos: hexgrid.Coord{Col: 10, Row: 10}},
			{ID: 5, Player: PlayerBlue, Archetype: "swarmling", Pos: hexgrid.Coord{Col: 11, Row: 11}},
			{ID: 6, Player: PlayerBlue, Archetype: "swarmling", Pos: hexgrid.Coord{Col: 11, Row: 9}},
		},
	},
}

// ScenarioByName returns the named scenario.
func ScenarioByName(name string) (Scenario, error) {
	s, ok := scenarios[name]
	if !ok {
		return Scenario{}, fmt.Errorf("unknown scenario %q", name)
	}
	return s, nil
}

// ScenarioNames returns the available scenario names in sorted order.
func ScenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for n := range scenarios {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewScenarioState builds the initial GameState for a named scenario.
func NewScenarioState(name string, maxTurns int) (*GameState, error) {
	s, err := ScenarioByName(name)
	if err != nil {
		return nil, err
	}
	board, err := NewBoard(s.Board)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", name, err)
	}
	units := make([]*Unit, 0, len(s.Units))
	for _, setup := range s.Units {
		profile, err := ProfileByName(setup.Archetype)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", name, err)
		}
		u, err := NewUnit(setup.ID, setup.Player, profile, setup.Pos)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", name, err)
		}
		units = append(units, u)
	}
	return NewGameState(board, units, maxTurns)
}
