package bot

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog/log"

	"github.com/pellston/hexhammer/pkg/engine"
)

// ArenaConfig configures a single bot-vs-bot match played entirely in
// memory, without the server or its stores.
type ArenaConfig struct {
	Scenario   string
	RedPolicy  string
	BluePolicy string
	MaxTurns   int
	Seed       int64 // 0 = random
	ModelPath  string

	// Collect keeps every engine event in the result for later export.
	Collect bool
}

// ArenaResult describes the outcome of a completed arena match.
type ArenaResult struct {
	Winner        string // "red", "blue", or "" for a draw
	Turns         int
	Actions       int
	VictoryPoints map[string]int
	Survivors     map[string]int
	Events        []engine.Event
}

// maxArenaActions bounds the action loop. Policies always make progress,
// so hitting the bound means an engine or policy bug.
const maxArenaActions = 10000

// RunMatch plays a full match between two policies. The seed drives both
// the dice stream and the policies, so the same config replays the same
// match.
func RunMatch(ctx context.Context, cfg ArenaConfig) (*ArenaResult, error) {
	if cfg.Scenario == "" {
		cfg.Scenario = "crossfire"
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 5
	}
	if cfg.Seed == 0 {
		cfg.Seed = rand.Int63()
	}

	red, err := NewPolicy(cfg.RedPolicy, cfg.Seed, cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("red policy: %w", err)
	}
	blue, err := NewPolicy(cfg.BluePolicy, cfg.Seed+1, cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("blue policy: %w", err)
	}
	policies := map[engine.Player]Policy{
		engine.PlayerRed:  red,
		engine.PlayerBlue: blue,
	}

	gs, err := engine.NewScenarioState(cfg.Scenario, cfg.MaxTurns)
	if err != nil {
		return nil, err
	}
	rec := &engine.EventRecorder{}
	c := engine.NewController(gs, engine.NewRoller(cfg.Seed), rec)

	result := &ArenaResult{}
	for c.State().Status == engine.StatusActive {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if result.Actions >= maxArenaActions {
			return nil, fmt.Errorf("match exceeded %d actions without finishing", maxArenaActions)
		}

		side := ActiveSide(c.State())
		a := policies[side].ChooseAction(c, side)
		res := c.Apply(a)
		if !res.Success {
			// A policy proposed an illegal action; skip the unit so the
			// match cannot stall.
			log.Debug().Str("side", side.String()).Str("kind", string(a.Kind)).
				Int("unit", a.UnitID).Str("error", res.Error.String()).
				Msg("arena: action rejected, skipping unit")
			res = c.Apply(engine.Action{Kind: engine.ActionSkip, UnitID: a.UnitID})
			if !res.Success {
				return nil, fmt.Errorf("unit %d wedged in %s: %s", a.UnitID, c.State().Phase, res.Error)
			}
		}
		result.Actions++

		events := rec.Drain()
		if cfg.Collect {
			result.Events = append(result.Events, events...)
		}
	}

	final := c.State()
	result.Turns = final.Turn
	if final.Turn > final.MaxTurns {
		result.Turns = final.MaxTurns
	}
	if final.Winner != nil {
		result.Winner = final.Winner.String()
	}
	result.VictoryPoints = map[string]int{
		engine.PlayerRed.String():  final.VictoryPoints[engine.PlayerRed],
		engine.PlayerBlue.String(): final.VictoryPoints[engine.PlayerBlue],
	}
	result.Survivors = map[string]int{
		engine.PlayerRed.String():  final.LivingCount(engine.PlayerRed),
		engine.PlayerBlue.String(): final.LivingCount(engine.PlayerBlue),
	}
	return result, nil
}

// ActiveSide returns the player whose activation it is: the combat active
// player during the alternating fight sub-phase, the current player
// otherwise.
func ActiveSide(gs *engine.GameState) engine.Player {
	if gs.Phase == engine.PhaseFight && gs.CombatSubPhase == engine.SubPhaseAlternating {
		return gs.CombatActivePlayer
	}
	return gs.CurrentPlayer
}
