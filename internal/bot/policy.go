package bot

import (
	"fmt"

	"github.com/pellston/hexhammer/pkg/engine"
)

// Policy chooses actions for one side of a match. ChooseAction is called
// only while the side has at least one eligible unit for the current phase;
// the service applies the returned action and skips the unit on rejection,
// so a policy can never stall a match.
type Policy interface {
	Name() string
	ChooseAction(c *engine.Controller, side engine.Player) engine.Action
}

// NewPolicy returns the named policy. The model path is only consulted by
// the onnx policy; other policies ignore it.
func NewPolicy(name string, seed int64, modelPath string) (Policy, error) {
	switch name {
	case "", "greedy":
		return NewGreedyPolicy(seed), nil
	case "random":
		return NewRandomPolicy(seed), nil
	case "onnx":
		return newOnnxOrFallback(modelPath, seed), nil
	default:
		return nil, fmt.Errorf("unknown bot policy %q", name)
	}
}

// PolicyNames lists the accepted policy names.
func PolicyNames() []string {
	return []string{"random", "greedy", "onnx"}
}

// eligibleFor returns the side's eligible unit IDs for the current phase.
// EligibleUnits already resolves the alternating fight sub-phase, so the
// result is empty whenever it is not this side's activation.
func eligibleFor(c *engine.Controller, side engine.Player, phase engine.Phase) []int {
	gs := c.State()
	active := gs.CurrentPlayer
	if phase == engine.PhaseFight && gs.CombatSubPhase == engine.SubPhaseAlternating {
		active = gs.CombatActivePlayer
	}
	if active != side {
		return nil
	}
	return c.EligibleUnits(phase)
}

// shootTargets returns the enemies the unit can legally shoot: in range of
// some ranged weapon, visible, and not locked in melee with a friendly.
func shootTargets(c *engine.Controller, u *engine.Unit) []engine.VisibleEnemy {
	gs := c.State()
	var out []engine.VisibleEnemy
	for _, ve := range c.VisibleEnemies(u.ID, u.MaxRangedRange()) {
		if !ve.HasLOS {
			continue
		}
		target := gs.Unit(ve.UnitID)
		if target == nil {
			continue
		}
		if gs.AdjacentFriendly(target.Pos, u.Player, u.ID) {
			continue
		}
		out = append(out, ve)
	}
	return out
}

func skipUnit(id int) engine.Action {
	return engine.Action{Kind: engine.ActionSkip, UnitID: id}
}
