package bot

import "github.com/pellston/hexhammer/pkg/engine"

// RandomPolicy picks uniformly among legal options. It exists as a baseline
// opponent and as the noise source for self-play data generation.
type RandomPolicy struct {
	rng policyRng
}

// NewRandomPolicy creates a random policy with a deterministic source.
func NewRandomPolicy(seed int64) *RandomPolicy {
	return &RandomPolicy{rng: newPolicyRng(seed)}
}

func (p *RandomPolicy) Name() string { return "random" }

// ChooseAction picks a random eligible unit and a random legal option for
// it. Units with nothing useful to do are skipped.
func (p *RandomPolicy) ChooseAction(c *engine.Controller, side engine.Player) engine.Action {
	gs := c.State()
	ids := eligibleFor(c, side, gs.Phase)
	if len(ids) == 0 {
		return engine.Action{Kind: engine.ActionSkip}
	}
	id := ids[p.rng.Intn(len(ids))]

	switch gs.Phase {
	case engine.PhaseMove:
		// Holding position is a legal choice too.
		if p.rng.Float64() < 0.2 {
			return skipUnit(id)
		}
		dests := c.MoveDestinations(id)
		if len(dests) == 0 {
			return skipUnit(id)
		}
		return engine.Action{Kind: engine.ActionMove, UnitID: id, Dest: dests[p.rng.Intn(len(dests))]}

	case engine.PhaseShoot:
		u := gs.Unit(id)
		targets := shootTargets(c, u)
		if len(targets) == 0 {
			return skipUnit(id)
		}
		t := targets[p.rng.Intn(len(targets))]
		return engine.Action{Kind: engine.ActionShoot, UnitID: id, TargetID: t.UnitID}

	case engine.PhaseCharge:
		dests := c.ChargeDestinations(id)
		if len(dests) == 0 {
			// The cached roll cannot reach; declaring resolves as a failed
			// charge and ends the activation.
			return engine.Action{Kind: engine.ActionCharge, UnitID: id}
		}
		return engine.Action{Kind: engine.ActionCharge, UnitID: id, Dest: dests[p.rng.Intn(len(dests))]}

	case engine.PhaseFight:
		// Zero target selects the nearest enemy in reach.
		return engine.Action{Kind: engine.ActionFight, UnitID: id}
	}
	return skipUnit(id)
}
