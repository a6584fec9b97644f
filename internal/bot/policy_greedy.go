package bot

import (
	"github.com/pellston/hexhammer/pkg/engine"
	"github.com/pellston/hexhammer/pkg/hexgrid"
)

// GreedyPolicy maximizes immediate expected damage and board position with
// no lookahead. It moves toward objectives and firing positions, shoots the
// target it hurts most, charges when the cached roll reaches, and fights
// the weakest enemy in reach. Strong enough to punish passive play, cheap
// enough to run inline on every bot activation.
type GreedyPolicy struct {
	rng policyRng
}

// NewGreedyPolicy creates a greedy policy with a deterministic source for
// tie-breaking.
func NewGreedyPolicy(seed int64) *GreedyPolicy {
	return &GreedyPolicy{rng: newPolicyRng(seed)}
}

func (p *GreedyPolicy) Name() string { return "greedy" }

func (p *GreedyPolicy) ChooseAction(c *engine.Controller, side engine.Player) engine.Action {
	gs := c.State()
	ids := eligibleFor(c, side, gs.Phase)
	if len(ids) == 0 {
		return engine.Action{Kind: engine.ActionSkip}
	}

	switch gs.Phase {
	case engine.PhaseMove:
		return p.chooseMove(c, ids)
	case engine.PhaseShoot:
		return p.chooseShoot(c, ids)
	case engine.PhaseCharge:
		return p.chooseCharge(c, ids)
	case engine.PhaseFight:
		return p.chooseFight(c, ids)
	}
	return skipUnit(ids[0])
}

// chooseMove scores every destination of every eligible unit and applies
// the single best move. Melee units close distance; shooters hold range and
// prefer cover; everyone values standing near an uncontested objective.
func (p *GreedyPolicy) chooseMove(c *engine.Controller, ids []int) engine.Action {
	gs := c.State()
	bestScore := -1e18
	var best engine.Action

	for _, id := range ids {
		u := gs.Unit(id)
		stay := p.positionScore(gs, u, u.Pos)
		cand := skipUnit(id)
		candScore := stay
		for _, d := range c.MoveDestinations(id) {
			if s := p.positionScore(gs, u, d); s > candScore {
				candScore = s
				cand = engine.Action{Kind: engine.ActionMove, UnitID: id, Dest: d}
			}
		}
		// Prefer resolving the unit with the most to gain first.
		gain := candScore - stay
		if gain > bestScore {
			bestScore = gain
			best = cand
		}
	}
	return best
}

// positionScore rates a hex for the unit: proximity pressure toward enemies
// for melee units, standoff at maximum weapon range for shooters, objective
// proximity for everyone, a nudge for cover.
func (p *GreedyPolicy) positionScore(gs *engine.GameState, u *engine.Unit, pos hexgrid.Coord) float64 {
	score := 0.0
	enemyDist := nearestEnemyDistance(gs, pos, u.Player)

	if u.HasRanged() {
		reach := u.MaxRangedRange()
		if enemyDist <= reach {
			score += 6
			// Standing off at range keeps the unit outside charge threat.
			score += float64(enemyDist) * 0.3
		} else {
			score -= float64(enemyDist-reach) * 0.5
		}
	} else {
		score -= float64(enemyDist)
	}

	objDist := nearestObjectiveDistance(gs, pos)
	if objDist <= 1 {
		score += 5
	} else {
		score -= float64(objDist) * 0.4
	}

	if gs.Board.IsCover(pos) {
		score += 1.5
	}
	return score
}

// chooseShoot fires the unit/target pair with the highest expected damage.
func (p *GreedyPolicy) chooseShoot(c *engine.Controller, ids []int) engine.Action {
	gs := c.State()
	bestScore := -1.0
	var best engine.Action

	for _, id := range ids {
		u := gs.Unit(id)
		for _, ve := range shootTargets(c, u) {
			target := gs.Unit(ve.UnitID)
			dist := hexgrid.Distance(u.Pos, target.Pos)
			ed := bestRangedDamage(u, target, dist, ve.InCover)
			if ed <= 0 {
				continue
			}
			score := ed + killBonus(ed, target.HP)
			if score > bestScore {
				bestScore = score
				best = engine.Action{Kind: engine.ActionShoot, UnitID: id, TargetID: target.ID}
			}
		}
	}
	if bestScore < 0 {
		return skipUnit(ids[0])
	}
	return best
}

// chooseCharge declares a charge when the cached roll can make contact,
// landing next to the enemy the unit hurts most in melee. Units whose roll
// fell short skip so the failed charge is not burned before a later turn.
func (p *GreedyPolicy) chooseCharge(c *engine.Controller, ids []int) engine.Action {
	gs := c.State()
	for _, id := range ids {
		u := gs.Unit(id)
		dests := c.ChargeDestinations(id)
		if len(dests) == 0 {
			continue
		}
		bestScore := -1.0
		var bestDest hexgrid.Coord
		for _, d := range dests {
			for _, enemy := range gs.UnitsOf(u.Player.Opponent()) {
				if hexgrid.Distance(d, enemy.Pos) > u.MeleeRange() {
					continue
				}
				ed := bestMeleeDamage(u, enemy)
				if s := ed + killBonus(ed, enemy.HP); s > bestScore {
					bestScore = s
					bestDest = d
				}
			}
		}
		if bestScore >= 0 {
			return engine.Action{Kind: engine.ActionCharge, UnitID: id, Dest: bestDest}
		}
	}
	return skipUnit(ids[0])
}

// chooseFight attacks the enemy in reach the unit is most likely to kill.
func (p *GreedyPolicy) chooseFight(c *engine.Controller, ids []int) engine.Action {
	gs := c.State()
	id := ids[0]
	u := gs.Unit(id)

	bestScore := -1.0
	bestTarget := 0
	for _, enemy := range gs.UnitsOf(u.Player.Opponent()) {
		if hexgrid.Distance(u.Pos, enemy.Pos) > u.MeleeRange() {
			continue
		}
		ed := bestMeleeDamage(u, enemy)
		if s := ed + killBonus(ed, enemy.HP); s > bestScore {
			bestScore = s
			bestTarget = enemy.ID
		}
	}
	return engine.Action{Kind: engine.ActionFight, UnitID: id, TargetID: bestTarget}
}
