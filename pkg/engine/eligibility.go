package engine

import "github.com/pellston/hexhammer/pkg/hexgrid"

// chargeRange is the BFS radius of the charge eligibility pre-check. A unit
// with no enemy reachable within it can never make contact regardless of
// the 2d6 roll.
const chargeRange = 12

// Eligibility answers per-phase "may this unit act" questions. All
// predicates are pure: they read GameState and the LOS service but mutate
// nothing, so callers may query eligibility freely between actions.
type Eligibility struct {
	gs  *GameState
	los *LOS
}

// NewEligibility creates the evaluator over a state and LOS service.
func NewEligibility(gs *GameState, los *LOS) *Eligibility {
	return &Eligibility{gs: gs, los: los}
}

// Eligible reports whether the unit may act in the given phase. The command
// phase has no unit activations and always reports false.
func (e *Eligibility) Eligible(u *Unit, phase Phase) bool {
	if u == nil {
		return false
	}
	switch phase {
	case PhaseMove:
		return e.canMove(u)
	case PhaseShoot:
		return e.canShoot(u)
	case PhaseCharge:
		return e.canCharge(u)
	case PhaseFight:
		return e.canFight(u)
	default:
		return false
	}
}

// EligibleSet returns the IDs of the player's units eligible in the phase,
// sorted ascending.
func (e *Eligibility) EligibleSet(p Player, phase Phase) []int {
	var ids []int
	for _, id := range e.gs.UnitIDs() {
		u := e.gs.Units[id]
		if u.Player == p && e.Eligible(u, phase) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (e *Eligibility) canMove(u *Unit) bool {
	return u.Player == e.gs.CurrentPlayer && !e.gs.Moved[u.ID]
}

func (e *Eligibility) canShoot(u *Unit) bool {
	if u.Player != e.gs.CurrentPlayer {
		return false
	}
	if e.gs.Shot[u.ID] || e.gs.Fled[u.ID] {
		return false
	}
	// Moving and shooting are exclusive. A unit that repositioned this turn
	// holds its fire; a unit that passed its move activation may still shoot.
	if u.MovedThisTurn {
		return false
	}
	if !u.HasRanged() {
		return false
	}
	// Engaged units cannot shoot.
	if e.gs.AdjacentEnemy(u) {
		return false
	}
	for _, enemy := range e.gs.UnitsOf(u.Player.Opponent()) {
		if e.validShootTarget(u, enemy) {
			return true
		}
	}
	return false
}

// validShootTarget checks range, the shoot-through-ally restriction, and
// line of sight for one shooter/target pair.
func (e *Eligibility) validShootTarget(u, target *Unit) bool {
	if hexgrid.Distance(u.Pos, target.Pos) > u.MaxRangedRange() {
		return false
	}
	// A target locked in melee with the shooter's own side is off limits.
	if e.gs.AdjacentFriendly(target.Pos, u.Player, u.ID) {
		return false
	}
	return e.los.CanSee(u.Pos, target.Pos)
}

func (e *Eligibility) canCharge(u *Unit) bool {
	if u.Player != e.gs.CurrentPlayer {
		return false
	}
	if e.gs.Charged[u.ID] || e.gs.Fled[u.ID] {
		return false
	}
	// Already in contact; fighting happens in the fight phase instead.
	if e.gs.AdjacentEnemy(u) {
		return false
	}
	if !u.HasMelee() {
		return false
	}
	return e.enemyReachable(u, chargeRange)
}

// enemyReachable runs the wall-aware BFS pre-check: can any hex adjacent
// to an enemy be reached within maxDist steps? Occupied hexes block the
// path, matching the movement rules the eventual charge will obey.
func (e *Eligibility) enemyReachable(u *Unit, maxDist int) bool {
	enemies := e.gs.UnitsOf(u.Player.Opponent())
	reach := hexgrid.Reachable(u.Pos, maxDist, e.gs.Passable)
	for c := range reach {
		for _, enemy := range enemies {
			if hexgrid.Distance(c, enemy.Pos) <= 1 {
				return true
			}
		}
	}
	return false
}

func (e *Eligibility) canFight(u *Unit) bool {
	if e.gs.Attacked[u.ID] {
		return false
	}
	if !u.HasMelee() {
		return false
	}
	switch e.gs.CombatSubPhase {
	case SubPhaseChargedUnits:
		if u.Player != e.gs.CurrentPlayer || !u.ChargedThisTurn {
			return false
		}
	case SubPhaseAlternating:
		// Charged units already fought in the opening sub-phase.
		if u.ChargedThisTurn {
			return false
		}
		if u.Player != e.gs.CombatActivePlayer {
			return false
		}
	default:
		return false
	}
	return e.enemyInMeleeReach(u)
}

func (e *Eligibility) enemyInMeleeReach(u *Unit) bool {
	return e.gs.EnemyWithin(u, u.MeleeRange())
}
