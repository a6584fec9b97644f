package bot

import (
	"github.com/pellston/hexhammer/pkg/engine"
	"github.com/pellston/hexhammer/pkg/hexgrid"
)

// Expected-damage math mirrors the engine's resolution chain: d6 hit against
// weapon skill, d6 wound from strength vs toughness, failed save scaled by
// AP and cover, flat damage per unsaved wound.

func woundThreshold(strength, toughness int) int {
	switch {
	case strength >= 2*toughness:
		return 2
	case strength > toughness:
		return 3
	case strength == toughness:
		return 4
	case strength*2 <= toughness:
		return 6
	default:
		return 5
	}
}

func saveThreshold(target *engine.Unit, ap int, inCover bool) int {
	armor := target.Profile.ArmorSave
	if inCover && armor > 2 {
		armor--
	}
	armor += ap
	if armor < 2 {
		armor = 2
	}
	if armor > 7 {
		armor = 7
	}
	if inv := target.Profile.InvulSave; inv > 0 && inv < armor {
		return inv
	}
	return armor
}

// expectedWounds is the mean HP removed by one full activation of w against
// the target.
func expectedWounds(w engine.Weapon, target *engine.Unit, inCover bool) float64 {
	pHit := float64(7-w.Skill) / 6
	pWound := float64(7-woundThreshold(w.Strength, target.Profile.Toughness)) / 6
	failChances := saveThreshold(target, w.AP, inCover) - 1
	if failChances > 6 {
		failChances = 6
	}
	pUnsaved := float64(failChances) / 6
	return float64(w.Shots) * pHit * pWound * pUnsaved * float64(w.Damage)
}

// bestRangedDamage is the highest expected damage among the unit's ranged
// weapons that reach the target.
func bestRangedDamage(u, target *engine.Unit, dist int, inCover bool) float64 {
	best := 0.0
	for _, w := range u.Profile.Ranged {
		if w.Range < dist {
			continue
		}
		if ed := expectedWounds(w, target, inCover); ed > best {
			best = ed
		}
	}
	return best
}

// bestMeleeDamage is the highest expected damage among the unit's melee
// weapons.
func bestMeleeDamage(u, target *engine.Unit) float64 {
	best := 0.0
	for _, w := range u.Profile.Melee {
		if ed := expectedWounds(w, target, false); ed > best {
			best = ed
		}
	}
	return best
}

// killBonus rewards attacks likely to finish the target. Removing a unit
// removes its entire future output, so a probable kill outranks slightly
// higher raw damage into a healthy target.
func killBonus(expected float64, targetHP int) float64 {
	if expected >= float64(targetHP) {
		return 2.0
	}
	return 0
}

// nearestEnemyDistance returns the hex distance to the closest living enemy
// of the side, or a large sentinel when none remain.
func nearestEnemyDistance(gs *engine.GameState, pos hexgrid.Coord, side engine.Player) int {
	best := 1 << 30
	for _, enemy := range gs.UnitsOf(side.Opponent()) {
		if d := hexgrid.Distance(pos, enemy.Pos); d < best {
			best = d
		}
	}
	return best
}

// nearestObjectiveDistance returns the hex distance to the closest objective,
// or a large sentinel on a board without objectives.
func nearestObjectiveDistance(gs *engine.GameState, pos hexgrid.Coord) int {
	best := 1 << 30
	for _, obj := range gs.Board.Objectives() {
		if d := hexgrid.Distance(pos, obj); d < best {
			best = d
		}
	}
	return best
}
