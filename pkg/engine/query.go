package engine

import "github.com/pellston/hexhammer/pkg/hexgrid"

// VisibleEnemy is one entry of a visibility sweep around a unit.
type VisibleEnemy struct {
	UnitID  int  `json:"unit_id"`
	HasLOS  bool `json:"has_los"`
	InCover bool `json:"in_cover"`
}

// ListUnits returns snapshots of all living units sorted by ID. The copies
// are safe to hand to renderers and observation encoders.
func (c *Controller) ListUnits() []Unit {
	ids := c.gs.UnitIDs()
	units := make([]Unit, 0, len(ids))
	for _, id := range ids {
		units = append(units, *c.gs.Units[id])
	}
	return units
}

// EligibleUnits returns the current player's eligible unit IDs for the
// phase. In the alternating fight sub-phase the combat active player is
// the one consulted.
func (c *Controller) EligibleUnits(phase Phase) []int {
	p := c.gs.CurrentPlayer
	if phase == PhaseFight && c.gs.CombatSubPhase == SubPhaseAlternating {
		p = c.gs.CombatActivePlayer
	}
	return c.elig.EligibleSet(p, phase)
}

// VisibleEnemies sweeps enemies within the radius of the unit and classifies
// each for line of sight and cover. Enemies outside the radius are omitted.
func (c *Controller) VisibleEnemies(unitID, radius int) []VisibleEnemy {
	u := c.gs.Unit(unitID)
	if u == nil {
		return nil
	}
	var out []VisibleEnemy
	for _, enemy := range c.gs.UnitsOf(u.Player.Opponent()) {
		if hexgrid.Distance(u.Pos, enemy.Pos) > radius {
			continue
		}
		out = append(out, VisibleEnemy{
			UnitID:  enemy.ID,
			HasLOS:  c.los.CanSee(u.Pos, enemy.Pos),
			InCover: c.los.InCover(u.Pos, enemy.Pos),
		})
	}
	return out
}

// ChargeDestinations previews the unit's valid charge destinations. Calling
// it rolls and caches the unit's 2d6 charge distance if it has none yet, so
// a later charge action sees the same roll. Returns nil when the unit is not
// eligible to charge.
func (c *Controller) ChargeDestinations(unitID int) []hexgrid.Coord {
	u := c.gs.Unit(unitID)
	if u == nil || c.gs.Phase != PhaseCharge || !c.elig.Eligible(u, PhaseCharge) {
		return nil
	}
	return c.chargeDestinations(u, c.chargeRoll(u))
}

// MoveDestinations returns the hexes the unit could end a normal move on,
// sorted. Empty outside the move phase or for an ineligible unit.
func (c *Controller) MoveDestinations(unitID int) []hexgrid.Coord {
	u := c.gs.Unit(unitID)
	if u == nil || c.gs.Phase != PhaseMove || !c.elig.Eligible(u, PhaseMove) {
		return nil
	}
	reach := hexgrid.Reachable(u.Pos, u.Profile.Move, c.gs.Passable)
	dests := make([]hexgrid.Coord, 0, len(reach))
	for hex := range reach {
		dests = append(dests, hex)
	}
	sortCoords(dests)
	return dests
}
