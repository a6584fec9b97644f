package engine

import "github.com/pellston/hexhammer/pkg/hexgrid"

// chargeRoll returns the unit's 2d6 charge distance for this turn, rolling
// only on first use. The cached roll survives re-selection and cancellation
// so a unit never gets a second roll in the same turn.
func (c *Controller) chargeRoll(u *Unit) int {
	if roll, ok := c.gs.ChargeRolls[u.ID]; ok {
		return roll
	}
	roll := roll2d6(c.roller)
	c.gs.ChargeRolls[u.ID] = roll
	return roll
}

// chargeDestinations returns the hexes the unit could end a charge on given
// the rolled distance: reachable by wall-and-unit-aware BFS, unoccupied, and
// adjacent to at least one enemy. Sorted for deterministic output.
func (c *Controller) chargeDestinations(u *Unit, roll int) []hexgrid.Coord {
	enemies := c.gs.UnitsOf(u.Player.Opponent())
	reach := hexgrid.Reachable(u.Pos, roll, c.gs.Passable)

	var dests []hexgrid.Coord
	for hex := range reach {
		for _, enemy := range enemies {
			if hexgrid.Distance(hex, enemy.Pos) <= 1 {
				dests = append(dests, hex)
				break
			}
		}
	}
	sortCoords(dests)
	return dests
}
