package engine

import (
	"fmt"

	"github.com/pellston/hexhammer/pkg/hexgrid"
)

// maxAdvanceSteps bounds the auto-advance loop. A full turn crosses at most
// a dozen transitions; anything past this means the phase machine is stuck.
const maxAdvanceSteps = 64

// Controller is the phase state machine. It is the only writer of a
// GameState: callers submit actions through Apply and observe the outcome
// through the returned result and emitted events. Not safe for concurrent
// use; wrap with a mutex per match at the transport layer.
type Controller struct {
	gs     *GameState
	roller Roller
	los    *LOS
	elig   *Eligibility
	sinks  []EventSink
}

// NewController wires a controller over the state. It immediately resolves
// the opening command phase, so the returned controller is ready for the
// first player's move actions.
func NewController(gs *GameState, roller Roller, sinks ...EventSink) *Controller {
	los := NewLOS(gs.Board)
	c := &Controller{
		gs:     gs,
		roller: roller,
		los:    los,
		elig:   NewEligibility(gs, los),
		sinks:  sinks,
	}
	if gs.Status == StatusActive && gs.Phase == PhaseCommand {
		c.runCommandPhase()
		c.autoAdvance()
	}
	return c
}

// State returns the controller's game state. Callers must treat it as
// read-only; all mutation goes through Apply.
func (c *Controller) State() *GameState { return c.gs }

// Eligibility returns the controller's evaluator, sharing its LOS cache.
func (c *Controller) Eligibility() *Eligibility { return c.elig }

// Apply validates and executes one action. Rejections carry an ErrorKind
// and leave the state untouched. On success the controller advances the
// phase machine as far as the emptied eligibility sets allow.
func (c *Controller) Apply(a Action) ActionResult {
	if c.gs.Status != StatusActive {
		return reject(a, ErrMatchFinished)
	}
	u := c.gs.Unit(a.UnitID)
	if u == nil {
		return reject(a, ErrUnitNotFound)
	}

	var res ActionResult
	switch a.Kind {
	case ActionMove:
		res = c.applyMove(a, u)
	case ActionShoot:
		res = c.applyShoot(a, u)
	case ActionSelectWeapon:
		res = c.applySelectWeapon(a, u)
	case ActionCharge:
		res = c.applyCharge(a, u)
	case ActionFight:
		res = c.applyFight(a, u)
	case ActionSkip:
		res = c.applySkip(a, u)
	default:
		return reject(a, ErrUnitNotEligible)
	}
	if !res.Success {
		return res
	}

	before := c.gs.Phase
	c.autoAdvance()
	if c.gs.Phase != before || c.gs.Status != StatusActive {
		res.PhaseComplete = true
		res.NextPhase = c.gs.Phase
	}
	return res
}

func (c *Controller) applyMove(a Action, u *Unit) ActionResult {
	if c.gs.Phase != PhaseMove || !c.elig.Eligible(u, PhaseMove) {
		return reject(a, ErrUnitNotEligible)
	}
	reach := hexgrid.Reachable(u.Pos, u.Profile.Move, c.gs.Passable)
	if _, ok := reach[a.Dest]; !ok {
		return reject(a, ErrInvalidTarget)
	}

	fled := c.gs.AdjacentEnemy(u)
	from := u.Pos
	u.Pos = a.Dest
	u.MovedThisTurn = true
	c.gs.Moved[u.ID] = true
	if fled {
		c.gs.Fled[u.ID] = true
	}
	c.los.Reset()

	c.emit(Event{
		Kind: EventMove, UnitID: u.ID, Player: u.Player,
		Payload: map[string]any{
			"from": from, "to": a.Dest, "fled": fled,
		},
	})
	return ActionResult{Success: true, Action: a, UnitID: u.ID}
}

func (c *Controller) applyShoot(a Action, u *Unit) ActionResult {
	if c.gs.Phase != PhaseShoot {
		return reject(a, ErrUnitNotEligible)
	}
	if !u.HasRanged() {
		return reject(a, ErrMissingRequiredStat)
	}
	if !c.elig.Eligible(u, PhaseShoot) {
		return reject(a, ErrUnitNotEligible)
	}
	target := c.gs.Unit(a.TargetID)
	if target == nil || target.Player == u.Player {
		return reject(a, ErrInvalidTarget)
	}
	if !c.elig.validShootTarget(u, target) {
		return reject(a, ErrInvalidTarget)
	}

	inCover := c.los.InCover(u.Pos, target.Pos)
	dist := hexgrid.Distance(u.Pos, target.Pos)
	w, ok := c.pickRanged(u, target, dist, inCover)
	if !ok {
		if u.RangedWeapon != WeaponAuto {
			return reject(a, ErrInvalidWeaponIndex)
		}
		return reject(a, ErrInvalidTarget)
	}

	// First shoot action of the activation loads the weapon's shot count;
	// single-step callers drain it across repeated calls.
	if u.ShootLeft == 0 {
		u.ShootLeft = w.Shots
	}
	count := u.ShootLeft
	if a.Steps > 0 && a.Steps < count {
		count = a.Steps
	}
	results := resolveShots(c.roller, w, target, inCover, count)
	u.ShootLeft -= len(results)

	died := len(results) > 0 && results[len(results)-1].TargetDied
	done := died || u.ShootLeft == 0
	if done {
		u.ShootLeft = 0
		c.gs.Shot[u.ID] = true
	}

	c.emit(Event{
		Kind: EventShoot, UnitID: u.ID, TargetID: target.ID, Player: u.Player,
		Payload: map[string]any{
			"weapon": w.Name, "attacks": results, "in_cover": inCover,
		},
	})
	if died {
		c.killUnit(target)
	}
	return ActionResult{
		Success: true, Action: a, UnitID: u.ID,
		TargetID: target.ID, AttackResults: results,
	}
}

// pickRanged narrows the unit's ranged weapons to those in range, then
// applies the unit's selection. A manual selection out of range yields no
// weapon rather than silently switching.
func (c *Controller) pickRanged(u, target *Unit, dist int, inCover bool) (Weapon, bool) {
	if u.RangedWeapon != WeaponAuto {
		if u.RangedWeapon < 0 || u.RangedWeapon >= len(u.Profile.Ranged) {
			return Weapon{}, false
		}
		w := u.Profile.Ranged[u.RangedWeapon]
		if w.Range < dist {
			return Weapon{}, false
		}
		return w, true
	}
	var inRange []Weapon
	for _, w := range u.Profile.Ranged {
		if w.Range >= dist {
			inRange = append(inRange, w)
		}
	}
	return pickWeapon(inRange, WeaponAuto, target, inCover)
}

func (c *Controller) applySelectWeapon(a Action, u *Unit) ActionResult {
	switch c.gs.Phase {
	case PhaseShoot:
		if a.WeaponIndex != WeaponAuto && (a.WeaponIndex < 0 || a.WeaponIndex >= len(u.Profile.Ranged)) {
			return reject(a, ErrInvalidWeaponIndex)
		}
		// Selection is fixed for the rest of a started activation.
		if u.ShootLeft > 0 {
			return reject(a, ErrUnitNotEligible)
		}
		u.RangedWeapon = a.WeaponIndex
	case PhaseFight:
		if a.WeaponIndex != WeaponAuto && (a.WeaponIndex < 0 || a.WeaponIndex >= len(u.Profile.Melee)) {
			return reject(a, ErrInvalidWeaponIndex)
		}
		if u.AttackLeft > 0 {
			return reject(a, ErrUnitNotEligible)
		}
		u.MeleeWeapon = a.WeaponIndex
	default:
		return reject(a, ErrUnitNotEligible)
	}
	return ActionResult{Success: true, Action: a, UnitID: u.ID}
}

func (c *Controller) applyCharge(a Action, u *Unit) ActionResult {
	if c.gs.Phase != PhaseCharge {
		return reject(a, ErrUnitNotEligible)
	}
	if !u.HasMelee() {
		return reject(a, ErrMissingRequiredStat)
	}
	if !c.elig.Eligible(u, PhaseCharge) {
		return reject(a, ErrUnitNotEligible)
	}

	roll := c.chargeRoll(u)
	dests := c.chargeDestinations(u, roll)
	if len(dests) == 0 {
		// Failed charge: the roll cannot make contact. The activation ends
		// with the roll kept on record.
		c.gs.Charged[u.ID] = true
		c.emit(Event{
			Kind: EventChargeFail, UnitID: u.ID, Player: u.Player,
			Payload: map[string]any{"roll": roll},
		})
		return ActionResult{
			Success: true, Action: a, UnitID: u.ID, ChargeRoll: roll,
		}
	}

	valid := false
	for _, d := range dests {
		if d == a.Dest {
			valid = true
			break
		}
	}
	if !valid {
		return reject(a, ErrInvalidTarget)
	}

	from := u.Pos
	u.Pos = a.Dest
	u.ChargedThisTurn = true
	c.gs.Charged[u.ID] = true
	c.los.Reset()

	c.emit(Event{
		Kind: EventCharge, UnitID: u.ID, Player: u.Player,
		Payload: map[string]any{
			"from": from, "to": a.Dest, "roll": roll,
		},
	})
	return ActionResult{
		Success: true, Action: a, UnitID: u.ID,
		ChargeRoll: roll, Reachable: dests,
	}
}

func (c *Controller) applyFight(a Action, u *Unit) ActionResult {
	if c.gs.Phase != PhaseFight {
		return reject(a, ErrUnitNotEligible)
	}
	if !u.HasMelee() || u.MeleeRange() == 0 {
		return reject(a, ErrMissingRequiredStat)
	}
	if !c.elig.Eligible(u, PhaseFight) {
		return reject(a, ErrUnitNotEligible)
	}

	target, errKind := c.fightTarget(a, u)
	if errKind != ErrNone {
		return reject(a, errKind)
	}

	w, ok := pickWeapon(u.Profile.Melee, u.MeleeWeapon, target, false)
	if !ok {
		return reject(a, ErrInvalidWeaponIndex)
	}
	if hexgrid.Distance(u.Pos, target.Pos) > weaponReach(w) {
		return reject(a, ErrInvalidTarget)
	}

	if u.AttackLeft == 0 {
		u.AttackLeft = w.Shots
	}
	count := u.AttackLeft
	if a.Steps > 0 && a.Steps < count {
		count = a.Steps
	}
	results := resolveShots(c.roller, w, target, false, count)
	u.AttackLeft -= len(results)

	died := len(results) > 0 && results[len(results)-1].TargetDied
	done := died || u.AttackLeft == 0
	if done {
		u.AttackLeft = 0
		c.finishFightActivation(u)
	}

	c.emit(Event{
		Kind: EventFight, UnitID: u.ID, TargetID: target.ID, Player: u.Player,
		Payload: map[string]any{
			"weapon": w.Name, "attacks": results,
		},
	})
	if died {
		c.killUnit(target)
	}
	return ActionResult{
		Success: true, Action: a, UnitID: u.ID,
		TargetID: target.ID, AttackResults: results,
	}
}

// fightTarget resolves the fight action's target. Zero means auto-select:
// the nearest enemy in melee reach, lowest ID breaking ties.
func (c *Controller) fightTarget(a Action, u *Unit) (*Unit, ErrorKind) {
	if a.TargetID != 0 {
		target := c.gs.Unit(a.TargetID)
		if target == nil || target.Player == u.Player {
			return nil, ErrInvalidTarget
		}
		return target, ErrNone
	}
	var best *Unit
	bestDist := 0
	for _, enemy := range c.gs.UnitsOf(u.Player.Opponent()) {
		d := hexgrid.Distance(u.Pos, enemy.Pos)
		if d > u.MeleeRange() {
			continue
		}
		if best == nil || d < bestDist {
			best, bestDist = enemy, d
		}
	}
	if best == nil {
		return nil, ErrInvalidTarget
	}
	return best, ErrNone
}

func weaponReach(w Weapon) int {
	if w.Range <= 0 {
		return 1
	}
	return w.Range
}

// finishFightActivation marks the unit done and, in the alternating
// sub-phase, hands activation to the other player.
func (c *Controller) finishFightActivation(u *Unit) {
	c.gs.Attacked[u.ID] = true
	if c.gs.CombatSubPhase == SubPhaseAlternating {
		c.gs.CombatActivePlayer = c.gs.CombatActivePlayer.Opponent()
	}
}

func (c *Controller) applySkip(a Action, u *Unit) ActionResult {
	if !c.elig.Eligible(u, c.gs.Phase) {
		return reject(a, ErrUnitNotEligible)
	}
	switch c.gs.Phase {
	case PhaseMove:
		c.gs.Moved[u.ID] = true
	case PhaseShoot:
		u.ShootLeft = 0
		c.gs.Shot[u.ID] = true
	case PhaseCharge:
		// Cancelling keeps any cached roll; the unit may not re-roll.
		c.gs.Charged[u.ID] = true
	case PhaseFight:
		u.AttackLeft = 0
		c.finishFightActivation(u)
	default:
		return reject(a, ErrUnitNotEligible)
	}
	return ActionResult{Success: true, Action: a, UnitID: u.ID}
}

// killUnit removes a dead unit and checks the wipe-out win condition.
func (c *Controller) killUnit(u *Unit) {
	c.gs.RemoveUnit(u.ID)
	c.los.Reset()
	c.emit(Event{Kind: EventDeath, UnitID: u.ID, Player: u.Player})
	if c.gs.LivingCount(u.Player) == 0 {
		winner := u.Player.Opponent()
		c.finishMatch(&winner)
	}
}

func (c *Controller) finishMatch(winner *Player) {
	c.gs.Status = StatusFinished
	c.gs.Winner = winner
	payload := map[string]any{
		"victory_points": map[string]int{
			PlayerRed.String():  c.gs.VictoryPoints[PlayerRed],
			PlayerBlue.String(): c.gs.VictoryPoints[PlayerBlue],
		},
	}
	if winner != nil {
		payload["winner"] = winner.String()
	}
	c.emit(Event{Kind: EventMatchEnd, Payload: payload})
}

// autoAdvance moves the phase machine forward until some player has an
// eligible unit or the match ends. Phases never end on a step counter, only
// on an empty eligibility set.
func (c *Controller) autoAdvance() {
	for steps := 0; c.gs.Status == StatusActive; steps++ {
		if steps > maxAdvanceSteps {
			panic(fmt.Sprintf("engine: %s: phase machine failed to advance from %s", ErrEmptyActivationPool, c.gs.Phase))
		}
		if c.hasEligible() {
			return
		}
		c.advanceOnce()
	}
}

// hasEligible reports whether the active player for the current phase and
// sub-phase still has a unit to activate.
func (c *Controller) hasEligible() bool {
	switch {
	case c.gs.Phase == PhaseCommand:
		return false
	case c.gs.Phase == PhaseFight && c.gs.CombatSubPhase == SubPhaseAlternating:
		if len(c.elig.EligibleSet(c.gs.CombatActivePlayer, PhaseFight)) > 0 {
			return true
		}
		// The other player may still have engaged units; pass activation
		// across rather than ending the phase.
		other := c.gs.CombatActivePlayer.Opponent()
		if len(c.elig.EligibleSet(other, PhaseFight)) > 0 {
			c.gs.CombatActivePlayer = other
			return true
		}
		return false
	default:
		return len(c.elig.EligibleSet(c.gs.CurrentPlayer, c.gs.Phase)) > 0
	}
}

// advanceOnce performs a single phase transition, clearing the incoming
// phase's set at its entry.
func (c *Controller) advanceOnce() {
	switch c.gs.Phase {
	case PhaseCommand:
		c.enterPhase(PhaseMove)
		for id := range c.gs.Moved {
			delete(c.gs.Moved, id)
		}
		for id := range c.gs.Fled {
			delete(c.gs.Fled, id)
		}
		for _, u := range c.gs.Units {
			u.MovedThisTurn = false
		}
	case PhaseMove:
		c.enterPhase(PhaseShoot)
		for id := range c.gs.Shot {
			delete(c.gs.Shot, id)
		}
	case PhaseShoot:
		c.enterPhase(PhaseCharge)
		for id := range c.gs.Charged {
			delete(c.gs.Charged, id)
		}
	case PhaseCharge:
		c.enterPhase(PhaseFight)
		for id := range c.gs.Attacked {
			delete(c.gs.Attacked, id)
		}
		c.gs.CombatSubPhase = SubPhaseChargedUnits
	case PhaseFight:
		if c.gs.CombatSubPhase == SubPhaseChargedUnits {
			c.gs.CombatSubPhase = SubPhaseAlternating
			c.gs.CombatActivePlayer = c.gs.CurrentPlayer.Opponent()
			return
		}
		c.finishFightPhase()
	}
}

// finishFightPhase closes out the fight phase: player swap, and after the
// second fight of the turn, turn increment and turn-scoped resets.
func (c *Controller) finishFightPhase() {
	c.gs.CombatSubPhase = SubPhaseNone
	c.gs.fightsThisTurn++
	c.gs.CurrentPlayer = c.gs.CurrentPlayer.Opponent()

	if c.gs.fightsThisTurn >= 2 {
		c.gs.fightsThisTurn = 0
		c.gs.Turn++
		for id := range c.gs.ChargeRolls {
			delete(c.gs.ChargeRolls, id)
		}
		for _, u := range c.gs.Units {
			u.ChargedThisTurn = false
		}
		c.emit(Event{Kind: EventTurnChange})
		if c.gs.Turn > c.gs.MaxTurns {
			c.finishMatch(c.turnLimitWinner())
			return
		}
	}

	c.gs.Phase = PhaseCommand
	c.emit(Event{Kind: EventPhaseChange, Payload: map[string]any{"phase": PhaseCommand}})
	c.runCommandPhase()
}

// turnLimitWinner decides the match at the turn limit: victory points,
// then surviving units, else a draw.
func (c *Controller) turnLimitWinner() *Player {
	redVP, blueVP := c.gs.VictoryPoints[PlayerRed], c.gs.VictoryPoints[PlayerBlue]
	if redVP != blueVP {
		w := PlayerRed
		if blueVP > redVP {
			w = PlayerBlue
		}
		return &w
	}
	redUnits, blueUnits := c.gs.LivingCount(PlayerRed), c.gs.LivingCount(PlayerBlue)
	if redUnits != blueUnits {
		w := PlayerRed
		if blueUnits > redUnits {
			w = PlayerBlue
		}
		return &w
	}
	return nil
}

func (c *Controller) enterPhase(p Phase) {
	c.gs.Phase = p
	c.emit(Event{Kind: EventPhaseChange, Payload: map[string]any{"phase": p}})
}

// runCommandPhase scores objectives for the current player. An objective is
// controlled when the player has a unit within 1 hex of it and the opponent
// does not. The phase holds no unit activations and ends immediately.
func (c *Controller) runCommandPhase() {
	scored := 0
	for _, obj := range c.gs.Board.Objectives() {
		if c.controlsObjective(c.gs.CurrentPlayer, obj) {
			scored++
		}
	}
	if scored > 0 {
		c.gs.VictoryPoints[c.gs.CurrentPlayer] += scored
		c.emit(Event{
			Kind: EventScore, Player: c.gs.CurrentPlayer,
			Payload: map[string]any{
				"points": scored,
				"total":  c.gs.VictoryPoints[c.gs.CurrentPlayer],
			},
		})
	}
}

func (c *Controller) controlsObjective(p Player, obj hexgrid.Coord) bool {
	mine, theirs := false, false
	for _, u := range c.gs.Units {
		if hexgrid.Distance(u.Pos, obj) <= 1 {
			if u.Player == p {
				mine = true
			} else {
				theirs = true
			}
		}
	}
	return mine && !theirs
}

func (c *Controller) emit(e Event) {
	e.Turn = c.gs.Turn
	e.Phase = c.gs.Phase
	for _, s := range c.sinks {
		s.HandleEvent(e)
	}
}
