package engine

import "github.com/pellston/hexhammer/pkg/hexgrid"

// ActionKind names the verb an action performs.
type ActionKind string

const (
	ActionMove         ActionKind = "move"
	ActionShoot        ActionKind = "shoot"
	ActionSelectWeapon ActionKind = "select_weapon"
	ActionCharge       ActionKind = "charge"
	ActionFight        ActionKind = "fight"
	ActionSkip         ActionKind = "skip"
)

// Action is the single input type for Controller.Apply. Only the fields
// relevant to the kind are read; the rest are ignored.
type Action struct {
	Kind   ActionKind `json:"kind"`
	UnitID int        `json:"unit_id"`

	// Move and charge destination.
	Dest hexgrid.Coord `json:"dest,omitempty"`

	// Shoot and fight target. Zero means no target, which for fight means
	// "activate with no one in reach" and is rejected for shoot.
	TargetID int `json:"target_id,omitempty"`

	// Weapon selection for select_weapon. WeaponAuto restores automatic
	// best-weapon choice.
	WeaponIndex int `json:"weapon_index,omitempty"`

	// Steps limits how many shots or attacks this call resolves. Zero
	// resolves the whole remaining activation in one batch. The per-shot
	// outcomes are identical either way given the same roller.
	Steps int `json:"steps,omitempty"`
}

// AttackResult records one resolved attack in the hit, wound, save, damage
// chain. Rolls that were never made because an earlier step failed stay zero.
type AttackResult struct {
	HitRoll      int  `json:"hit_roll"`
	HitSuccess   bool `json:"hit_success"`
	WoundRoll    int  `json:"wound_roll,omitempty"`
	WoundSuccess bool `json:"wound_success"`
	SaveRoll     int  `json:"save_roll,omitempty"`
	SaveSuccess  bool `json:"save_success"`
	Damage       int  `json:"damage"`
	TargetDied   bool `json:"target_died"`
}

// ActionResult is the outcome of one Apply call. A rejected action carries
// an ErrorKind and guarantees the state was not mutated.
type ActionResult struct {
	Success bool      `json:"success"`
	Error   ErrorKind `json:"error,omitempty"`

	Action Action `json:"action"`
	UnitID int    `json:"unit_id"`

	// Set when the acting player's eligible set emptied and the controller
	// advanced the state machine.
	PhaseComplete bool  `json:"phase_complete,omitempty"`
	NextPhase     Phase `json:"next_phase,omitempty"`

	AttackResults []AttackResult `json:"attack_results,omitempty"`
	TargetID      int            `json:"target_id,omitempty"`

	// Charge outcome: the cached 2d6 roll and the destinations it allows.
	// Reachable is empty when the roll cannot bring the unit into contact.
	ChargeRoll int             `json:"charge_roll,omitempty"`
	Reachable  []hexgrid.Coord `json:"reachable,omitempty"`
}

func reject(a Action, kind ErrorKind) ActionResult {
	return ActionResult{Success: false, Error: kind, Action: a, UnitID: a.UnitID}
}
