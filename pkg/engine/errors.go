package engine

// ErrorKind classifies why an action was rejected. Rejections never mutate
// game state.
type ErrorKind string

const (
	// ErrNone means the action succeeded.
	ErrNone ErrorKind = ""
	// ErrUnitNotFound means the action referenced a unit ID not in the roster.
	ErrUnitNotFound ErrorKind = "unit_not_found"
	// ErrUnitNotEligible means the unit may not act in the current phase.
	ErrUnitNotEligible ErrorKind = "unit_not_eligible"
	// ErrInvalidTarget means the target is the wrong player, out of range,
	// blocked by line of sight, or an invalid destination hex.
	ErrInvalidTarget ErrorKind = "invalid_target"
	// ErrInvalidWeaponIndex means a weapon selection was out of bounds.
	ErrInvalidWeaponIndex ErrorKind = "invalid_weapon_index"
	// ErrMissingRequiredStat means the unit lacks a stat the action requires,
	// e.g. a fight action for a unit with no melee weapons. This is a roster
	// configuration bug and is never silently defaulted.
	ErrMissingRequiredStat ErrorKind = "missing_required_stat"
	// ErrMatchFinished means the match is over and accepts no further actions.
	ErrMatchFinished ErrorKind = "match_finished"
	// ErrEmptyActivationPool indicates the phase machine failed to advance
	// past a phase with no eligible units. It is raised as a panic, not
	// returned, since it is a programming error.
	ErrEmptyActivationPool ErrorKind = "empty_activation_pool"
)

func (e ErrorKind) String() string { return string(e) }
