package engine

import (
	"fmt"

	"github.com/pellston/hexhammer/pkg/hexgrid"
)

// Player identifies one of the two sides.
type Player int

const (
	PlayerRed Player = iota
	PlayerBlue
)

// Opponent returns the other player.
func (p Player) Opponent() Player {
	if p == PlayerRed {
		return PlayerBlue
	}
	return PlayerRed
}

func (p Player) String() string {
	if p == PlayerRed {
		return "red"
	}
	return "blue"
}

// Weapon is a single ranged or melee weapon profile.
type Weapon struct {
	Name     string `json:"name"`
	Shots    int    `json:"shots"`    // attacks per activation
	Skill    int    `json:"skill"`    // hit threshold, 2-6 (roll >= Skill hits)
	Strength int    `json:"strength"` // compared against target Toughness
	AP       int    `json:"ap"`       // armor penetration, worsens armor save by AP steps
	Damage   int    `json:"damage"`   // HP removed per unsaved wound
	Range    int    `json:"range"`    // hexes; melee range defaults to 1
}

// Profile is a flat archetype stat record. All archetypes share identical
// behavior driven purely by this data; there is no type hierarchy.
type Profile struct {
	Name      string   `json:"name"`
	Move      int      `json:"move"`
	Toughness int      `json:"toughness"`
	ArmorSave int      `json:"armor_save"` // 2-6; 7 means no armor save
	InvulSave int      `json:"invul_save"` // 2-6; 0 means none
	MaxHP     int      `json:"max_hp"`
	Ranged    []Weapon `json:"ranged,omitempty"`
	Melee     []Weapon `json:"melee,omitempty"`
	Tags      []string `json:"tags,omitempty"` // capability tags (infantry, vehicle, ...)
}

// Validate checks the profile for configuration errors. A unit with zero
// ranged and zero melee weapons can never act and is rejected outright.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile has no name")
	}
	if len(p.Ranged) == 0 && len(p.Melee) == 0 {
		return fmt.Errorf("profile %s has no weapons", p.Name)
	}
	if p.MaxHP <= 0 {
		return fmt.Errorf("profile %s has non-positive max HP", p.Name)
	}
	if p.Move <= 0 {
		return fmt.Errorf("profile %s has non-positive move", p.Name)
	}
	if p.Toughness <= 0 {
		return fmt.Errorf("profile %s has non-positive toughness", p.Name)
	}
	for _, w := range append(append([]Weapon{}, p.Ranged...), p.Melee...) {
		if w.Shots <= 0 || w.Skill < 2 || w.Skill > 6 || w.Damage <= 0 {
			return fmt.Errorf("profile %s: weapon %s has invalid stats", p.Name, w.Name)
		}
	}
	return nil
}

// WeaponAuto selects the best weapon for the current target automatically.
const WeaponAuto = -1

// Unit is one model on the board: a static profile plus mutable runtime state.
type Unit struct {
	ID      int           `json:"id"`
	Player  Player        `json:"player"`
	Pos     hexgrid.Coord `json:"pos"`
	Profile Profile       `json:"profile"`

	HP              int  `json:"hp"`
	ShootLeft       int  `json:"shoot_left"`  // shots remaining in the current shoot activation
	AttackLeft      int  `json:"attack_left"` // attacks remaining in the current fight activation
	ChargedThisTurn bool `json:"charged_this_turn"`
	MovedThisTurn   bool `json:"moved_this_turn"` // repositioned in the move phase; a pass does not set it

	// Weapon selections for the current activation. WeaponAuto picks the
	// highest expected damage against the chosen target.
	RangedWeapon int `json:"ranged_weapon"`
	MeleeWeapon  int `json:"melee_weapon"`
}

// NewUnit constructs a unit from a validated profile at full health.
func NewUnit(id int, player Player, profile Profile, pos hexgrid.Coord) (*Unit, error) {
	if id <= 0 {
		return nil, fmt.Errorf("unit id must be positive, got %d", id)
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return &Unit{
		ID:           id,
		Player:       player,
		Pos:          pos,
		Profile:      profile,
		HP:           profile.MaxHP,
		RangedWeapon: WeaponAuto,
		MeleeWeapon:  WeaponAuto,
	}, nil
}

// Alive reports whether the unit is still on the board.
func (u *Unit) Alive() bool { return u.HP > 0 }

// HasRanged reports whether the unit has any ranged weapon.
func (u *Unit) HasRanged() bool { return len(u.Profile.Ranged) > 0 }

// HasMelee reports whether the unit has any melee weapon.
func (u *Unit) HasMelee() bool { return len(u.Profile.Melee) > 0 }

// MeleeRange returns the unit's longest melee reach, or 0 if it has no melee
// weapons. Most weapons reach exactly 1 hex.
func (u *Unit) MeleeRange() int {
	best := 0
	for _, w := range u.Profile.Melee {
		r := w.Range
		if r <= 0 {
			r = 1
		}
		if r > best {
			best = r
		}
	}
	return best
}

// MaxRangedRange returns the unit's longest ranged reach, or 0 without
// ranged weapons.
func (u *Unit) MaxRangedRange() int {
	best := 0
	for _, w := range u.Profile.Ranged {
		if w.Range > best {
			best = w.Range
		}
	}
	return best
}

// clone returns a deep copy of the unit. Profile slices are shared since
// profiles are immutable after validation.
func (u *Unit) clone() *Unit {
	c := *u
	return &c
}
