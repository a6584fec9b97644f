package engine

import (
	"fmt"
	"sort"
)

// Archetype stat table. Profiles are looked up by name at roster construction;
// there is no behavior attached to an archetype beyond its stats and tags.
var archetypes = map[string]Profile{
	"trooper": {
		Name: "trooper", Move: 3, Toughness: 4, ArmorSave: 3, MaxHP: 2,
		Ranged: []Weapon{
			{Name: "bolt rifle", Shots: 2, Skill: 3, Strength: 4, AP: 1, Damage: 1, Range: 12},
		},
		Melee: []Weapon{
			{Name: "combat blade", Shots: 2, Skill: 3, Strength: 4, AP: 0, Damage: 1, Range: 1},
		},
		Tags: []string{"infantry"},
	},
	"marksman": {
		Name: "marksman", Move: 3, Toughness: 3, ArmorSave: 4, MaxHP: 1,
		Ranged: []Weapon{
			{Name: "long rifle", Shots: 1, Skill: 2, Strength: 5, AP: 2, Damage: 2, Range: 18},
			{Name: "sidearm", Shots: 1, Skill: 3, Strength: 3, AP: 0, Damage: 1, Range: 6},
		},
		Melee: []Weapon{
			{Name: "knife", Shots: 1, Skill: 4, Strength: 3, AP: 0, Damage: 1, Range: 1},
		},
		Tags: []string{"infantry", "sniper"},
	},
	"assault": {
		Name: "assault", Move: 5, Toughness: 4, ArmorSave: 3, MaxHP: 2,
		Ranged: []Weapon{
			{Name: "pistol", Shots: 1, Skill: 3, Strength: 4, AP: 0, Damage: 1, Range: 6},
		},
		Melee: []Weapon{
			{Name: "chain sword", Shots: 3, Skill: 3, Strength: 4, AP: 1, Damage: 1, Range: 1},
		},
		Tags: []string{"infantry", "fast"},
	},
	"brute": {
		Name: "brute", Move: 4, Toughness: 5, ArmorSave: 2, InvulSave: 5, MaxHP: 4,
		Ranged: []Weapon{
			{Name: "heavy cannon", Shots: 2, Skill: 4, Strength: 8, AP: 2, Damage: 2, Range: 15},
		},
		Melee: []Weapon{
			{Name: "power fist", Shots: 2, Skill: 4, Strength: 8, AP: 3, Damage: 2, Range: 1},
		},
		Tags: []string{"heavy"},
	},
	"warlord": {
		Name: "warlord", Move: 4, Toughness: 4, ArmorSave: 2, InvulSave: 4, MaxHP: 5,
		Ranged: []Weapon{
			{Name: "plasma pistol", Shots: 1, Skill: 2, Strength: 7, AP: 3, Damage: 2, Range: 9},
		},
		Melee: []Weapon{
			{Name: "relic blade", Shots: 4, Skill: 2, Strength: 6, AP: 2, Damage: 2, Range: 1},
		},
		Tags: []string{"infantry", "leader"},
	},
	"swarmling": {
		Name: "swarmling", Move: 5, Toughness: 3, ArmorSave: 6, MaxHP: 1,
		Melee: []Weapon{
			{Name: "claws", Shots: 2, Skill: 4, Strength: 3, AP: 0, Damage: 1, Range: 1},
		},
		Tags: []string{"swarm", "fast"},
	},
}

// ProfileByName returns a copy of the named archetype profile.
func ProfileByName(name string) (Profile, error) {
	p, ok := archetypes[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown archetype %q", name)
	}
	return p, nil
}

// ArchetypeNames returns the available archetype names in sorted order.
func ArchetypeNames() []string {
	names := make([]string, 0, len(archetypes))
	for n := range archetypes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
