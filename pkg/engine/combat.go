package engine

// woundTarget derives the wound threshold from strength vs toughness.
func woundTarget(strength, toughness int) int {
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

// saveTarget derives the effective save threshold. Cover improves the armor
// save one step before AP degrades it, capped at 2+. The invulnerable save
// ignores both cover and AP and wins when better. 7 means unsavable.
func saveTarget(target *Unit, ap int, inCover bool) int {
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

// expectedDamage is the mean damage of one shot of w against target,
// in fractions of a wound times 36 to stay in integers. Used only to rank
// weapons for auto-selection.
func expectedDamage(w Weapon, target *Unit, inCover bool) int {
	hitChances := 7 - w.Skill
	woundChances := 7 - woundTarget(w.Strength, target.Profile.Toughness)
	failChances := saveTarget(target, w.AP, inCover) - 1
	if failChances > 6 {
		failChances = 6
	}
	return hitChances * woundChances * failChances * w.Damage
}

// pickWeapon resolves a unit's weapon choice for the activation. A manual
// index is honored; WeaponAuto picks the highest expected damage against
// the target, lowest index winning ties.
func pickWeapon(weapons []Weapon, choice int, target *Unit, inCover bool) (Weapon, bool) {
	if choice != WeaponAuto {
		if choice < 0 || choice >= len(weapons) {
			return Weapon{}, false
		}
		return weapons[choice], true
	}
	if len(weapons) == 0 {
		return Weapon{}, false
	}
	best := 0
	bestScore := -1
	for i, w := range weapons {
		if score := expectedDamage(w, target, inCover); score > bestScore {
			best, bestScore = i, score
		}
	}
	return weapons[best], true
}

// resolveAttack runs one hit, wound, save, damage chain against the target,
// mutating its HP on an unsaved wound. The caller removes dead units.
func resolveAttack(r Roller, w Weapon, target *Unit, inCover bool) AttackResult {
	res := AttackResult{HitRoll: r.D6()}
	res.HitSuccess = res.HitRoll >= w.Skill
	if !res.HitSuccess {
		return res
	}

	res.WoundRoll = r.D6()
	res.WoundSuccess = res.WoundRoll >= woundTarget(w.Strength, target.Profile.Toughness)
	if !res.WoundSuccess {
		return res
	}

	res.SaveRoll = r.D6()
	res.SaveSuccess = res.SaveRoll >= saveTarget(target, w.AP, inCover)
	if res.SaveSuccess {
		return res
	}

	res.Damage = w.Damage
	target.HP -= w.Damage
	if target.HP <= 0 {
		target.HP = 0
		res.TargetDied = true
	}
	return res
}

// resolveShots runs up to count attacks with the same weapon, stopping early
// if the target dies. Single-step callers pass count=1 and get the identical
// per-shot outcomes a batch call would have produced with the same roller.
func resolveShots(r Roller, w Weapon, target *Unit, inCover bool, count int) []AttackResult {
	var results []AttackResult
	for i := 0; i < count; i++ {
		res := resolveAttack(r, w, target, inCover)
		results = append(results, res)
		if res.TargetDied {
			break
		}
	}
	return results
}
