package engine

import "math/rand"

// Roller is the single source of randomness inside the engine. Injecting it
// keeps two runs with the same seed and action sequence bit-identical, which
// replay and training rollouts depend on.
type Roller interface {
	// D6 returns a uniform roll in [1, 6].
	D6() int
}

// DiceRoller is a seedable Roller backed by math/rand. It counts consumed
// rolls so a restored match can fast-forward to the same point in the stream.
type DiceRoller struct {
	rng      *rand.Rand
	consumed int
}

// NewRoller creates a DiceRoller from a seed.
func NewRoller(seed int64) *DiceRoller {
	return &DiceRoller{rng: rand.New(rand.NewSource(seed))}
}

// NewRollerAt creates a DiceRoller fast-forwarded past the first consumed
// rolls of the seed's stream.
func NewRollerAt(seed int64, consumed int) *DiceRoller {
	r := NewRoller(seed)
	for i := 0; i < consumed; i++ {
		r.D6()
	}
	return r
}

// D6 rolls one six-sided die.
func (r *DiceRoller) D6() int {
	r.consumed++
	return 1 + r.rng.Intn(6)
}

// Consumed returns how many rolls have been drawn from the stream.
func (r *DiceRoller) Consumed() int {
	return r.consumed
}

// ScriptRoller replays a fixed sequence of rolls. Used by tests and replay
// verification; panics if the script runs out, so a missing roll fails loudly.
type ScriptRoller struct {
	rolls []int
	next  int
}

// NewScriptRoller creates a ScriptRoller from the given roll sequence.
func NewScriptRoller(rolls ...int) *ScriptRoller {
	return &ScriptRoller{rolls: rolls}
}

// D6 returns the next scripted roll.
func (r *ScriptRoller) D6() int {
	if r.next >= len(r.rolls) {
		panic("engine: scripted roll sequence exhausted")
	}
	v := r.rolls[r.next]
	r.next++
	return v
}

// Remaining returns how many scripted rolls are left.
func (r *ScriptRoller) Remaining() int {
	return len(r.rolls) - r.next
}

// roll2d6 rolls two dice and sums them (charge distance).
func roll2d6(r Roller) int {
	return r.D6() + r.D6()
}
