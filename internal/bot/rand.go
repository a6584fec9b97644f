package bot

import "math/rand"

// policyRng is the per-policy random source. Two policies built with the
// same seed replay identical decisions, which keeps bot matches and
// benchmarks reproducible. Seed 0 selects a time-based source.
type policyRng struct {
	r *rand.Rand
}

func newPolicyRng(seed int64) policyRng {
	if seed == 0 {
		seed = rand.Int63()
	}
	return policyRng{r: rand.New(rand.NewSource(seed))}
}

func (p policyRng) Intn(n int) int       { return p.r.Intn(n) }
func (p policyRng) Float64() float64     { return p.r.Float64() }
func (p policyRng) Perm(n int) []int     { return p.r.Perm(n) }
