package questions

import "github.com/mcoot/mathlan/internal/dependencies/random"

// Source yields floats in [0, 1). Generators draw every random decision from
// a Source so a seeded run can be replayed exactly.
type Source interface {
	Float64() float64
}

// LCG is a 32-bit linear congruential generator. Every client seeded with the
// same value produces the same sequence, which keeps LAN races in step.
type LCG struct {
	state uint32
}

// NewLCG creates a generator from a seed
func NewLCG(seed uint32) *LCG {
	return &LCG{state: seed}
}

// Next advances the state and returns it
func (l *LCG) Next() uint32 {
	l.state = l.state*1664525 + 1013904223
	return l.state
}

// Float64 returns the next value normalized to [0, 1)
func (l *LCG) Float64() float64 {
	return float64(l.Next()) / 4294967296.0
}

// Unseeded adapts a random.Random into a Source for non-reproducible draws
func Unseeded(r random.Random) Source {
	return r
}

var _ Source = (*LCG)(nil)
