package questions

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/mcoot/mathlan/internal/dependencies/clock"
	"github.com/mcoot/mathlan/internal/model"
	"github.com/mcoot/mathlan/internal/services/weakfacts"
)

// RecentWindow is how many recent pair keys are kept out of the candidate pool
const RecentWindow = 8

// Mode controls how a candidate pair is chosen
type Mode string

const (
	ModeAdaptive Mode = "adaptive"
	ModeMixed    Mode = "mixed"
)

var defaultTables = []int{1, 2, 3, 4, 5, 6, 7, 8, 9}

// Pair is an ordered operand pair
type Pair struct {
	A int
	B int
}

// Key returns the literal recency key for the pair, operands in order
func (p Pair) Key() string {
	return fmt.Sprintf("%dx%d", p.A, p.B)
}

// Request holds the inputs to a single generation
type Request struct {
	Config     model.DifficultyConfig
	WeakFacts  model.FactStatsMap
	RecentKeys []string
	Mode       Mode
	Source     Source
}

// Generator builds questions and stamps them with unique ids
type Generator struct {
	clock    clock.Clock
	fallback Source
}

// New creates a Generator. fallback is used when a request carries no Source.
func New(clk clock.Clock, fallback Source) *Generator {
	return &Generator{
		clock:    clk,
		fallback: fallback,
	}
}

// Generate picks a pair and wraps it in a Question
func (g *Generator) Generate(req Request) model.Question {
	if req.Source == nil {
		req.Source = g.fallback
	}
	p := Pick(req)
	now := g.clock.Now()
	return model.Question{
		ID:        fmt.Sprintf("%d-%s-%d-%d", now.UnixMilli(), uuid.NewString()[:8], p.A, p.B),
		A:         p.A,
		B:         p.B,
		Answer:    p.A * p.B,
		CreatedAt: now.UnixMilli(),
	}
}

// Pick chooses the next operand pair. It never fails: when the recency
// filter would empty the pool, the full pool is used instead.
func Pick(req Request) Pair {
	pairs := CandidatePairs(req.Config.Tables)
	pool := excludeRecent(pairs, req.RecentKeys)

	if req.Mode == ModeAdaptive || req.Config.Adaptive {
		weights := make([]float64, len(pool))
		for i, p := range pool {
			weights[i] = weakfacts.Weight(req.WeakFacts, p.A, p.B)
		}
		return PickWeighted(pool, weights, req.Source)
	}
	return PickUniform(pool, req.Source)
}

// SanitizeTables dedupes, sorts and bounds tables to 1..12, defaulting to 1..9
func SanitizeTables(tables []int) []int {
	seen := make(map[int]bool, len(tables))
	out := make([]int, 0, len(tables))
	for _, t := range tables {
		if t < 1 || t > 12 || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		return append([]int(nil), defaultTables...)
	}
	sort.Ints(out)
	return out
}

// CandidatePairs returns every (a, b) with a in tables and b in 1..max(tables)
func CandidatePairs(tables []int) []Pair {
	values := SanitizeTables(tables)
	maxFactor := values[len(values)-1]
	pairs := make([]Pair, 0, len(values)*maxFactor)
	for _, a := range values {
		for b := 1; b <= maxFactor; b++ {
			pairs = append(pairs, Pair{A: a, B: b})
		}
	}
	return pairs
}

func excludeRecent(pairs []Pair, recent []string) []Pair {
	if len(recent) > RecentWindow {
		recent = recent[len(recent)-RecentWindow:]
	}
	if len(recent) == 0 {
		return pairs
	}
	skip := make(map[string]bool, len(recent))
	for _, k := range recent {
		skip[k] = true
	}
	pool := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		if !skip[p.Key()] {
			pool = append(pool, p)
		}
	}
	if len(pool) == 0 {
		return pairs
	}
	return pool
}

// PickUniform returns a uniformly chosen item
func PickUniform[T any](items []T, src Source) T {
	idx := int(src.Float64() * float64(len(items)))
	if idx >= len(items) {
		idx = len(items) - 1
	}
	return items[idx]
}

// PickWeighted draws from the cumulative weight distribution. The last item
// is returned if rounding leaves the roll positive.
func PickWeighted[T any](items []T, weights []float64, src Source) T {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	roll := src.Float64() * total
	for i, item := range items {
		roll -= weights[i]
		if roll <= 0 {
			return item
		}
	}
	return items[len(items)-1]
}

// Hint describes two ways of thinking about a fact
type Hint struct {
	RepeatedAddition string `json:"repeatedAddition"`
	Groups           string `json:"groups"`
}

// QuestionHint returns the hint text for a x b
func QuestionHint(a, b int) Hint {
	return Hint{
		RepeatedAddition: fmt.Sprintf("%d + %d + %d ... (%d times)", a, a, a, b),
		Groups:           fmt.Sprintf("%d groups of %d", b, a),
	}
}
