package questions

import (
	"fmt"

	"github.com/mcoot/mathlan/internal/model"
)

// Pool names a family of prompts used by the mini-games
type Pool string

const (
	PoolMultiplication Pool = "multiplication"
	PoolDivision       Pool = "division"
	PoolFractions      Pool = "fractions"
	PoolSequence       Pool = "sequence"
	PoolArea           Pool = "area"
)

// Prompt is a free-form question with a single integer answer
type Prompt struct {
	ID     string `json:"id"`
	Text   string `json:"prompt"`
	Answer int    `json:"answer"`
	A      int    `json:"a,omitempty"`
	B      int    `json:"b,omitempty"`
}

// ParsePool returns the named pool, rejecting names no pool answers to
func ParsePool(name string) (Pool, error) {
	switch p := Pool(name); p {
	case PoolMultiplication, PoolDivision, PoolFractions, PoolSequence, PoolArea:
		return p, nil
	}
	return "", fmt.Errorf("%w: unknown prompt pool %q", model.ErrInvalidConfig, name)
}

// GeneratePrompt draws one prompt from the pool. Unknown pools produce area prompts.
func GeneratePrompt(pool Pool, difficulty model.DifficultyConfig, src Source, index int) Prompt {
	switch pool {
	case PoolMultiplication:
		p := Pick(Request{Config: difficulty, Mode: ModeMixed, Source: src})
		return Prompt{
			ID:     fmt.Sprintf("%s-%d-%d-%d", pool, index, p.A, p.B),
			Text:   fmt.Sprintf("%d x %d", p.A, p.B),
			Answer: p.A * p.B,
			A:      p.A,
			B:      p.B,
		}
	case PoolDivision:
		tables := SanitizeTables(difficulty.Tables)
		limit := 9
		if top := tables[len(tables)-1]; top > limit {
			limit = top
		}
		divisor := intn(src, limit) + 1
		quotient := intn(src, limit) + 1
		dividend := divisor * quotient
		return Prompt{
			ID:     fmt.Sprintf("%s-%d-%d-%d", pool, index, dividend, divisor),
			Text:   fmt.Sprintf("%d ÷ %d", dividend, divisor),
			Answer: quotient,
		}
	case PoolFractions:
		denominator := intn(src, 6) + 3
		n1 := intn(src, denominator-1) + 1
		n2 := intn(src, denominator-1) + 1
		return Prompt{
			ID:     fmt.Sprintf("%s-%d-%d-%d-%d", pool, index, n1, n2, denominator),
			Text:   fmt.Sprintf("%d/%d + %d/%d = ?/%d", n1, denominator, n2, denominator, denominator),
			Answer: n1 + n2,
		}
	case PoolSequence:
		start := intn(src, 12) + 2
		step := intn(src, 8) + 2
		return Prompt{
			ID:     fmt.Sprintf("%s-%d-%d-%d", pool, index, start, step),
			Text:   fmt.Sprintf("%d, %d, %d, ?", start, start+step, start+step*2),
			Answer: start + step*3,
		}
	default:
		side := intn(src, 9) + 2
		return Prompt{
			ID:     fmt.Sprintf("%s-%d-%d", PoolArea, index, side),
			Text:   fmt.Sprintf("Area of square with side %d?", side),
			Answer: side * side,
		}
	}
}

// BuildSeededPromptStream returns count prompts from a fresh seeded generator.
// Equal arguments always produce equal streams.
func BuildSeededPromptStream(seed uint32, count int, pool Pool, difficulty model.DifficultyConfig) []Prompt {
	src := NewLCG(seed)
	prompts := make([]Prompt, 0, count)
	for i := 0; i < count; i++ {
		prompts = append(prompts, GeneratePrompt(pool, difficulty, src, i))
	}
	return prompts
}

func intn(src Source, n int) int {
	return int(src.Float64() * float64(n))
}
