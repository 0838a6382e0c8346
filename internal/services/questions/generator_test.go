package questions

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/mathlan/internal/dependencies/mocks"
	"github.com/mcoot/mathlan/internal/model"
)

// sequenceSource replays fixed floats, repeating the last one
type sequenceSource struct {
	values []float64
	i      int
}

func (s *sequenceSource) Float64() float64 {
	v := s.values[s.i]
	if s.i < len(s.values)-1 {
		s.i++
	}
	return v
}

type GeneratorSuite struct {
	suite.Suite
	clock     *mocks.MockClock
	generator *Generator
}

func TestGeneratorSuite(t *testing.T) {
	suite.Run(t, new(GeneratorSuite))
}

func (s *GeneratorSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.generator = New(s.clock, NewLCG(1))
}

func (s *GeneratorSuite) TestSanitizeTables() {
	s.Equal([]int{2, 5, 12}, SanitizeTables([]int{12, 5, 5, 0, 13, 2, -1}))
	s.Equal([]int{1, 2, 3, 4, 5, 6, 7, 8, 9}, SanitizeTables(nil))
	s.Equal([]int{1, 2, 3, 4, 5, 6, 7, 8, 9}, SanitizeTables([]int{0, 40}))
}

func (s *GeneratorSuite) TestCandidatePairsSpanMaxTable() {
	pairs := CandidatePairs([]int{3, 5})
	s.Len(pairs, 10)
	s.Equal(Pair{A: 3, B: 1}, pairs[0])
	s.Equal(Pair{A: 5, B: 5}, pairs[9])
}

func (s *GeneratorSuite) TestQuestionFields() {
	q := s.generator.Generate(Request{
		Config: model.DifficultyConfig{Tables: []int{7}},
		Mode:   ModeMixed,
	})

	s.Equal(7, q.A)
	s.Equal(q.A*q.B, q.Answer)
	s.Equal(s.clock.Now().UnixMilli(), q.CreatedAt)
	s.True(strings.HasSuffix(q.ID, "-7-"+strconv.Itoa(q.B)))
}

func (s *GeneratorSuite) TestIDsAreUnique() {
	seen := make(map[string]bool)
	req := Request{Config: model.DifficultyConfig{Tables: []int{2}}, Mode: ModeMixed, Source: NewLCG(9)}
	for i := 0; i < 200; i++ {
		q := s.generator.Generate(req)
		s.False(seen[q.ID], "duplicate id %s", q.ID)
		seen[q.ID] = true
	}
}

func (s *GeneratorSuite) TestRecentKeysAreAvoided() {
	recent := []string{"6x1", "6x2", "6x3", "6x4", "6x5", "6x6", "6x7", "6x8"}
	for seed := uint32(0); seed < 50; seed++ {
		p := Pick(Request{
			Config:     model.DifficultyConfig{Tables: []int{6, 7, 8, 9}},
			RecentKeys: recent,
			Mode:       ModeMixed,
			Source:     NewLCG(seed),
		})
		s.NotContains(recent, p.Key())
	}
}

func (s *GeneratorSuite) TestOnlyLastEightRecentKeysCount() {
	// 1x1 is the ninth most recent key, so it is back in the pool
	recent := []string{"1x1", "2x1", "2x2", "1x2", "3x1", "3x2", "3x3", "1x3", "2x3"}
	p := Pick(Request{
		Config:     model.DifficultyConfig{Tables: []int{1, 2, 3}},
		RecentKeys: recent,
		Mode:       ModeMixed,
		Source:     &sequenceSource{values: []float64{0}},
	})
	s.Equal(Pair{A: 1, B: 1}, p)
}

func (s *GeneratorSuite) TestRecencyDroppedWhenPoolWouldEmpty() {
	p := Pick(Request{
		Config:     model.DifficultyConfig{Tables: []int{1}},
		RecentKeys: []string{"1x1"},
		Mode:       ModeMixed,
		Source:     NewLCG(3),
	})
	s.Equal(Pair{A: 1, B: 1}, p)
}

func (s *GeneratorSuite) TestSeededDeterminism() {
	cfg := model.DefaultDifficulty(model.TierHard)
	weak := model.FactStatsMap{"7x8": {Attempts: 4, Correct: 1, AverageMs: 6000}}

	run := func() []Pair {
		src := NewLCG(20240101)
		var recent []string
		var out []Pair
		for i := 0; i < 30; i++ {
			p := Pick(Request{Config: cfg, WeakFacts: weak, RecentKeys: recent, Mode: ModeAdaptive, Source: src})
			recent = append(recent, p.Key())
			out = append(out, p)
		}
		return out
	}

	s.Equal(run(), run())
}

func (s *GeneratorSuite) TestAdaptiveFavoursWeakFacts() {
	cfg := model.DifficultyConfig{Tables: []int{2}, Adaptive: true}
	// pool: 2x1, 2x2 with weights 1 and 7 (accuracy 0, 10s average)
	weak := model.FactStatsMap{"2x2": {Attempts: 3, Correct: 0, AverageMs: 10000}}

	p := Pick(Request{Config: cfg, WeakFacts: weak, Source: &sequenceSource{values: []float64{0.2}}})
	s.Equal(Pair{A: 2, B: 2}, p)

	p = Pick(Request{Config: cfg, WeakFacts: weak, Source: &sequenceSource{values: []float64{0.1}}})
	s.Equal(Pair{A: 2, B: 1}, p)
}

func (s *GeneratorSuite) TestPickWeighted() {
	items := []string{"a", "b", "c"}
	weights := []float64{1, 2, 1}

	s.Equal("a", PickWeighted(items, weights, &sequenceSource{values: []float64{0}}))
	s.Equal("b", PickWeighted(items, weights, &sequenceSource{values: []float64{0.5}}))
	s.Equal("c", PickWeighted(items, weights, &sequenceSource{values: []float64{0.99}}))
}

func (s *GeneratorSuite) TestPickUniform() {
	items := []int{10, 20, 30, 40}
	s.Equal(10, PickUniform(items, &sequenceSource{values: []float64{0}}))
	s.Equal(30, PickUniform(items, &sequenceSource{values: []float64{0.5}}))
	s.Equal(40, PickUniform(items, &sequenceSource{values: []float64{0.999}}))
}

func (s *GeneratorSuite) TestFallbackSourceUsedWhenNoneGiven() {
	rnd := mocks.NewMockRandom()
	rnd.QueueFloat(0.99)
	gen := New(s.clock, Unseeded(rnd))

	q := gen.Generate(Request{Config: model.DifficultyConfig{Tables: []int{3}}, Mode: ModeMixed})
	s.Equal(3, q.B)
}

func (s *GeneratorSuite) TestQuestionHint() {
	h := QuestionHint(4, 3)
	s.Equal("4 + 4 + 4 ... (3 times)", h.RepeatedAddition)
	s.Equal("3 groups of 4", h.Groups)
}
