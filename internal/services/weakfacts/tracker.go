package weakfacts

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/mcoot/mathlan/internal/model"
)

// MaxLatencyWeight caps how much slow answers can add to a fact's weight
const MaxLatencyWeight = 2.0

// Key returns the normalized fact key, smaller operand first
func Key(a, b int) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%dx%d", a, b)
}

// Weight returns the adaptive selection weight for a fact pair.
// Facts that have never been attempted weigh 1.
func Weight(stats model.FactStatsMap, a, b int) float64 {
	s, ok := stats[Key(a, b)]
	if !ok || s.Attempts == 0 {
		return 1
	}
	return 1 + (1-s.Accuracy())*4 + math.Min(s.AverageMs/5000, MaxLatencyWeight)
}

// Tracker maintains per-fact attempt statistics.
// It is not safe for concurrent use; the owner serializes access.
type Tracker struct {
	stats model.FactStatsMap
}

// NewTracker creates a tracker seeded with existing statistics
func NewTracker(initial model.FactStatsMap) *Tracker {
	stats := make(model.FactStatsMap, len(initial))
	for k, v := range initial {
		stats[k] = v
	}
	return &Tracker{stats: stats}
}

// Record folds one answer into the statistics for the fact a x b
func (t *Tracker) Record(a, b int, correct bool, responseMs float64, at time.Time) model.WeakFactStats {
	key := Key(a, b)
	s := t.stats[key]
	s.Attempts++
	if correct {
		s.Correct++
	}
	s.AverageMs = (s.AverageMs*float64(s.Attempts-1) + responseMs) / float64(s.Attempts)
	s.LastSeen = at.UnixMilli()
	t.stats[key] = s
	return s
}

// Get returns the statistics for a fact pair
func (t *Tracker) Get(a, b int) (model.WeakFactStats, bool) {
	s, ok := t.stats[Key(a, b)]
	return s, ok
}

// Weight returns the adaptive weight for a fact pair
func (t *Tracker) Weight(a, b int) float64 {
	return Weight(t.stats, a, b)
}

// View returns the live map for read-only use by the question generator
func (t *Tracker) View() model.FactStatsMap {
	return t.stats
}

// Snapshot returns a copy of the statistics
func (t *Tracker) Snapshot() model.FactStatsMap {
	return t.stats.Clone()
}

// Len returns the number of facts with statistics
func (t *Tracker) Len() int {
	return len(t.stats)
}

// Fact is a keyed statistics entry
type Fact struct {
	Key    string              `json:"key"`
	Weight float64             `json:"weight"`
	Stats  model.WeakFactStats `json:"stats"`
}

// Weakest returns up to n attempted facts ordered by descending weight
func (t *Tracker) Weakest(n int) []Fact {
	facts := make([]Fact, 0, len(t.stats))
	for key, s := range t.stats {
		if s.Attempts == 0 {
			continue
		}
		var a, b int
		if _, err := fmt.Sscanf(key, "%dx%d", &a, &b); err != nil {
			continue
		}
		facts = append(facts, Fact{Key: key, Weight: Weight(t.stats, a, b), Stats: s})
	}
	sort.Slice(facts, func(i, j int) bool {
		if facts[i].Weight != facts[j].Weight {
			return facts[i].Weight > facts[j].Weight
		}
		return facts[i].Key < facts[j].Key
	})
	if n >= 0 && len(facts) > n {
		facts = facts[:n]
	}
	return facts
}
