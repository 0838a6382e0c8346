package model

// Question is a single multiplication fact put to every player.
// Questions are generated by the host only and never change once created.
type Question struct {
	ID        string `json:"id"`
	A         int    `json:"a"`
	B         int    `json:"b"`
	Answer    int    `json:"answer"`
	CreatedAt int64  `json:"createdAt"` // unix millis
}

// WeakFactStats accumulates how a fact pair has been answered
type WeakFactStats struct {
	Attempts  int     `json:"attempts"`
	Correct   int     `json:"correct"`
	AverageMs float64 `json:"averageMs"`
	LastSeen  int64   `json:"lastSeen"` // unix millis
}

// Accuracy returns correct/attempts, or 0 with no attempts
func (s WeakFactStats) Accuracy() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Attempts)
}

// FactStatsMap is keyed by the normalized fact key ("3x7", smaller operand first)
type FactStatsMap map[string]WeakFactStats

// Clone returns a copy of the map
func (m FactStatsMap) Clone() FactStatsMap {
	out := make(FactStatsMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
