package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcoot/mathlan/internal/model"
	"github.com/mcoot/mathlan/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Data lives for the lifetime of the process.
type Storage struct {
	mu sync.RWMutex

	results   map[string]*model.RoundResult
	weakFacts map[string]model.FactStatsMap
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		results:   make(map[string]*model.RoundResult),
		weakFacts: make(map[string]model.FactStatsMap),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Round result operations

func (s *Storage) SaveRoundResult(ctx context.Context, result *model.RoundResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *result
	stored.Players = model.ClonePlayers(result.Players)
	s.results[result.ID] = &stored
	return nil
}

func (s *Storage) GetRoundResult(ctx context.Context, id string) (*model.RoundResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[id]
	if !ok {
		return nil, model.ErrResultNotFound
	}
	out := *result
	return &out, nil
}

func (s *Storage) ListRoundResults(ctx context.Context, limit int) ([]*model.RoundResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]*model.RoundResult, 0, len(s.results))
	for _, r := range s.results {
		out := *r
		results = append(results, &out)
	}
	sort.Slice(results, func(i, j int) bool {
		if !results[i].EndedAt.Equal(results[j].EndedAt) {
			return results[i].EndedAt.After(results[j].EndedAt)
		}
		return results[i].ID < results[j].ID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Weak fact operations

func (s *Storage) SaveWeakFacts(ctx context.Context, profile string, facts model.FactStatsMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weakFacts[profile] = facts.Clone()
	return nil
}

func (s *Storage) GetWeakFacts(ctx context.Context, profile string) (model.FactStatsMap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	facts, ok := s.weakFacts[profile]
	if !ok {
		return nil, model.ErrWeakFactsNotFound
	}
	return facts.Clone(), nil
}

func (s *Storage) Close() error {
	return nil
}
