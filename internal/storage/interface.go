package storage

import (
	"context"

	"github.com/mcoot/mathlan/internal/model"
)

// Storage is the sink for what a session produces for the profile layer:
// finished round results and per-profile weak-fact statistics
type Storage interface {
	// Round results
	SaveRoundResult(ctx context.Context, result *model.RoundResult) error
	GetRoundResult(ctx context.Context, id string) (*model.RoundResult, error)
	// ListRoundResults returns up to limit results, most recently ended first
	ListRoundResults(ctx context.Context, limit int) ([]*model.RoundResult, error)

	// Weak facts
	SaveWeakFacts(ctx context.Context, profile string, facts model.FactStatsMap) error
	GetWeakFacts(ctx context.Context, profile string) (model.FactStatsMap, error)

	Close() error
}
