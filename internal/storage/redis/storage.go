package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/mathlan/internal/model"
	"github.com/mcoot/mathlan/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultConfig().KeyPrefix
	}
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Round result operations

func (s *Storage) SaveRoundResult(ctx context.Context, result *model.RoundResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	// Use pipeline for atomic save + index update
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.roundKey(result.ID), data, s.cfg.ResultTTL)
	pipe.ZAdd(ctx, s.roundsIndexKey(), redis.Z{
		Score:  float64(result.EndedAt.UnixMilli()),
		Member: result.ID,
	})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetRoundResult(ctx context.Context, id string) (*model.RoundResult, error) {
	data, err := s.client.Get(ctx, s.roundKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrResultNotFound
		}
		return nil, err
	}

	var result model.RoundResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Storage) ListRoundResults(ctx context.Context, limit int) ([]*model.RoundResult, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.client.ZRevRange(ctx, s.roundsIndexKey(), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.RoundResult{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.roundKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	results := make([]*model.RoundResult, 0, len(values))
	var expired []any
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			// Expired by TTL; drop the dangling index entry
			expired = append(expired, ids[i])
			continue
		}
		var result model.RoundResult
		if err := json.Unmarshal([]byte(str), &result); err != nil {
			return nil, err
		}
		results = append(results, &result)
	}
	if len(expired) > 0 {
		_ = s.client.ZRem(ctx, s.roundsIndexKey(), expired...).Err()
	}
	return results, nil
}

// Weak fact operations

func (s *Storage) SaveWeakFacts(ctx context.Context, profile string, facts model.FactStatsMap) error {
	data, err := json.Marshal(facts)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.weakFactsKey(profile), data, 0).Err() // No TTL
}

func (s *Storage) GetWeakFacts(ctx context.Context, profile string) (model.FactStatsMap, error) {
	data, err := s.client.Get(ctx, s.weakFactsKey(profile)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrWeakFactsNotFound
		}
		return nil, err
	}

	facts := model.FactStatsMap{}
	if err := json.Unmarshal(data, &facts); err != nil {
		return nil, err
	}
	return facts, nil
}
