package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/mathlan/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.ResultTTL = time.Hour

	s.storage = NewWithClient(client, cfg)
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) result(id string, endedAt time.Time) *model.RoundResult {
	return &model.RoundResult{
		ID:        id,
		RoomCode:  "ABC234",
		HostName:  "Host",
		Mode:      model.GameModeParty,
		Seed:      42,
		WinnerID:  "p-1",
		Players:   []model.PlayerState{{ID: "p-1", Name: "Ada", Score: 120, Correct: 2}},
		Questions: 3,
		StartedAt: endedAt.Add(-time.Minute).UTC(),
		EndedAt:   endedAt.UTC(),
	}
}

// Round result tests

func (s *StorageSuite) TestSaveAndGetRoundResult() {
	r := s.result("r1", time.Unix(1700000000, 0))
	s.Require().NoError(s.storage.SaveRoundResult(s.ctx, r))

	got, err := s.storage.GetRoundResult(s.ctx, "r1")
	s.Require().NoError(err)
	s.Equal(r, got)
}

func (s *StorageSuite) TestRoundResultHasTTL() {
	s.Require().NoError(s.storage.SaveRoundResult(s.ctx, s.result("r1", time.Unix(1700000000, 0))))

	s.Equal(time.Hour, s.mini.TTL("mathlan:round:r1"))
	s.True(s.mini.Exists("mathlan:idx:rounds"))
}

func (s *StorageSuite) TestGetRoundResultNotFound() {
	_, err := s.storage.GetRoundResult(s.ctx, "missing")
	s.ErrorIs(err, model.ErrResultNotFound)
}

func (s *StorageSuite) TestListRoundResultsNewestFirst() {
	s.Require().NoError(s.storage.SaveRoundResult(s.ctx, s.result("old", time.Unix(100, 0))))
	s.Require().NoError(s.storage.SaveRoundResult(s.ctx, s.result("new", time.Unix(300, 0))))
	s.Require().NoError(s.storage.SaveRoundResult(s.ctx, s.result("mid", time.Unix(200, 0))))

	results, err := s.storage.ListRoundResults(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(results, 2)
	s.Equal("new", results[0].ID)
	s.Equal("mid", results[1].ID)
}

func (s *StorageSuite) TestListRoundResultsSkipsExpired() {
	s.Require().NoError(s.storage.SaveRoundResult(s.ctx, s.result("a", time.Unix(100, 0))))
	s.Require().NoError(s.storage.SaveRoundResult(s.ctx, s.result("b", time.Unix(200, 0))))

	s.mini.FastForward(2 * time.Hour)
	s.Require().NoError(s.storage.SaveRoundResult(s.ctx, s.result("c", time.Unix(300, 0))))

	results, err := s.storage.ListRoundResults(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(results, 1)
	s.Equal("c", results[0].ID)

	members, err := s.mini.ZMembers("mathlan:idx:rounds")
	s.Require().NoError(err)
	s.Equal([]string{"c"}, members)
}

func (s *StorageSuite) TestListRoundResultsEmpty() {
	results, err := s.storage.ListRoundResults(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(results)
}

// Weak fact tests

func (s *StorageSuite) TestSaveAndGetWeakFacts() {
	facts := model.FactStatsMap{
		"3x4": {Attempts: 2, Correct: 1, AverageMs: 1500, LastSeen: 1700000000000},
		"7x8": {Attempts: 5, Correct: 2, AverageMs: 4200},
	}
	s.Require().NoError(s.storage.SaveWeakFacts(s.ctx, "host", facts))

	got, err := s.storage.GetWeakFacts(s.ctx, "host")
	s.Require().NoError(err)
	s.Equal(facts, got)
	s.Equal(time.Duration(0), s.mini.TTL("mathlan:weakfacts:host"))
}

func (s *StorageSuite) TestGetWeakFactsNotFound() {
	_, err := s.storage.GetWeakFacts(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrWeakFactsNotFound)
}

func (s *StorageSuite) TestKeyPrefixIsConfigurable() {
	client := redis.NewClient(&redis.Options{Addr: s.mini.Addr()})
	cfg := DefaultConfig()
	cfg.KeyPrefix = "classroom2"
	other := NewWithClient(client, cfg)
	defer func() { _ = other.Close() }()

	s.Require().NoError(other.SaveWeakFacts(s.ctx, "host", model.FactStatsMap{}))
	s.True(s.mini.Exists("classroom2:weakfacts:host"))
	s.False(s.mini.Exists("mathlan:weakfacts:host"))
}
