package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/mathlan/internal/model"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
}

func (s *StorageSuite) result(id string, endedAt time.Time) *model.RoundResult {
	return &model.RoundResult{
		ID:       id,
		RoomCode: "ABC234",
		WinnerID: "p-1",
		Players:  []model.PlayerState{{ID: "p-1", Score: 100}},
		EndedAt:  endedAt,
	}
}

// Round result tests

func (s *StorageSuite) TestSaveAndGetRoundResult() {
	r := s.result("r1", time.Unix(100, 0))
	s.Require().NoError(s.storage.SaveRoundResult(s.ctx, r))

	got, err := s.storage.GetRoundResult(s.ctx, "r1")
	s.Require().NoError(err)
	s.Equal(r.WinnerID, got.WinnerID)
	s.Equal(r.Players, got.Players)
}

func (s *StorageSuite) TestSavedResultIsIsolatedFromCaller() {
	r := s.result("r1", time.Unix(100, 0))
	s.Require().NoError(s.storage.SaveRoundResult(s.ctx, r))
	r.Players[0].Score = -1

	got, err := s.storage.GetRoundResult(s.ctx, "r1")
	s.Require().NoError(err)
	s.Equal(100, got.Players[0].Score)
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

	all, err := s.storage.ListRoundResults(s.ctx, 0)
	s.Require().NoError(err)
	s.Len(all, 3)
}

// Weak fact tests

func (s *StorageSuite) TestSaveAndGetWeakFacts() {
	facts := model.FactStatsMap{"3x4": {Attempts: 2, Correct: 1, AverageMs: 1500}}
	s.Require().NoError(s.storage.SaveWeakFacts(s.ctx, "host", facts))

	facts["3x4"] = model.WeakFactStats{}
	got, err := s.storage.GetWeakFacts(s.ctx, "host")
	s.Require().NoError(err)
	s.Equal(2, got["3x4"].Attempts)
}

func (s *StorageSuite) TestGetWeakFactsNotFound() {
	_, err := s.storage.GetWeakFacts(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrWeakFactsNotFound)
}
