package round

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/mathlan/internal/dependencies/mocks"
	"github.com/mcoot/mathlan/internal/model"
	"github.com/mcoot/mathlan/internal/services/lobby"
	"github.com/mcoot/mathlan/internal/services/questions"
	"github.com/mcoot/mathlan/internal/services/scoring"
	"github.com/mcoot/mathlan/internal/services/weakfacts"
)

type SchedulerSuite struct {
	suite.Suite
	clock   *mocks.MockClock
	random  *mocks.MockRandom
	roster  *lobby.Roster
	tracker *weakfacts.Tracker
	alice   model.PlayerState
	bob     model.PlayerState
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerSuite))
}

func (s *SchedulerSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.roster = lobby.NewRoster(model.RoomInfo{RoomCode: "ROOM12", MaxPlayers: 4}, s.random)
	s.tracker = weakfacts.NewTracker(nil)

	s.random.QueueString("aaaaaa", "bbbbbb")
	var err error
	s.alice, err = s.roster.Join("Alice", "")
	s.Require().NoError(err)
	s.bob, err = s.roster.Join("Bob", "")
	s.Require().NoError(err)
	s.roster.SetReady(s.alice.ID, true)
	s.Require().NoError(s.roster.Start())
}

func (s *SchedulerSuite) newScheduler(count, timerSeconds int) *Scheduler {
	difficulty := model.DefaultDifficulty(model.TierMedium)
	difficulty.PerQuestionSeconds = 7
	return New(
		Config{Game: model.MultiplayerConfig{
			TimerSeconds:  timerSeconds,
			QuestionCount: count,
			Difficulty:    difficulty,
		}},
		s.roster,
		s.tracker,
		questions.New(s.clock, questions.NewLCG(0)),
		scoring.New(model.DefaultPointsConfig()),
	)
}

func (s *SchedulerSuite) TestStartEntersCountdown() {
	sched := s.newScheduler(3, 600)
	now := s.clock.Now()

	startsAt, err := sched.Start(now, 42)

	s.Require().NoError(err)
	s.Equal(now.Add(DefaultCountdown), startsAt)
	s.Equal(StateCountdown, sched.State())
	s.Equal(uint32(42), sched.Seed())
	s.Len(sched.Queue(), 3)
	s.Equal(now.Add(600*time.Second), sched.GameEndsAt())
	s.Equal(7*time.Second, sched.Cadence())
}

func (s *SchedulerSuite) TestStartTwiceFails() {
	sched := s.newScheduler(3, 600)
	_, err := sched.Start(s.clock.Now(), 1)
	s.Require().NoError(err)

	_, err = sched.Start(s.clock.Now(), 1)
	s.ErrorIs(err, model.ErrGameInProgress)
}

func (s *SchedulerSuite) TestSameSeedSameQueue() {
	a := s.newScheduler(10, 600)
	b := s.newScheduler(10, 600)
	_, _ = a.Start(s.clock.Now(), 99)
	_, _ = b.Start(s.clock.Now(), 99)

	qa, qb := a.Queue(), b.Queue()
	for i := range qa {
		s.Equal(qa[i].A, qb[i].A)
		s.Equal(qa[i].B, qb[i].B)
		s.NotEqual(qa[i].ID, qb[i].ID)
	}
}

func (s *SchedulerSuite) TestQueueDependsOnlyOnSeed() {
	sched := s.newScheduler(20, 600)
	sched.cfg.Game.Difficulty.Adaptive = true
	_, _ = sched.Start(s.clock.Now(), 1337)

	src := questions.NewLCG(1337)
	for i, q := range sched.Queue() {
		want := questions.Pick(questions.Request{
			Config: sched.cfg.Game.Difficulty,
			Mode:   questions.ModeAdaptive,
			Source: src,
		})
		s.Equal(want, questions.Pair{A: q.A, B: q.B}, "question %d", i+1)
	}
}

func (s *SchedulerSuite) TestFallbackAvoidsPreviousQuestion() {
	sched := s.newScheduler(1, 600)
	sched.cfg.Game.Difficulty.Tables = []int{2}
	_, _ = sched.Start(s.clock.Now(), 3)
	sched.cfg.Game.QuestionCount = 4

	prev := sched.Advance(s.clock.Now()).Question.Question
	for i := 2; i <= 4; i++ {
		step := sched.Advance(s.clock.Now().Add(time.Duration(i) * sched.Cadence()))
		s.Require().NotNil(step.Question)
		q := step.Question.Question
		s.NotEqual(questions.Pair{A: prev.A, B: prev.B}, questions.Pair{A: q.A, B: q.B})
		prev = q
	}
	s.Len(sched.Queue(), 4)
}

func (s *SchedulerSuite) TestRunsThroughQuestionBudget() {
	sched := s.newScheduler(3, 600)
	_, _ = sched.Start(s.clock.Now(), 5)
	queue := sched.Queue()

	s.clock.Advance(DefaultCountdown)
	step := sched.Advance(s.clock.Now())
	s.Require().NotNil(step.Question)
	s.Equal(1, step.Question.Index)
	s.Equal(3, step.Question.Total)
	s.Equal(queue[0].ID, step.Question.Question.ID)
	s.Equal(s.clock.Now().UnixMilli(), step.Question.StartedAt)
	s.Equal(StateActive, sched.State())

	for i := 2; i <= 3; i++ {
		s.clock.Advance(sched.Cadence())
		step = sched.Advance(s.clock.Now())
		s.Require().NotNil(step.Question)
		s.Equal(i, step.Question.Index)
		s.Equal(queue[i-1].ID, step.Question.Question.ID)
	}

	s.clock.Advance(sched.Cadence())
	step = sched.Advance(s.clock.Now())
	s.Nil(step.Question)
	s.Require().NotNil(step.Result)
	s.Len(step.Result.Players, 2)
	s.Equal(StateFinished, sched.State())

	_, ok := sched.Current()
	s.False(ok)
	s.Equal(Step{}, sched.Advance(s.clock.Now()))
}

func (s *SchedulerSuite) TestEndsWhenTimeRunsOut() {
	sched := s.newScheduler(20, 10)
	_, _ = sched.Start(s.clock.Now(), 5)

	s.clock.Advance(DefaultCountdown)
	s.NotNil(sched.Advance(s.clock.Now()).Question)

	s.clock.Advance(sched.Cadence())
	step := sched.Advance(s.clock.Now())
	s.Require().NotNil(step.Result)
	s.Equal(1, sched.Index())
}

func (s *SchedulerSuite) TestAnswersScoreAndTrackFacts() {
	sched := s.newScheduler(3, 600)
	_, _ = sched.Start(s.clock.Now(), 5)
	step := sched.Advance(s.clock.Now().Add(DefaultCountdown))
	q := step.Question.Question

	update, ok := sched.SubmitAnswer(s.alice.ID, q.ID, q.Answer, 900, s.clock.Now())
	s.True(ok)
	s.True(update.Correct)
	s.Equal(s.alice.ID, update.PlayerID)
	s.Equal(50+84+8, update.Delta)
	s.Equal(update.Delta, s.roster.Player(s.alice.ID).Score)

	update, ok = sched.SubmitAnswer(s.bob.ID, q.ID, q.Answer+1, 1500, s.clock.Now())
	s.True(ok)
	s.False(update.Correct)
	s.Equal(-2, update.Delta)
	s.Equal(-2, s.roster.Player(s.bob.ID).Score)

	stats, found := s.tracker.Get(q.A, q.B)
	s.True(found)
	s.Equal(2, stats.Attempts)
	s.Equal(1, stats.Correct)
}

func (s *SchedulerSuite) TestStaleAndUnknownAnswersIgnored() {
	sched := s.newScheduler(3, 600)
	_, _ = sched.Start(s.clock.Now(), 5)

	_, ok := sched.SubmitAnswer(s.alice.ID, sched.Queue()[0].ID, 0, 100, s.clock.Now())
	s.False(ok, "no active question during countdown")

	step := sched.Advance(s.clock.Now())
	q := step.Question.Question

	_, ok = sched.SubmitAnswer(s.alice.ID, "stale-id", q.Answer, 100, s.clock.Now())
	s.False(ok)
	_, ok = sched.SubmitAnswer("p-ghost", q.ID, q.Answer, 100, s.clock.Now())
	s.False(ok)

	s.Equal(0, s.roster.Player(s.alice.ID).Attempts())
	s.Equal(0, s.roster.Player(s.bob.ID).Attempts())
}

func (s *SchedulerSuite) TestRetryAfterWrongAnswerIsScored() {
	sched := s.newScheduler(3, 600)
	_, _ = sched.Start(s.clock.Now(), 5)
	q := sched.Advance(s.clock.Now()).Question.Question

	wrong, ok := sched.SubmitAnswer(s.alice.ID, q.ID, q.Answer+1, 800, s.clock.Now())
	s.Require().True(ok)
	s.Equal(-2, wrong.Delta)

	retry, ok := sched.SubmitAnswer(s.alice.ID, q.ID, q.Answer, 1500, s.clock.Now())
	s.Require().True(ok)
	s.True(retry.Correct)
	s.Equal(50+60+8, retry.Delta)

	alice := s.roster.Player(s.alice.ID)
	s.Equal(1, alice.Correct)
	s.Equal(1, alice.Wrong)
	s.Equal(-2+retry.Delta, alice.Score)

	stats, _ := s.tracker.Get(q.A, q.B)
	s.Equal(2, stats.Attempts)
}

func (s *SchedulerSuite) TestWinnerIsHighestScore() {
	sched := s.newScheduler(1, 600)
	_, _ = sched.Start(s.clock.Now(), 5)
	q := sched.Advance(s.clock.Now()).Question.Question

	_, _ = sched.SubmitAnswer(s.bob.ID, q.ID, q.Answer, 500, s.clock.Now())
	_, _ = sched.SubmitAnswer(s.alice.ID, q.ID, -1, 500, s.clock.Now())

	s.clock.Advance(sched.Cadence())
	result := sched.Advance(s.clock.Now()).Result
	s.Require().NotNil(result)
	s.Equal(s.bob.ID, result.WinnerID)
}

func (s *SchedulerSuite) TestQuestionsAdvanceWithoutAnswers() {
	sched := s.newScheduler(3, 600)
	_, _ = sched.Start(s.clock.Now(), 5)
	first := sched.Advance(s.clock.Now()).Question
	second := sched.Advance(s.clock.Now().Add(sched.Cadence())).Question

	s.Require().NotNil(second)
	s.NotEqual(first.Question.ID, second.Question.ID)
}
