package round

import (
	"time"

	"github.com/mcoot/mathlan/internal/model"
	"github.com/mcoot/mathlan/internal/services/lobby"
	"github.com/mcoot/mathlan/internal/services/questions"
	"github.com/mcoot/mathlan/internal/services/scoring"
	"github.com/mcoot/mathlan/internal/services/weakfacts"
)

// DefaultCountdown is the delay between start and the first question
const DefaultCountdown = 3200 * time.Millisecond

// State is the scheduler's position in the round
type State string

const (
	StateIdle      State = "idle"
	StateCountdown State = "countdown"
	StateActive    State = "active"
	StateFinished  State = "finished"
)

// Config holds the per-round settings
type Config struct {
	Game      model.MultiplayerConfig
	Countdown time.Duration
}

// Step is the outcome of advancing the round: exactly one field is set
type Step struct {
	Question *model.QuestionPayload
	Result   *model.ResultPayload
}

// Scheduler sequences countdown, questions and results for one round.
// It holds no timers; the owner calls Advance when its timers fire, and all
// methods must be called from the owner's goroutine.
type Scheduler struct {
	cfg       Config
	roster    *lobby.Roster
	tracker   *weakfacts.Tracker
	generator *questions.Generator
	scoring   scoring.ServiceInterface

	state             State
	seed              uint32
	source            questions.Source
	queue      []model.Question
	index      int
	current    *model.Question
	startedAt  time.Time
	gameEndsAt time.Time
}

// New creates an idle Scheduler
func New(
	cfg Config,
	roster *lobby.Roster,
	tracker *weakfacts.Tracker,
	generator *questions.Generator,
	scoringService scoring.ServiceInterface,
) *Scheduler {
	if cfg.Countdown <= 0 {
		cfg.Countdown = DefaultCountdown
	}
	return &Scheduler{
		cfg:       cfg,
		roster:    roster,
		tracker:   tracker,
		generator: generator,
		scoring:   scoringService,
		state:     StateIdle,
	}
}

// Start enters the countdown and pre-generates the question queue from the
// seed. It returns the time the first question is due.
func (s *Scheduler) Start(now time.Time, seed uint32) (time.Time, error) {
	switch s.state {
	case StateCountdown, StateActive:
		return time.Time{}, model.ErrGameInProgress
	case StateFinished:
		return time.Time{}, model.ErrSessionFinished
	}

	s.seed = seed
	s.source = questions.NewLCG(seed)
	s.startedAt = now
	s.gameEndsAt = now.Add(time.Duration(s.cfg.Game.TimerSeconds) * time.Second)
	s.index = 0
	s.current = nil

	// Every queued question is drawn with an empty recency list so the
	// sequence depends only on the seed, difficulty and weak facts.
	count := s.cfg.Game.QuestionCount
	s.queue = make([]model.Question, 0, count)
	for i := 0; i < count; i++ {
		s.queue = append(s.queue, s.generate(nil))
	}

	s.state = StateCountdown
	return now.Add(s.cfg.Countdown), nil
}

func (s *Scheduler) mode() questions.Mode {
	if s.cfg.Game.Difficulty.Adaptive {
		return questions.ModeAdaptive
	}
	return questions.ModeMixed
}

func (s *Scheduler) generate(recent []string) model.Question {
	return s.generator.Generate(questions.Request{
		Config:     s.cfg.Game.Difficulty,
		WeakFacts:  s.tracker.View(),
		RecentKeys: recent,
		Mode:       s.mode(),
		Source:     s.source,
	})
}

// Advance is called when the countdown elapses and on every cadence tick.
// The first call always pushes question 1; later calls end the round once
// time is up or the question budget is spent.
func (s *Scheduler) Advance(now time.Time) Step {
	switch s.state {
	case StateCountdown:
		if s.cfg.Game.QuestionCount <= 0 {
			return s.finish()
		}
		s.state = StateActive
		return s.next(now)
	case StateActive:
		if !now.Before(s.gameEndsAt) || s.index >= s.cfg.Game.QuestionCount {
			return s.finish()
		}
		return s.next(now)
	default:
		return Step{}
	}
}

func (s *Scheduler) next(now time.Time) Step {
	var q model.Question
	if s.index < len(s.queue) {
		q = s.queue[s.index]
	} else {
		var recent []string
		if s.current != nil {
			recent = []string{questions.Pair{A: s.current.A, B: s.current.B}.Key()}
		}
		q = s.generate(recent)
		s.queue = append(s.queue, q)
	}
	s.index++
	s.current = &q

	return Step{Question: &model.QuestionPayload{
		Question:  q,
		Index:     s.index,
		Total:     s.cfg.Game.QuestionCount,
		StartedAt: now.UnixMilli(),
	}}
}

func (s *Scheduler) finish() Step {
	s.state = StateFinished
	s.current = nil
	players := s.roster.Players()
	return Step{Result: &model.ResultPayload{
		WinnerID: s.scoring.DetermineWinner(players),
		Players:  players,
	}}
}

// SubmitAnswer scores an answer to the active question. Answers for any other
// question or from unknown players are ignored and report false. A player may
// answer the active question again after a wrong attempt; every attempt is
// scored.
func (s *Scheduler) SubmitAnswer(id model.PlayerID, questionID string, value int, responseMs float64, now time.Time) (model.ScoreUpdate, bool) {
	if s.state != StateActive || s.current == nil || s.current.ID != questionID {
		return model.ScoreUpdate{}, false
	}
	player := s.roster.Player(id)
	if player == nil {
		return model.ScoreUpdate{}, false
	}

	if responseMs < 0 {
		responseMs = 0
	}
	correct := value == s.current.Answer
	delta := s.scoring.ApplyAnswer(player, correct, responseMs, s.cfg.Game.Difficulty.WrongPenalty)
	s.tracker.Record(s.current.A, s.current.B, correct, responseMs, now)

	return model.ScoreUpdate{
		PlayerID: id,
		Delta:    delta,
		Correct:  correct,
	}, true
}

// Cadence returns the interval between questions
func (s *Scheduler) Cadence() time.Duration {
	return time.Duration(s.cfg.Game.Difficulty.Cadence()) * time.Second
}

// Countdown returns the delay before the first question
func (s *Scheduler) Countdown() time.Duration {
	return s.cfg.Countdown
}

func (s *Scheduler) State() State          { return s.state }
func (s *Scheduler) Seed() uint32          { return s.seed }
func (s *Scheduler) Index() int            { return s.index }
func (s *Scheduler) Total() int            { return s.cfg.Game.QuestionCount }
func (s *Scheduler) StartedAt() time.Time  { return s.startedAt }
func (s *Scheduler) GameEndsAt() time.Time { return s.gameEndsAt }

// Current returns the active question, if any
func (s *Scheduler) Current() (model.Question, bool) {
	if s.current == nil {
		return model.Question{}, false
	}
	return *s.current, true
}

// Queue returns a copy of the generated questions
func (s *Scheduler) Queue() []model.Question {
	out := make([]model.Question, len(s.queue))
	copy(out, s.queue)
	return out
}
