// Package practice runs a single-player drill on the same generator,
// weak-fact tracker and scoring rules a hosted round uses.
package practice

import (
	"fmt"

	"github.com/mcoot/mathlan/internal/dependencies/clock"
	"github.com/mcoot/mathlan/internal/model"
	"github.com/mcoot/mathlan/internal/services/questions"
	"github.com/mcoot/mathlan/internal/services/scoring"
	"github.com/mcoot/mathlan/internal/services/weakfacts"
)

// Config configures one drill
type Config struct {
	Difficulty    model.DifficultyConfig
	Points        model.PointsConfig
	QuestionCount int
}

// DefaultConfig returns a twenty-question medium drill
func DefaultConfig() Config {
	return Config{
		Difficulty:    model.DefaultDifficulty(model.TierMedium),
		Points:        model.DefaultPointsConfig(),
		QuestionCount: 20,
	}
}

// Drill asks questions one at a time. It is not safe for concurrent use.
type Drill struct {
	cfg       Config
	clock     clock.Clock
	source    questions.Source
	generator *questions.Generator
	tracker   *weakfacts.Tracker
	scoring   *scoring.Service

	player  model.PlayerState
	answers []model.AnswerRecord
	recent  []string
	current *model.Question
	asked   int
}

// New creates a drill seeded with previously recorded weak facts
func New(cfg Config, weak model.FactStatsMap, clk clock.Clock, src questions.Source) (*Drill, error) {
	if cfg.QuestionCount <= 0 {
		return nil, fmt.Errorf("%w: question count must be positive", model.ErrInvalidConfig)
	}
	return &Drill{
		cfg:       cfg,
		clock:     clk,
		source:    src,
		generator: questions.New(clk, src),
		tracker:   weakfacts.NewTracker(weak),
		scoring:   scoring.New(cfg.Points),
		player:    model.PlayerState{ID: model.LocalPlayerID},
	}, nil
}

// Next returns the pending question, generating a new one if the last was
// answered. It fails with ErrSessionFinished once the drill is over.
func (d *Drill) Next() (model.Question, error) {
	if d.current != nil {
		return *d.current, nil
	}
	if d.Done() {
		return model.Question{}, model.ErrSessionFinished
	}

	mode := questions.ModeMixed
	if d.cfg.Difficulty.Adaptive {
		mode = questions.ModeAdaptive
	}
	q := d.generator.Generate(questions.Request{
		Config:     d.cfg.Difficulty,
		WeakFacts:  d.tracker.View(),
		RecentKeys: d.recent,
		Mode:       mode,
		Source:     d.source,
	})
	d.recent = append(d.recent, questions.Pair{A: q.A, B: q.B}.Key())
	if len(d.recent) > questions.RecentWindow {
		d.recent = d.recent[len(d.recent)-questions.RecentWindow:]
	}
	d.asked++
	d.current = &q
	return q, nil
}

// Answer scores value against the pending question and returns the record
// together with the score delta
func (d *Drill) Answer(value int, responseMs float64) (model.AnswerRecord, int, error) {
	if d.current == nil {
		return model.AnswerRecord{}, 0, model.ErrNoQuestion
	}
	q := *d.current
	d.current = nil

	if responseMs < 0 {
		responseMs = 0
	}
	now := d.clock.Now()
	correct := value == q.Answer
	delta := d.scoring.ApplyAnswer(&d.player, correct, responseMs, d.cfg.Difficulty.WrongPenalty)
	d.tracker.Record(q.A, q.B, correct, responseMs, now)

	record := model.AnswerRecord{
		QuestionID:  q.ID,
		Value:       value,
		ResponseMs:  responseMs,
		SubmittedAt: now.UnixMilli(),
		Correct:     correct,
	}
	d.answers = append(d.answers, record)
	return record, delta, nil
}

// Done reports whether every question has been asked and answered
func (d *Drill) Done() bool {
	return d.current == nil && d.asked >= d.cfg.QuestionCount
}

func (d *Drill) Asked() int { return d.asked }
func (d *Drill) Total() int { return d.cfg.QuestionCount }

// Player returns the running score record
func (d *Drill) Player() model.PlayerState {
	return d.player
}

// Summary aggregates the answers given so far
func (d *Drill) Summary() model.RoundStats {
	return scoring.SummarizeRound(d.answers, d.player.BestStreak, d.player.Score)
}

// WeakFacts returns a copy of the tracker statistics, including those
// loaded at construction
func (d *Drill) WeakFacts() model.FactStatsMap {
	return d.tracker.Snapshot()
}

// Weakest returns up to n facts most in need of practice
func (d *Drill) Weakest(n int) []weakfacts.Fact {
	return d.tracker.Weakest(n)
}
