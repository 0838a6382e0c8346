package practice

import (
	"fmt"

	"github.com/mcoot/mathlan/internal/dependencies/clock"
	"github.com/mcoot/mathlan/internal/model"
	"github.com/mcoot/mathlan/internal/services/questions"
	"github.com/mcoot/mathlan/internal/services/scoring"
)

// PromptDrill works through a seeded prompt stream from one pool. Answers are
// scored like a table drill but prompts are not tracked as weak facts.
type PromptDrill struct {
	cfg     Config
	clock   clock.Clock
	prompts []questions.Prompt
	scoring *scoring.Service

	player  model.PlayerState
	answers []model.AnswerRecord
	asked   int
	pending bool
}

// NewPromptDrill builds the full prompt stream up front, so the same seed and
// pool always ask the same prompts in the same order
func NewPromptDrill(cfg Config, pool questions.Pool, seed uint32, clk clock.Clock) (*PromptDrill, error) {
	if cfg.QuestionCount <= 0 {
		return nil, fmt.Errorf("%w: question count must be positive", model.ErrInvalidConfig)
	}
	return &PromptDrill{
		cfg:     cfg,
		clock:   clk,
		prompts: questions.BuildSeededPromptStream(seed, cfg.QuestionCount, pool, cfg.Difficulty),
		scoring: scoring.New(cfg.Points),
		player:  model.PlayerState{ID: model.LocalPlayerID},
	}, nil
}

// Next returns the pending prompt, moving on once the previous one was
// answered
func (d *PromptDrill) Next() (questions.Prompt, error) {
	if d.pending {
		return d.prompts[d.asked-1], nil
	}
	if d.Done() {
		return questions.Prompt{}, model.ErrSessionFinished
	}
	d.asked++
	d.pending = true
	return d.prompts[d.asked-1], nil
}

// Answer scores value against the pending prompt
func (d *PromptDrill) Answer(value int, responseMs float64) (model.AnswerRecord, int, error) {
	if !d.pending {
		return model.AnswerRecord{}, 0, model.ErrNoQuestion
	}
	d.pending = false
	p := d.prompts[d.asked-1]

	if responseMs < 0 {
		responseMs = 0
	}
	correct := value == p.Answer
	delta := d.scoring.ApplyAnswer(&d.player, correct, responseMs, d.cfg.Difficulty.WrongPenalty)

	record := model.AnswerRecord{
		QuestionID:  p.ID,
		Value:       value,
		ResponseMs:  responseMs,
		SubmittedAt: d.clock.Now().UnixMilli(),
		Correct:     correct,
	}
	d.answers = append(d.answers, record)
	return record, delta, nil
}

func (d *PromptDrill) Done() bool { return !d.pending && d.asked >= len(d.prompts) }
func (d *PromptDrill) Asked() int { return d.asked }
func (d *PromptDrill) Total() int { return len(d.prompts) }

// Summary aggregates the answers given so far
func (d *PromptDrill) Summary() model.RoundStats {
	return scoring.SummarizeRound(d.answers, d.player.BestStreak, d.player.Score)
}
