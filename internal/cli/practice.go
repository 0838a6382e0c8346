package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/mathlan/internal/dependencies/clock"
	"github.com/mcoot/mathlan/internal/factory"
	"github.com/mcoot/mathlan/internal/model"
	"github.com/mcoot/mathlan/internal/services/practice"
	"github.com/mcoot/mathlan/internal/services/questions"
	"github.com/mcoot/mathlan/internal/storage"
)

const weakestShown = 5

func newPracticeCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Drill times tables on your own",
		Long: `Run a single-player drill with the same question rules and scoring as a
hosted round. With --profile, weak facts are loaded before the drill and
saved after it, so later drills favour the facts you miss.

--pool picks a mini-game prompt pool (division, fractions, sequence, area)
instead of times tables. Prompt drills use a seeded stream and do not
record weak facts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := factory.New(e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close(context.Background()) }()

			poolName, _ := cmd.Flags().GetString("pool")
			pool, err := questions.ParsePool(poolName)
			if err != nil {
				return err
			}

			mp := e.cfg.Multiplayer()
			cfg := practice.Config{
				Difficulty:    mp.Difficulty,
				Points:        e.cfg.HostConfig().Points,
				QuestionCount: mp.QuestionCount,
			}
			p := &practiceRun{
				store:   app.Storage,
				profile: e.cfg.Host.ProfileKey,
				clock:   app.Clock,
				out:     e.out,
				logger:  e.logger,
			}

			if pool != questions.PoolMultiplication {
				seed := uint32(app.Random.Intn(math.MaxInt32))
				if mp.Seed != nil {
					seed = *mp.Seed
				}
				return p.runPrompts(cfg, pool, seed, cmd.InOrStdin())
			}

			var src questions.Source = questions.Unseeded(app.Random)
			if mp.Seed != nil {
				src = questions.NewLCG(*mp.Seed)
			}
			return p.run(cmd.Context(), cfg, src, cmd.InOrStdin())
		},
	}

	flags := cmd.Flags()
	flags.String("profile", "", "Profile key for loading and saving weak facts")
	flags.String("difficulty", "medium", "Difficulty preset: easy, medium, hard, custom")
	flags.IntSlice("tables", nil, "Times tables to draw from (overrides the preset)")
	flags.Int("questions", 20, "Questions in the drill")
	flags.Int64("seed", -1, "Question seed (-1 for a random drill)")
	flags.String("pool", string(questions.PoolMultiplication), "Prompt pool: multiplication, division, fractions, sequence, area")

	bindFlag(e.v, flags, "host.profile_key", "profile")
	bindFlag(e.v, flags, "game.difficulty", "difficulty")
	bindFlag(e.v, flags, "game.tables", "tables")
	bindFlag(e.v, flags, "game.question_count", "questions")
	bindFlag(e.v, flags, "game.seed", "seed")

	return cmd
}

type practiceRun struct {
	store   storage.Storage
	profile string
	clock   clock.Clock
	out     *Output
	logger  *slog.Logger
}

// run asks questions until the drill ends or input runs out, then prints the
// summary and saves the weak facts
func (p *practiceRun) run(ctx context.Context, cfg practice.Config, src questions.Source, in io.Reader) error {
	weak, err := p.loadWeakFacts(ctx)
	if err != nil {
		return err
	}
	drill, err := practice.New(cfg, weak, p.clock, src)
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for !drill.Done() {
		q, err := drill.Next()
		if err != nil {
			return err
		}
		p.out.PrintMessage(fmt.Sprintf("Question %d/%d: %d x %d = ?", drill.Asked(), drill.Total(), q.A, q.B))
		shownAt := p.clock.Now()

		value, ok := p.readAnswer(scanner)
		if !ok {
			break
		}
		record, delta, err := drill.Answer(value, float64(p.clock.Now().Sub(shownAt).Milliseconds()))
		if err != nil {
			return err
		}
		if record.Correct {
			p.out.PrintMessage(fmt.Sprintf("Correct! %+d", delta))
			continue
		}
		p.out.PrintMessage(fmt.Sprintf("%d x %d = %d (%+d)", q.A, q.B, q.Answer, delta))
		if cfg.Difficulty.HintsEnabled {
			hint := questions.QuestionHint(q.A, q.B)
			p.out.PrintMessage(fmt.Sprintf("Hint: %s, or %s", hint.Groups, hint.RepeatedAddition))
		}
	}

	p.out.Print(PracticeSummary{Stats: drill.Summary(), Weakest: drill.Weakest(weakestShown)})
	return p.saveWeakFacts(ctx, drill.WeakFacts())
}

// runPrompts works through a seeded prompt stream from a mini-game pool
func (p *practiceRun) runPrompts(cfg practice.Config, pool questions.Pool, seed uint32, in io.Reader) error {
	drill, err := practice.NewPromptDrill(cfg, pool, seed, p.clock)
	if err != nil {
		return err
	}
	p.logger.Debug("prompt drill started", slog.String("pool", string(pool)), slog.Any("seed", seed))

	scanner := bufio.NewScanner(in)
	for !drill.Done() {
		prompt, err := drill.Next()
		if err != nil {
			return err
		}
		p.out.PrintMessage(fmt.Sprintf("Question %d/%d: %s", drill.Asked(), drill.Total(), prompt.Text))
		shownAt := p.clock.Now()

		value, ok := p.readAnswer(scanner)
		if !ok {
			break
		}
		record, delta, err := drill.Answer(value, float64(p.clock.Now().Sub(shownAt).Milliseconds()))
		if err != nil {
			return err
		}
		if record.Correct {
			p.out.PrintMessage(fmt.Sprintf("Correct! %+d", delta))
		} else {
			p.out.PrintMessage(fmt.Sprintf("Answer: %d (%+d)", prompt.Answer, delta))
		}
	}

	p.out.Print(PracticeSummary{Stats: drill.Summary()})
	return nil
}

// readAnswer reads lines until one parses as a number. It returns false when
// input ends.
func (p *practiceRun) readAnswer(scanner *bufio.Scanner) (int, bool) {
	for scanner.Scan() {
		value, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err == nil {
			return value, true
		}
		p.out.PrintMessage("Enter a number")
	}
	return 0, false
}

func (p *practiceRun) loadWeakFacts(ctx context.Context) (model.FactStatsMap, error) {
	if p.profile == "" {
		return nil, nil
	}
	facts, err := p.store.GetWeakFacts(ctx, p.profile)
	if errors.Is(err, model.ErrWeakFactsNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading weak facts: %w", err)
	}
	return facts, nil
}

func (p *practiceRun) saveWeakFacts(ctx context.Context, facts model.FactStatsMap) error {
	if p.profile == "" || len(facts) == 0 {
		return nil
	}
	if err := p.store.SaveWeakFacts(ctx, p.profile, facts); err != nil {
		return fmt.Errorf("saving weak facts: %w", err)
	}
	p.logger.Debug("weak facts saved", slog.String("profile", p.profile), slog.Int("facts", len(facts)))
	return nil
}
