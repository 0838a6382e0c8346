package model

// DifficultyTier names a difficulty preset
type DifficultyTier string

const (
	TierEasy   DifficultyTier = "easy"
	TierMedium DifficultyTier = "medium"
	TierHard   DifficultyTier = "hard"
	TierCustom DifficultyTier = "custom"
)

// DefaultPerQuestionSeconds is the round cadence when none is configured
const DefaultPerQuestionSeconds = 7

// DifficultyConfig controls which facts are asked and how a round is paced
type DifficultyConfig struct {
	Tier               DifficultyTier `json:"tier" mapstructure:"tier"`
	Tables             []int          `json:"tables" mapstructure:"tables"`
	TimerSeconds       int            `json:"timerSeconds,omitempty" mapstructure:"timer_seconds"`
	PerQuestionSeconds int            `json:"perQuestionSeconds,omitempty" mapstructure:"per_question_seconds"`
	HintsEnabled       bool           `json:"hintsEnabled" mapstructure:"hints_enabled"`
	WrongPenalty       int            `json:"wrongPenalty" mapstructure:"wrong_penalty"`
	Rounds             int            `json:"rounds" mapstructure:"rounds"`
	Adaptive           bool           `json:"adaptive" mapstructure:"adaptive"`
}

// Cadence returns the per-question interval in seconds, defaulting when unset
func (d DifficultyConfig) Cadence() int {
	if d.PerQuestionSeconds <= 0 {
		return DefaultPerQuestionSeconds
	}
	return d.PerQuestionSeconds
}

// DefaultDifficulty returns the preset for a tier; unknown tiers get medium
func DefaultDifficulty(tier DifficultyTier) DifficultyConfig {
	switch tier {
	case TierEasy:
		return DifficultyConfig{
			Tier:               TierEasy,
			Tables:             []int{1, 2, 3, 4, 5},
			TimerSeconds:       120,
			PerQuestionSeconds: 12,
			HintsEnabled:       true,
			WrongPenalty:       0,
			Rounds:             1,
			Adaptive:           false,
		}
	case TierHard:
		return DifficultyConfig{
			Tier:               TierHard,
			Tables:             []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
			TimerSeconds:       60,
			PerQuestionSeconds: 5,
			HintsEnabled:       false,
			WrongPenalty:       5,
			Rounds:             2,
			Adaptive:           true,
		}
	default:
		return DifficultyConfig{
			Tier:               TierMedium,
			Tables:             []int{1, 2, 3, 4, 5, 6, 7, 8, 9},
			TimerSeconds:       90,
			PerQuestionSeconds: 8,
			HintsEnabled:       true,
			WrongPenalty:       2,
			Rounds:             1,
			Adaptive:           true,
		}
	}
}

// PointsConfig holds the scoring weights
type PointsConfig struct {
	BasePoints       int     `json:"basePoints" mapstructure:"base_points"`
	SpeedMultiplier  float64 `json:"speedMultiplier" mapstructure:"speed_multiplier"`
	StreakMultiplier float64 `json:"streakMultiplier" mapstructure:"streak_multiplier"`
}

// DefaultPointsConfig returns the weights used for hosted rounds
func DefaultPointsConfig() PointsConfig {
	return PointsConfig{
		BasePoints:       50,
		SpeedMultiplier:  0.04,
		StreakMultiplier: 8,
	}
}

// RaceMode is informational for racing mini-games
type RaceMode string

const (
	RaceModeFair   RaceMode = "fair"
	RaceModeArcade RaceMode = "arcade"
)

// MultiplayerConfig configures one hosted round
type MultiplayerConfig struct {
	TimerSeconds  int              `json:"timerSeconds" mapstructure:"timer_seconds"`
	QuestionCount int              `json:"questionCount" mapstructure:"question_count"`
	Difficulty    DifficultyConfig `json:"difficulty" mapstructure:"difficulty"`
	Seed          *uint32          `json:"seed,omitempty" mapstructure:"seed"`
	RaceMode      RaceMode         `json:"raceMode,omitempty" mapstructure:"race_mode"`
}

// DefaultMultiplayerConfig returns a medium-difficulty round of 20 questions
func DefaultMultiplayerConfig() MultiplayerConfig {
	return MultiplayerConfig{
		TimerSeconds:  180,
		QuestionCount: 20,
		Difficulty:    DefaultDifficulty(TierMedium),
		RaceMode:      RaceModeFair,
	}
}
