package scoring

import (
	"math"
	"sort"

	"github.com/mcoot/mathlan/internal/model"
)

// SpeedBonusWindowMs is the response time at which the speed bonus reaches zero
const SpeedBonusWindowMs = 3000

// CalculateAnswerPoints returns the score delta for one answer.
// streak is the player's streak after this answer has been counted.
func CalculateAnswerPoints(correct bool, responseMs float64, streak int, points model.PointsConfig, wrongPenalty int) int {
	if !correct {
		return -wrongPenalty
	}
	speedBonus := math.Max(0, roundHalfUp((SpeedBonusWindowMs-responseMs)*points.SpeedMultiplier))
	streakBonus := roundHalfUp(float64(streak) * points.StreakMultiplier)
	return points.BasePoints + int(speedBonus) + int(streakBonus)
}

// roundHalfUp rounds .5 towards positive infinity
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}

// SummarizeRound aggregates an ordered list of answers
func SummarizeRound(answers []model.AnswerRecord, bestStreak, score int) model.RoundStats {
	stats := model.RoundStats{
		BestStreak: bestStreak,
		Score:      score,
	}
	totalMs := 0.0
	for _, a := range answers {
		if a.Correct {
			stats.Correct++
		} else {
			stats.Wrong++
		}
		totalMs += a.ResponseMs
	}
	if len(answers) > 0 {
		stats.Accuracy = math.Min(100, math.Max(0, float64(stats.Correct)/float64(len(answers))*100))
		stats.AverageResponseMs = totalMs / float64(len(answers))
	}
	for i := len(answers) - 1; i >= 0 && answers[i].Correct; i-- {
		stats.Streak++
	}
	return stats
}

// Service applies scoring to player records
type Service struct {
	points model.PointsConfig
}

// New creates a new scoring Service
func New(points model.PointsConfig) *Service {
	return &Service{
		points: points,
	}
}

// Points returns the configured weights
func (s *Service) Points() model.PointsConfig {
	return s.points
}

// ApplyAnswer updates a player's counters, streak, latency average and score,
// and returns the score delta
func (s *Service) ApplyAnswer(player *model.PlayerState, correct bool, responseMs float64, wrongPenalty int) int {
	if correct {
		player.Correct++
		player.Streak++
		if player.Streak > player.BestStreak {
			player.BestStreak = player.Streak
		}
	} else {
		player.Wrong++
		player.Streak = 0
	}

	n := float64(player.Attempts())
	player.AvgMs = (player.AvgMs*(n-1) + responseMs) / n

	delta := CalculateAnswerPoints(correct, responseMs, player.Streak, s.points, wrongPenalty)
	player.Score += delta
	return delta
}

// DetermineWinner returns the highest-scoring player. Ties go to whoever is
// first in roster order; an empty roster has no winner.
func (s *Service) DetermineWinner(players []model.PlayerState) model.PlayerID {
	if len(players) == 0 {
		return ""
	}
	ranked := Rank(players)
	return ranked[0].ID
}

// Rank returns a copy of players sorted by score descending, keeping roster
// order between equal scores
func Rank(players []model.PlayerState) []model.PlayerState {
	ranked := model.ClonePlayers(players)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// Interface for dependency injection
type ServiceInterface interface {
	ApplyAnswer(player *model.PlayerState, correct bool, responseMs float64, wrongPenalty int) int
	DetermineWinner(players []model.PlayerState) model.PlayerID
	Points() model.PointsConfig
}

var _ ServiceInterface = (*Service)(nil)
