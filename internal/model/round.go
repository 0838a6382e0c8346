package model

import "time"

// AnswerRecord is one answer as seen by the player who gave it
type AnswerRecord struct {
	QuestionID  string  `json:"questionId"`
	Value       int     `json:"value"`
	ResponseMs  float64 `json:"responseMs"`
	SubmittedAt int64   `json:"submittedAt"`
	Correct     bool    `json:"correct"`
}

// RoundStats summarizes a finished round for one player
type RoundStats struct {
	Correct           int     `json:"correct"`
	Wrong             int     `json:"wrong"`
	Accuracy          float64 `json:"accuracy"`
	AverageResponseMs float64 `json:"averageResponseMs"`
	Streak            int     `json:"streak"`
	BestStreak        int     `json:"bestStreak"`
	Score             int     `json:"score"`
}

// ScoreUpdate describes the most recent scored answer
type ScoreUpdate struct {
	PlayerID PlayerID `json:"playerId"`
	Delta    int      `json:"delta"`
	Correct  bool     `json:"correct"`
}

// RoundResult is the record handed to the result sink when a round ends
type RoundResult struct {
	ID        string        `json:"id"`
	RoomCode  RoomCode      `json:"roomCode"`
	HostName  string        `json:"hostName"`
	Mode      GameMode      `json:"mode"`
	Seed      uint32        `json:"seed"`
	WinnerID  PlayerID      `json:"winnerId,omitempty"`
	Players   []PlayerState `json:"players"`
	Questions int           `json:"questions"`
	StartedAt time.Time     `json:"startedAt"`
	EndedAt   time.Time     `json:"endedAt"`
}
