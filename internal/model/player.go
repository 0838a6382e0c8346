package model

import (
	"net"
	"strconv"
)

// PlayerID uniquely identifies a player within a room
type PlayerID string

// LocalPlayerID is the roster id of the operator playing on the host machine
const LocalPlayerID PlayerID = "host-local"

// DefaultLocalColor is the color given to the host-local player
const DefaultLocalColor = "#3a8dde"

// PlayerState is the host-owned record for one participant.
// Score may go negative; records are never removed, only marked disconnected.
type PlayerState struct {
	ID         PlayerID `json:"id"`
	Name       string   `json:"name"`
	Color      string   `json:"color"`
	Score      int      `json:"score"`
	Correct    int      `json:"correct"`
	Wrong      int      `json:"wrong"`
	Streak     int      `json:"streak"`
	BestStreak int      `json:"bestStreak"`
	AvgMs      float64  `json:"avgMs"`
	Ready      bool     `json:"ready"`
	Connected  bool     `json:"connected"`
}

// Attempts returns the total number of answers the player has submitted
func (p *PlayerState) Attempts() int {
	return p.Correct + p.Wrong
}

// JoinHostPort formats an address the same way everywhere in the module
func JoinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
