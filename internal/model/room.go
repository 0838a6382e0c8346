package model

import "time"

// RoomCode is the short human-readable identifier announced for a hosted room
type RoomCode string

// GameMode selects which game the room plays
type GameMode string

const (
	GameModeDuel     GameMode = "duel"
	GameModeParty    GameMode = "party"
	GameModeNitro    GameMode = "nitro"
	GameModeSerpents GameMode = "serpents"
)

// Valid returns true for the known game modes
func (m GameMode) Valid() bool {
	switch m {
	case GameModeDuel, GameModeParty, GameModeNitro, GameModeSerpents:
		return true
	default:
		return false
	}
}

// RoomInfo describes a hosted room. It is fixed for the lifetime of a session
// and doubles as the discovery packet body.
type RoomInfo struct {
	RoomCode   RoomCode `json:"roomCode"`
	HostName   string   `json:"hostName"`
	HostIP     string   `json:"hostIp"`
	WsPort     int      `json:"wsPort"`
	Mode       GameMode `json:"mode"`
	MaxPlayers int      `json:"maxPlayers"`
}

// DiscoveredHost is a RoomInfo seen on the local network by a client
type DiscoveredHost struct {
	RoomInfo
	SeenAt time.Time `json:"seenAt"`
}

// Key returns the address key used to dedupe announcements
func (h DiscoveredHost) Key() string {
	return h.RoomInfo.Address()
}

// Address returns host:port for the session endpoint
func (r RoomInfo) Address() string {
	return JoinHostPort(r.HostIP, r.WsPort)
}
