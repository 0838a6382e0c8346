package model

// LobbyState is the full replicated view of a room. It is rebroadcast in
// its entirety after every roster mutation.
type LobbyState struct {
	Room    RoomInfo      `json:"room"`
	Players []PlayerState `json:"players"`
	Started bool          `json:"started"`
}

// Clone returns a deep copy safe to hand to other goroutines
func (l LobbyState) Clone() LobbyState {
	players := make([]PlayerState, len(l.Players))
	copy(players, l.Players)
	return LobbyState{
		Room:    l.Room,
		Players: players,
		Started: l.Started,
	}
}

// GetPlayer returns the player with the given id, or nil if not found
func (l *LobbyState) GetPlayer(id PlayerID) *PlayerState {
	for i := range l.Players {
		if l.Players[i].ID == id {
			return &l.Players[i]
		}
	}
	return nil
}

// ClonePlayers copies a player slice
func ClonePlayers(players []PlayerState) []PlayerState {
	out := make([]PlayerState, len(players))
	copy(out, players)
	return out
}
