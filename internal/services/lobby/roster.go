package lobby

import (
	"fmt"

	"github.com/mcoot/mathlan/internal/dependencies/random"
	"github.com/mcoot/mathlan/internal/model"
)

const (
	RoomCodeLength   = 6
	RoomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	PlayerIDLength   = 6
	PlayerIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	PlayerIDPrefix   = "p-"

	// DefaultColor is given to players that join without one
	DefaultColor = "#7c3aed"

	maxIDAttempts = 16
)

// Phase is the lifecycle stage of a room
type Phase string

const (
	PhaseForming  Phase = "forming"
	PhaseStarted  Phase = "started"
	PhaseFinished Phase = "finished"
)

// NewRoomCode generates a room code from the unambiguous alphabet
func NewRoomCode(rnd random.Random) model.RoomCode {
	return model.RoomCode(rnd.String(RoomCodeLength, RoomCodeAlphabet))
}

// Roster is the lobby state machine for one room. Players are kept in join
// order and are never removed. It is not safe for concurrent use.
type Roster struct {
	room    model.RoomInfo
	players []model.PlayerState
	phase   Phase
	random  random.Random
}

// NewRoster creates a roster in the forming phase
func NewRoster(room model.RoomInfo, rnd random.Random) *Roster {
	return &Roster{
		room:    room,
		players: []model.PlayerState{},
		phase:   PhaseForming,
		random:  rnd,
	}
}

// Room returns the fixed room metadata
func (r *Roster) Room() model.RoomInfo {
	return r.room
}

// Phase returns the current phase
func (r *Roster) Phase() Phase {
	return r.phase
}

// Started reports whether a round is in progress
func (r *Roster) Started() bool {
	return r.phase == PhaseStarted
}

// AddLocalPlayer adds the host operator. The local player is always connected,
// starts ready and does not take a network seat.
func (r *Roster) AddLocalPlayer(name, color string) model.PlayerState {
	if p := r.Player(model.LocalPlayerID); p != nil {
		return *p
	}
	if color == "" {
		color = model.DefaultLocalColor
	}
	p := model.PlayerState{
		ID:        model.LocalPlayerID,
		Name:      name,
		Color:     color,
		Ready:     true,
		Connected: true,
	}
	r.players = append(r.players, p)
	return p
}

// Join admits a new network player
func (r *Roster) Join(name, color string) (model.PlayerState, error) {
	switch r.phase {
	case PhaseStarted:
		return model.PlayerState{}, model.ErrGameInProgress
	case PhaseFinished:
		return model.PlayerState{}, model.ErrSessionFinished
	}
	if r.room.MaxPlayers > 0 && r.SeatCount() >= r.room.MaxPlayers {
		return model.PlayerState{}, model.ErrRoomFull
	}
	if color == "" {
		color = DefaultColor
	}

	p := model.PlayerState{
		ID:        r.newPlayerID(),
		Name:      name,
		Color:     color,
		Connected: true,
	}
	r.players = append(r.players, p)
	return p, nil
}

func (r *Roster) newPlayerID() model.PlayerID {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		suffix := r.random.String(PlayerIDLength, PlayerIDAlphabet)
		if suffix == "" {
			break
		}
		id := model.PlayerID(PlayerIDPrefix + suffix)
		if r.Player(id) == nil {
			return id
		}
	}
	// Sequential ids once the random source stops producing usable values
	for n := len(r.players) + 1; ; n++ {
		id := model.PlayerID(fmt.Sprintf("%s%d", PlayerIDPrefix, n))
		if r.Player(id) == nil {
			return id
		}
	}
}

// Rejoin re-attaches an existing player record. Unknown ids return false.
func (r *Roster) Rejoin(id model.PlayerID) (model.PlayerState, bool) {
	p := r.Player(id)
	if p == nil || id == model.LocalPlayerID {
		return model.PlayerState{}, false
	}
	p.Connected = true
	return *p, true
}

// SetReady sets a player's ready flag. Returns false for unknown players.
func (r *Roster) SetReady(id model.PlayerID, ready bool) bool {
	p := r.Player(id)
	if p == nil {
		return false
	}
	p.Ready = ready
	return true
}

// SetConnected marks a player connected or disconnected
func (r *Roster) SetConnected(id model.PlayerID, connected bool) bool {
	p := r.Player(id)
	if p == nil {
		return false
	}
	p.Connected = connected
	return true
}

// Start moves the room from forming to started. At least one player must be
// both ready and connected.
func (r *Roster) Start() error {
	switch r.phase {
	case PhaseStarted:
		return model.ErrGameInProgress
	case PhaseFinished:
		return model.ErrSessionFinished
	}
	if r.ReadyCount() == 0 {
		return model.ErrNoReadyPlayers
	}
	r.phase = PhaseStarted
	return nil
}

// Finish ends the round. The room does not reopen for joins.
func (r *Roster) Finish() {
	r.phase = PhaseFinished
}

// Player returns a mutable pointer to a player, or nil
func (r *Roster) Player(id model.PlayerID) *model.PlayerState {
	for i := range r.players {
		if r.players[i].ID == id {
			return &r.players[i]
		}
	}
	return nil
}

// Players returns a copy of the roster in join order
func (r *Roster) Players() []model.PlayerState {
	return model.ClonePlayers(r.players)
}

// SeatCount returns the number of network players, connected or not
func (r *Roster) SeatCount() int {
	n := 0
	for _, p := range r.players {
		if p.ID != model.LocalPlayerID {
			n++
		}
	}
	return n
}

// ReadyCount returns the number of players that are ready and connected
func (r *Roster) ReadyCount() int {
	n := 0
	for _, p := range r.players {
		if p.Ready && p.Connected {
			n++
		}
	}
	return n
}

// Snapshot returns the full replicated lobby state
func (r *Roster) Snapshot() model.LobbyState {
	return model.LobbyState{
		Room:    r.room,
		Players: r.Players(),
		Started: r.Started(),
	}
}
