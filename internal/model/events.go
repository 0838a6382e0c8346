package model

import "time"

// EventType identifies the type of event published to the UI layer
type EventType string

const (
	// Discovery events
	EventHosts EventType = "hosts"

	// Host lifecycle events
	EventHostStarted EventType = "host-started"
	EventHostStopped EventType = "host-stopped"

	// Session events, published by the host and mirrored by clients
	EventLobby     EventType = "lobby"
	EventCountdown EventType = "countdown"
	EventQuestion  EventType = "question"
	EventScore     EventType = "score"
	EventResult    EventType = "result"
	EventChat      EventType = "chat"
	EventError     EventType = "error"

	// Client events
	EventJoined EventType = "joined"
	EventPong   EventType = "pong"
)

// Event is the envelope for everything the core tells the UI
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// HostsPayload lists hosts currently visible on the network
type HostsPayload struct {
	Hosts []DiscoveredHost `json:"hosts"`
}

// HostStartedPayload is published once the session is listening
type HostStartedPayload struct {
	Lobby  LobbyState `json:"lobby"`
	HostIP string     `json:"hostIp"`
}

// LobbyPayload carries a full lobby snapshot
type LobbyPayload struct {
	Lobby LobbyState `json:"lobby"`
}

// CountdownPayload announces when the first question will arrive
type CountdownPayload struct {
	StartsAt int64 `json:"startsAt"` // unix millis
}

// QuestionPayload carries the active question
type QuestionPayload struct {
	Question  Question `json:"question"`
	Index     int      `json:"index"` // 1-based
	Total     int      `json:"total"`
	StartedAt int64    `json:"startedAt"` // unix millis
}

// ScorePayload follows every scored answer
type ScorePayload struct {
	Players []PlayerState `json:"players"`
	Latest  *ScoreUpdate  `json:"latest,omitempty"`
}

// ResultPayload ends a round
type ResultPayload struct {
	WinnerID PlayerID      `json:"winnerId,omitempty"`
	Players  []PlayerState `json:"players"`
}

// ChatPayload is a chat line relayed by the host
type ChatPayload struct {
	PlayerID PlayerID `json:"playerId"`
	Text     string   `json:"text"`
	At       int64    `json:"at"` // unix millis
}

// ErrorPayload is a user-visible rejection or failure
type ErrorPayload struct {
	Message string `json:"message"`
}

// JoinedPayload is published when the host welcomes this client
type JoinedPayload struct {
	PlayerID PlayerID   `json:"playerId"`
	RoomCode RoomCode   `json:"roomCode"`
	Lobby    LobbyState `json:"lobby"`
}

// PongPayload reports a liveness round trip
type PongPayload struct {
	At  int64         `json:"at"`
	RTT time.Duration `json:"rtt"`
}
