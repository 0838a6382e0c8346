// Package protocol defines the messages exchanged between a host and its
// clients, and the discovery announcement packet.
package protocol

import "github.com/mcoot/mathlan/internal/model"

// MessageType is the "type" discriminator carried by every message
type MessageType string

// Client to host
const (
	TypeJoin   MessageType = "join"
	TypeRejoin MessageType = "rejoin"
	TypeReady  MessageType = "ready"
	TypeAnswer MessageType = "answer"
	TypeChat   MessageType = "chat"
	TypePing   MessageType = "ping"
)

// Host to client
const (
	TypeWelcome   MessageType = "welcome"
	TypeLobby     MessageType = "lobby"
	TypeCountdown MessageType = "countdown"
	TypeQuestion  MessageType = "question"
	TypeScore     MessageType = "score"
	TypeResult    MessageType = "result"
	TypeError     MessageType = "error"
	TypePong      MessageType = "pong"
)

// MaxChatLength is the number of characters kept from a chat message
const MaxChatLength = 120

// Message is implemented by every wire message
type Message interface {
	MessageType() MessageType
}

// Client to host messages

type Join struct {
	Type  MessageType `json:"type"`
	Name  string      `json:"name"`
	Color string      `json:"color"`
}

type Rejoin struct {
	Type     MessageType    `json:"type"`
	PlayerID model.PlayerID `json:"playerId"`
}

type Ready struct {
	Type  MessageType `json:"type"`
	Ready bool        `json:"ready"`
}

type Answer struct {
	Type       MessageType `json:"type"`
	QuestionID string      `json:"questionId"`
	Value      int         `json:"value"`
	ResponseMs float64     `json:"responseMs"`
}

// ChatRequest is a chat line sent by a client
type ChatRequest struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

type Ping struct {
	Type MessageType `json:"type"`
	At   int64       `json:"at"`
}

// Host to client messages

type Welcome struct {
	Type     MessageType      `json:"type"`
	PlayerID model.PlayerID   `json:"playerId"`
	RoomCode model.RoomCode   `json:"roomCode"`
	Lobby    model.LobbyState `json:"lobby"`
}

type Lobby struct {
	Type MessageType `json:"type"`
	model.LobbyPayload
}

type Countdown struct {
	Type MessageType `json:"type"`
	model.CountdownPayload
}

type Question struct {
	Type MessageType `json:"type"`
	model.QuestionPayload
}

type Score struct {
	Type MessageType `json:"type"`
	model.ScorePayload
}

type Result struct {
	Type MessageType `json:"type"`
	model.ResultPayload
}

// Chat is a chat line relayed to every client
type Chat struct {
	Type MessageType `json:"type"`
	model.ChatPayload
}

type Error struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

type Pong struct {
	Type MessageType `json:"type"`
	At   int64       `json:"at"`
}

func (Join) MessageType() MessageType        { return TypeJoin }
func (Rejoin) MessageType() MessageType      { return TypeRejoin }
func (Ready) MessageType() MessageType       { return TypeReady }
func (Answer) MessageType() MessageType      { return TypeAnswer }
func (ChatRequest) MessageType() MessageType { return TypeChat }
func (Ping) MessageType() MessageType        { return TypePing }
func (Welcome) MessageType() MessageType     { return TypeWelcome }
func (Lobby) MessageType() MessageType       { return TypeLobby }
func (Countdown) MessageType() MessageType   { return TypeCountdown }
func (Question) MessageType() MessageType    { return TypeQuestion }
func (Score) MessageType() MessageType       { return TypeScore }
func (Result) MessageType() MessageType      { return TypeResult }
func (Chat) MessageType() MessageType        { return TypeChat }
func (Error) MessageType() MessageType       { return TypeError }
func (Pong) MessageType() MessageType        { return TypePong }

// Constructors set the type discriminator

func NewJoin(name, color string) Join {
	return Join{Type: TypeJoin, Name: name, Color: color}
}

func NewRejoin(id model.PlayerID) Rejoin {
	return Rejoin{Type: TypeRejoin, PlayerID: id}
}

func NewReady(ready bool) Ready {
	return Ready{Type: TypeReady, Ready: ready}
}

func NewAnswer(questionID string, value int, responseMs float64) Answer {
	return Answer{Type: TypeAnswer, QuestionID: questionID, Value: value, ResponseMs: responseMs}
}

func NewChatRequest(text string) ChatRequest {
	return ChatRequest{Type: TypeChat, Text: text}
}

func NewPing(at int64) Ping {
	return Ping{Type: TypePing, At: at}
}

func NewWelcome(id model.PlayerID, lobby model.LobbyState) Welcome {
	return Welcome{Type: TypeWelcome, PlayerID: id, RoomCode: lobby.Room.RoomCode, Lobby: lobby}
}

func NewLobby(lobby model.LobbyState) Lobby {
	return Lobby{Type: TypeLobby, LobbyPayload: model.LobbyPayload{Lobby: lobby}}
}

func NewCountdown(p model.CountdownPayload) Countdown {
	return Countdown{Type: TypeCountdown, CountdownPayload: p}
}

func NewQuestion(p model.QuestionPayload) Question {
	return Question{Type: TypeQuestion, QuestionPayload: p}
}

func NewScore(p model.ScorePayload) Score {
	return Score{Type: TypeScore, ScorePayload: p}
}

func NewResult(p model.ResultPayload) Result {
	return Result{Type: TypeResult, ResultPayload: p}
}

func NewChat(p model.ChatPayload) Chat {
	return Chat{Type: TypeChat, ChatPayload: p}
}

func NewError(message string) Error {
	return Error{Type: TypeError, Message: message}
}

func NewPong(at int64) Pong {
	return Pong{Type: TypePong, At: at}
}

// TruncateChat limits chat text to MaxChatLength characters
func TruncateChat(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxChatLength {
		return text
	}
	return string(runes[:MaxChatLength])
}
