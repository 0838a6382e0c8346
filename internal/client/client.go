// Package client is the player side of a hosted session. It keeps one
// outbound connection and republishes host messages as events.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/mathlan/internal/dependencies/clock"
	"github.com/mcoot/mathlan/internal/events"
	"github.com/mcoot/mathlan/internal/model"
	"github.com/mcoot/mathlan/internal/protocol"
)

const (
	writeWait          = 10 * time.Second
	DefaultDialTimeout = 5 * time.Second

	disconnectedMessage = "Disconnected from host."
)

// Config holds dialer settings
type Config struct {
	DialTimeout time.Duration
	// Path is the websocket path on the host
	Path string
}

// DefaultConfig dials the host root with a short timeout
func DefaultConfig() Config {
	return Config{
		DialTimeout: DefaultDialTimeout,
		Path:        "/",
	}
}

// Client holds at most one connection to a host
type Client struct {
	config    Config
	publisher events.Publisher
	clock     clock.Clock
	logger    *slog.Logger

	mu       sync.Mutex
	writeMu  sync.Mutex
	conn     *websocket.Conn
	playerID model.PlayerID
	roomCode model.RoomCode
	lobby    model.LobbyState
	question *model.QuestionPayload
}

// New creates a disconnected Client
func New(config Config, publisher events.Publisher, clk clock.Clock, logger *slog.Logger) *Client {
	if config.DialTimeout <= 0 {
		config.DialTimeout = DefaultDialTimeout
	}
	if config.Path == "" {
		config.Path = "/"
	}
	return &Client{
		config:    config,
		publisher: publisher,
		clock:     clk,
		logger:    logger.With(slog.String("component", "client")),
	}
}

// Join connects to a host and asks to join. It returns once the connection
// is open; the welcome arrives later as a joined event.
func (c *Client) Join(ctx context.Context, hostAddress string, port int, name, color string) error {
	return c.connect(ctx, hostAddress, port, protocol.NewJoin(name, color))
}

// Rejoin connects to a host and re-attaches to an existing player record
func (c *Client) Rejoin(ctx context.Context, hostAddress string, port int, id model.PlayerID) error {
	return c.connect(ctx, hostAddress, port, protocol.NewRejoin(id))
}

func (c *Client) connect(ctx context.Context, hostAddress string, port int, hello protocol.Message) error {
	c.Leave()

	u := url.URL{Scheme: "ws", Host: model.JoinHostPort(hostAddress, port), Path: c.config.Path}
	dialCtx, cancel := context.WithTimeout(ctx, c.config.DialTimeout)
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: c.config.DialTimeout}
	conn, _, err := dialer.DialContext(dialCtx, u.String(), nil)
	if err != nil {
		c.logger.Warn("connect failed", slog.String("url", u.String()), slog.Any("error", err))
		return fmt.Errorf("%w: %v", model.ErrConnectFailed, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(conn)

	if err := c.write(conn, hello); err != nil {
		c.Leave()
		return fmt.Errorf("%w: %v", model.ErrConnectFailed, err)
	}
	c.logger.Info("connected to host", slog.String("url", u.String()), slog.String("request", string(hello.MessageType())))
	return nil
}

// Leave closes the connection and forgets the local identity. It does
// nothing when not connected.
func (c *Client) Leave() {
	c.mu.Lock()
	conn := c.conn
	c.reset()
	c.mu.Unlock()

	if conn == nil {
		return
	}
	c.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	_ = conn.Close()
	c.logger.Info("left host")
}

// reset clears connection state. Callers hold mu.
func (c *Client) reset() {
	c.conn = nil
	c.playerID = ""
	c.roomCode = ""
	c.lobby = model.LobbyState{}
	c.question = nil
}

func (c *Client) SetReady(ready bool) error {
	return c.sendCurrent(protocol.NewReady(ready))
}

func (c *Client) SubmitAnswer(questionID string, value int, responseMs float64) error {
	return c.sendCurrent(protocol.NewAnswer(questionID, value, responseMs))
}

func (c *Client) SendChat(text string) error {
	return c.sendCurrent(protocol.NewChatRequest(protocol.TruncateChat(text)))
}

// Ping sends a liveness check; the reply is published as a pong event
func (c *Client) Ping() error {
	return c.sendCurrent(protocol.NewPing(c.clock.Now().UnixMilli()))
}

func (c *Client) sendCurrent(msg protocol.Message) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return model.ErrNotConnected
	}
	return c.write(conn, msg)
}

func (c *Client) write(conn *websocket.Conn, msg protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("sending %s: %w", msg.MessageType(), err)
	}
	return nil
}

// Connected reports whether a connection is open
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// PlayerID returns the id assigned by the host, or "" before the welcome
func (c *Client) PlayerID() model.PlayerID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID
}

// RoomCode returns the joined room's code
func (c *Client) RoomCode() model.RoomCode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomCode
}

// Lobby returns the latest lobby state received
func (c *Client) Lobby() model.LobbyState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lobby.Clone()
}

// Question returns the active question, if any
func (c *Client) Question() (model.QuestionPayload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.question == nil {
		return model.QuestionPayload{}, false
	}
	return *c.question, true
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.disconnected(conn, err)
			return
		}
		msg, err := protocol.DecodeHost(data)
		if err != nil {
			c.logger.Debug("message dropped - malformed", slog.Any("error", err))
			continue
		}
		c.dispatch(conn, msg)
	}
}

// disconnected reports an unexpected close. A close caused by Leave, or by a
// newer connection replacing this one, is silent.
func (c *Client) disconnected(conn *websocket.Conn, err error) {
	c.mu.Lock()
	current := c.conn == conn
	if current {
		c.reset()
	}
	c.mu.Unlock()
	_ = conn.Close()

	if !current {
		return
	}
	c.logger.Warn("disconnected from host", slog.Any("error", err))
	c.publisher.Publish(model.EventError, model.ErrorPayload{Message: disconnectedMessage})
}

func (c *Client) dispatch(conn *websocket.Conn, msg protocol.Message) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	var (
		eventType model.EventType
		payload   any
	)
	switch m := msg.(type) {
	case protocol.Welcome:
		c.playerID = m.PlayerID
		c.roomCode = m.RoomCode
		c.lobby = m.Lobby
		eventType, payload = model.EventJoined, model.JoinedPayload{PlayerID: m.PlayerID, RoomCode: m.RoomCode, Lobby: m.Lobby}
	case protocol.Lobby:
		c.lobby = m.Lobby
		eventType, payload = model.EventLobby, m.LobbyPayload
	case protocol.Countdown:
		eventType, payload = model.EventCountdown, m.CountdownPayload
	case protocol.Question:
		q := m.QuestionPayload
		c.question = &q
		eventType, payload = model.EventQuestion, m.QuestionPayload
	case protocol.Score:
		if m.Players != nil {
			c.lobby.Players = m.Players
		}
		eventType, payload = model.EventScore, m.ScorePayload
	case protocol.Result:
		c.question = nil
		eventType, payload = model.EventResult, m.ResultPayload
	case protocol.Chat:
		eventType, payload = model.EventChat, m.ChatPayload
	case protocol.Error:
		eventType, payload = model.EventError, model.ErrorPayload{Message: m.Message}
	case protocol.Pong:
		rtt := c.clock.Now().Sub(time.UnixMilli(m.At))
		eventType, payload = model.EventPong, model.PongPayload{At: m.At, RTT: rtt}
	default:
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.publisher.Publish(eventType, payload)
}
