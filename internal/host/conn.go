package host

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/mcoot/mathlan/internal/model"
	"github.com/mcoot/mathlan/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64

	// Inbound messages beyond this rate are dropped
	messagesPerSecond = 20
	messageBurst      = 40
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // trusted LAN, no origin policy
	},
}

// conn is one client connection. playerID and closed belong to the session
// loop; the pumps only touch ws, send and limiter.
type conn struct {
	id      uint64
	remote  string
	ws      *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter

	playerID model.PlayerID
	closed   bool
}

func newConn(id uint64, ws *websocket.Conn, remote string) *conn {
	return &conn{
		id:      id,
		remote:  remote,
		ws:      ws,
		send:    make(chan []byte, sendBufferSize),
		limiter: rate.NewLimiter(messagesPerSecond, messageBurst),
	}
}

type inboundKind int

const (
	inboundOpened inboundKind = iota
	inboundMessage
	inboundClosed
)

// inbound is a transport event delivered to the session loop
type inbound struct {
	kind inboundKind
	conn *conn
	msg  protocol.Message
}

// serveWS upgrades the request and runs the connection's read pump on the
// handler goroutine.
func (s *Session) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", slog.Any("error", err))
		return
	}

	c := newConn(s.nextConnID.Add(1), ws, r.RemoteAddr)
	s.metrics.ConnectionOpened()
	defer s.metrics.ConnectionClosed()

	go s.writePump(c)

	if !s.post(inbound{kind: inboundOpened, conn: c}) {
		// The loop never saw this connection, so it is ours to close
		close(c.send)
		return
	}
	s.logger.Debug("connection opened", slog.Uint64("conn", c.id), slog.String("remote", c.remote))

	s.readPump(c)
}

// post hands an event to the loop. It returns false once the loop has exited.
func (s *Session) post(in inbound) bool {
	select {
	case s.inbox <- in:
		return true
	case <-s.stopped:
		return false
	}
}

func (s *Session) readPump(c *conn) {
	defer s.post(inbound{kind: inboundClosed, conn: c})

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket read error", slog.Uint64("conn", c.id), slog.Any("error", err))
			}
			return
		}
		if !c.limiter.Allow() {
			s.metrics.MessageDropped("rate_limited")
			s.logger.Debug("message dropped - rate limited", slog.Uint64("conn", c.id))
			continue
		}
		msg, err := protocol.DecodeClient(data)
		if err != nil {
			s.metrics.MessageDropped("malformed")
			s.logger.Debug("message dropped - malformed", slog.Uint64("conn", c.id), slog.Any("error", err))
			continue
		}
		if !s.post(inbound{kind: inboundMessage, conn: c, msg: msg}) {
			return
		}
	}
}

// writePump drains the send channel. When the loop closes the channel the
// pump sends a close frame and closes the socket, which ends the read pump.
func (s *Session) writePump(c *conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Debug("websocket write failed", slog.Uint64("conn", c.id), slog.Any("error", err))
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
