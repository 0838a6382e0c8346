package host

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mcoot/mathlan/internal/model"
)

// Host keeps at most one Session running. Starting a new session stops the
// previous one first.
type Host struct {
	mu      sync.Mutex
	session *Session
	deps    Deps
}

// New creates a Host with no running session
func New(deps Deps) *Host {
	return &Host{deps: deps}
}

// Start stops any running session and starts a new one
func (h *Host) Start(ctx context.Context, cfg Config) (model.RoomInfo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.session != nil {
		if err := h.session.Stop(ctx); err != nil {
			h.deps.Logger.Warn("previous session stopped with error", slog.Any("error", err))
		}
		h.session = nil
	}

	session, err := Start(ctx, cfg, h.deps)
	if err != nil {
		return model.RoomInfo{}, err
	}
	h.session = session
	return session.Room(), nil
}

// Stop stops the running session. With nothing running it does nothing.
func (h *Host) Stop(ctx context.Context) error {
	h.mu.Lock()
	session := h.session
	h.session = nil
	h.mu.Unlock()

	if session == nil {
		return nil
	}
	return session.Stop(ctx)
}

// Session returns the running session, or nil
func (h *Host) Session() *Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session
}

// Running reports whether a session is active
func (h *Host) Running() bool {
	return h.Session() != nil
}

func (h *Host) current() (*Session, error) {
	session := h.Session()
	if session == nil {
		return nil, model.ErrNotHosting
	}
	return session, nil
}

func (h *Host) StartGame() error {
	session, err := h.current()
	if err != nil {
		return err
	}
	return session.StartGame()
}

func (h *Host) SetReady(ready bool) error {
	session, err := h.current()
	if err != nil {
		return err
	}
	return session.SetReady(ready)
}

func (h *Host) SubmitAnswer(questionID string, value int, responseMs float64) (bool, error) {
	session, err := h.current()
	if err != nil {
		return false, err
	}
	return session.SubmitAnswer(questionID, value, responseMs)
}

func (h *Host) SendChat(text string) error {
	session, err := h.current()
	if err != nil {
		return err
	}
	return session.SendChat(text)
}

func (h *Host) Lobby() (model.LobbyState, error) {
	session, err := h.current()
	if err != nil {
		return model.LobbyState{}, err
	}
	return session.Lobby()
}
