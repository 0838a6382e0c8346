// Package lan is the control surface a UI or CLI drives: host a room,
// discover rooms, join one and play. Everything it learns is published on
// its event bus.
package lan

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"

	"github.com/mcoot/mathlan/internal/client"
	"github.com/mcoot/mathlan/internal/dependencies/clock"
	"github.com/mcoot/mathlan/internal/discovery"
	"github.com/mcoot/mathlan/internal/events"
	"github.com/mcoot/mathlan/internal/host"
	"github.com/mcoot/mathlan/internal/model"
)

// HostOptions are the per-room settings chosen by the operator. Zero values
// fall back to the controller's base host config.
type HostOptions struct {
	HostName   string
	Mode       model.GameMode
	MaxPlayers int
	Game       *model.MultiplayerConfig
	Port       int
}

// HostStarted is returned by StartHost
type HostStarted struct {
	RoomCode model.RoomCode `json:"roomCode"`
	HostIP   string         `json:"hostIp"`
	Port     int            `json:"port"`
}

// Controller owns the process's host, client and discovery listener
type Controller struct {
	host      *host.Host
	client    *client.Client
	bus       *events.Bus
	clock     clock.Clock
	base      *slog.Logger
	logger    *slog.Logger
	hostBase  host.Config
	discovery discovery.ListenerConfig

	mu       sync.Mutex
	listener *discovery.Listener
}

// NewController wires a controller around an existing host and client
func NewController(
	h *host.Host,
	c *client.Client,
	bus *events.Bus,
	hostBase host.Config,
	discoveryConfig discovery.ListenerConfig,
	clk clock.Clock,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		host:      h,
		client:    c,
		bus:       bus,
		clock:     clk,
		base:      logger,
		logger:    logger.With(slog.String("component", "lan")),
		hostBase:  hostBase,
		discovery: discoveryConfig,
	}
}

// Events subscribes to everything the controller publishes
func (c *Controller) Events(buffer int) *events.Subscription {
	return c.bus.Subscribe(buffer)
}

// StartHost starts hosting a room, replacing any room already hosted
func (c *Controller) StartHost(ctx context.Context, opts HostOptions) (HostStarted, error) {
	cfg := c.hostBase
	if opts.HostName != "" {
		cfg.HostName = opts.HostName
	}
	if opts.Mode != "" {
		cfg.Mode = opts.Mode
	}
	if opts.MaxPlayers > 0 {
		cfg.MaxPlayers = opts.MaxPlayers
	}
	if opts.Game != nil {
		cfg.Game = *opts.Game
	}
	if opts.Port > 0 {
		cfg.Port = opts.Port
	}

	room, err := c.host.Start(ctx, cfg)
	if err != nil {
		c.logger.Error("failed to start host", slog.Any("error", err))
		return HostStarted{}, err
	}
	return HostStarted{RoomCode: room.RoomCode, HostIP: room.HostIP, Port: room.WsPort}, nil
}

// StopHost stops hosting. It does nothing when no room is hosted.
func (c *Controller) StopHost(ctx context.Context) error {
	return c.host.Stop(ctx)
}

// Hosting reports whether this process hosts a room
func (c *Controller) Hosting() bool {
	return c.host.Running()
}

// StartDiscovery starts listening for announcements. Port 0 uses the
// configured port. A second call while listening does nothing.
func (c *Controller) StartDiscovery(port int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.listener != nil && c.listener.Running() {
		c.logger.Debug("discovery already running")
		return nil
	}
	cfg := c.discovery
	if port > 0 {
		cfg.Port = port
	}
	listener := discovery.NewListener(cfg, c.bus, c.clock, c.base)
	if err := listener.Start(); err != nil {
		return err
	}
	c.listener = listener
	return nil
}

// StopDiscovery stops listening and clears the discovered hosts
func (c *Controller) StopDiscovery() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.listener == nil {
		return
	}
	c.listener.Stop()
	c.listener = nil
}

// DiscoveryAddr returns the listener's bound address, or nil
func (c *Controller) DiscoveryAddr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.listener == nil {
		return nil
	}
	return c.listener.LocalAddr()
}

// Hosts returns the hosts currently visible
func (c *Controller) Hosts() []model.DiscoveredHost {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.listener == nil {
		return nil
	}
	return c.listener.Hosts()
}

func (c *Controller) Join(ctx context.Context, hostAddress string, port int, name, color string) error {
	return c.client.Join(ctx, hostAddress, port, name, color)
}

func (c *Controller) Rejoin(ctx context.Context, hostAddress string, port int, id model.PlayerID) error {
	return c.client.Rejoin(ctx, hostAddress, port, id)
}

func (c *Controller) Leave() {
	c.client.Leave()
}

// Client exposes the underlying client for read-only state
func (c *Controller) Client() *client.Client {
	return c.client
}

// SetReady sets readiness on the joined room and for the host operator
func (c *Controller) SetReady(ready bool) error {
	return c.both(
		func() error { return c.client.SetReady(ready) },
		func() error { return c.host.SetReady(ready) },
	)
}

// StartGame starts the hosted round
func (c *Controller) StartGame() error {
	return c.host.StartGame()
}

// SubmitAnswer answers on the joined room, or as the host operator
func (c *Controller) SubmitAnswer(questionID string, value int, responseMs float64) error {
	return c.both(
		func() error { return c.client.SubmitAnswer(questionID, value, responseMs) },
		func() error {
			_, err := c.host.SubmitAnswer(questionID, value, responseMs)
			return err
		},
	)
}

// SendChat chats on the joined room, or as the host operator when not joined
func (c *Controller) SendChat(text string) error {
	if c.client.Connected() {
		return c.client.SendChat(text)
	}
	if c.host.Running() {
		return c.host.SendChat(text)
	}
	return model.ErrNotConnected
}

// Ping measures the round trip to the joined host; the result arrives as a
// pong event
func (c *Controller) Ping() error {
	return c.client.Ping()
}

// Lobby returns the joined room's lobby, or the hosted one when not joined
func (c *Controller) Lobby() (model.LobbyState, error) {
	if c.client.Connected() {
		return c.client.Lobby(), nil
	}
	if c.host.Running() {
		return c.host.Lobby()
	}
	return model.LobbyState{}, model.ErrNotConnected
}

// both runs the client action when connected and the host action when
// hosting. It fails only if neither applies or one of them fails.
func (c *Controller) both(onClient, onHost func() error) error {
	connected, hosting := c.client.Connected(), c.host.Running()
	if !connected && !hosting {
		return model.ErrNotConnected
	}

	var errs []error
	if connected {
		if err := onClient(); err != nil {
			errs = append(errs, err)
		}
	}
	if hosting {
		if err := onHost(); err != nil && !errors.Is(err, model.ErrPlayerNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close leaves, stops discovery and stops hosting
func (c *Controller) Close(ctx context.Context) error {
	c.client.Leave()
	c.StopDiscovery()
	return c.host.Stop(ctx)
}
