// Package discovery lets clients find hosts on the local network. Hosts
// broadcast their RoomInfo as a UDP datagram on a fixed interval; listeners
// keep a cache of recently heard hosts and report it on a fixed tick.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/mcoot/mathlan/internal/dependencies/clock"
	"github.com/mcoot/mathlan/internal/metrics"
	"github.com/mcoot/mathlan/internal/model"
	"github.com/mcoot/mathlan/internal/protocol"
)

const (
	DefaultPort             = 41234
	DefaultBroadcastHost    = "255.255.255.255"
	DefaultAnnounceInterval = 1200 * time.Millisecond
	DefaultPurgeInterval    = 1000 * time.Millisecond
	DefaultStaleAfter       = 4000 * time.Millisecond
)

// AnnouncerConfig holds broadcaster settings
type AnnouncerConfig struct {
	// Target is the host:port datagrams are sent to
	Target   string
	Interval time.Duration
}

// DefaultAnnouncerConfig broadcasts to the limited broadcast address
func DefaultAnnouncerConfig() AnnouncerConfig {
	return AnnouncerConfig{
		Target:   model.JoinHostPort(DefaultBroadcastHost, DefaultPort),
		Interval: DefaultAnnounceInterval,
	}
}

// Announcer periodically broadcasts a room
type Announcer struct {
	room    model.RoomInfo
	config  AnnouncerConfig
	clock   clock.Clock
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewAnnouncer creates an Announcer for a room
func NewAnnouncer(room model.RoomInfo, config AnnouncerConfig, clk clock.Clock, logger *slog.Logger) *Announcer {
	if config.Interval <= 0 {
		config.Interval = DefaultAnnounceInterval
	}
	if config.Target == "" {
		config.Target = DefaultAnnouncerConfig().Target
	}
	return &Announcer{
		room:   room,
		config: config,
		clock:  clk,
		logger: logger.With(slog.String("component", "announcer"), slog.String("room", string(room.RoomCode))),
	}
}

// WithMetrics counts announce outcomes
func (a *Announcer) WithMetrics(m *metrics.Metrics) *Announcer {
	a.metrics = m
	return a
}

// Run announces immediately and then on every interval until ctx is done.
// Failed sends are logged; the next tick tries again.
func (a *Announcer) Run(ctx context.Context) error {
	ticker := a.clock.NewTicker(a.config.Interval)
	defer ticker.Stop()

	a.logger.Info("announcer started",
		slog.String("target", a.config.Target),
		slog.Duration("interval", a.config.Interval))

	for {
		err := a.AnnounceOnce()
		if err != nil {
			a.logger.Warn("announce failed", slog.Any("error", err))
		}
		a.metrics.Announced(err)
		select {
		case <-ctx.Done():
			a.logger.Info("announcer stopped")
			return nil
		case <-ticker.C():
		}
	}
}

// AnnounceOnce sends a single datagram from a fresh socket
func (a *Announcer) AnnounceOnce() error {
	payload, err := protocol.EncodeAnnouncement(a.room)
	if err != nil {
		return fmt.Errorf("encoding announcement: %w", err)
	}
	target, err := net.ResolveUDPAddr("udp4", a.config.Target)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", a.config.Target, err)
	}
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return fmt.Errorf("opening broadcast socket: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.WriteTo(payload, target); err != nil {
		return fmt.Errorf("sending announcement: %w", err)
	}
	return nil
}
