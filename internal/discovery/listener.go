package discovery

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/mcoot/mathlan/internal/dependencies/clock"
	"github.com/mcoot/mathlan/internal/events"
	"github.com/mcoot/mathlan/internal/model"
	"github.com/mcoot/mathlan/internal/protocol"
)

const maxDatagramSize = 2048

// ListenerConfig holds discovery listener settings
type ListenerConfig struct {
	// BindHost is the local address to listen on; empty means all interfaces
	BindHost      string
	Port          int
	PurgeInterval time.Duration
	StaleAfter    time.Duration
}

// DefaultListenerConfig listens on the default discovery port
func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		Port:          DefaultPort,
		PurgeInterval: DefaultPurgeInterval,
		StaleAfter:    DefaultStaleAfter,
	}
}

// Listener receives announcements and maintains the discovered host cache
type Listener struct {
	config    ListenerConfig
	publisher events.Publisher
	clock     clock.Clock
	logger    *slog.Logger

	mu      sync.Mutex
	hosts   map[string]model.DiscoveredHost
	conn    net.PacketConn
	done    chan struct{}
	wg      sync.WaitGroup
	running bool
}

// NewListener creates a stopped Listener
func NewListener(config ListenerConfig, publisher events.Publisher, clk clock.Clock, logger *slog.Logger) *Listener {
	if config.PurgeInterval <= 0 {
		config.PurgeInterval = DefaultPurgeInterval
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = DefaultStaleAfter
	}
	return &Listener{
		config:    config,
		publisher: publisher,
		clock:     clk,
		logger:    logger.With(slog.String("component", "discovery")),
		hosts:     make(map[string]model.DiscoveredHost),
	}
}

// Start binds the listener socket. Starting a running listener is a no-op.
func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return nil
	}

	addr := model.JoinHostPort(l.config.BindHost, l.config.Port)
	conn, err := net.ListenPacket("udp4", addr)
	if err != nil {
		l.logger.Error("discovery bind failed", slog.String("addr", addr), slog.Any("error", err))
		return fmt.Errorf("binding discovery listener on %s: %w", addr, err)
	}

	l.conn = conn
	l.done = make(chan struct{})
	l.running = true
	ticker := l.clock.NewTicker(l.config.PurgeInterval)

	l.wg.Add(2)
	go l.readLoop(conn)
	go l.purgeLoop(ticker, l.done)

	l.logger.Info("discovery listener started", slog.String("addr", conn.LocalAddr().String()))
	return nil
}

// Stop closes the socket, stops the purge tick and clears the cache.
// Stopping a stopped listener is a no-op.
func (l *Listener) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	close(l.done)
	_ = l.conn.Close()
	l.mu.Unlock()

	l.wg.Wait()

	l.mu.Lock()
	l.conn = nil
	l.hosts = make(map[string]model.DiscoveredHost)
	l.mu.Unlock()
	l.logger.Info("discovery listener stopped")
}

// Running reports whether the listener is bound
func (l *Listener) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// LocalAddr returns the bound address, or nil when stopped
func (l *Listener) LocalAddr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Hosts returns the cached hosts ordered by address key
func (l *Listener) Hosts() []model.DiscoveredHost {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hostsLocked()
}

func (l *Listener) hostsLocked() []model.DiscoveredHost {
	hosts := make([]model.DiscoveredHost, 0, len(l.hosts))
	for _, h := range l.hosts {
		hosts = append(hosts, h)
	}
	sort.Slice(hosts, func(i, j int) bool {
		return hosts[i].Key() < hosts[j].Key()
	})
	return hosts
}

func (l *Listener) readLoop(conn net.PacketConn) {
	defer l.wg.Done()
	buf := make([]byte, maxDatagramSize)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.logger.Warn("discovery read failed", slog.Any("error", err))
			continue
		}
		room, err := protocol.DecodeAnnouncement(buf[:n])
		if err != nil {
			l.logger.Debug("discovery packet dropped",
				slog.String("from", from.String()),
				slog.Any("error", err))
			continue
		}
		l.upsert(room)
	}
}

func (l *Listener) upsert(room model.RoomInfo) {
	host := model.DiscoveredHost{RoomInfo: room, SeenAt: l.clock.Now()}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	if _, known := l.hosts[host.Key()]; !known {
		l.logger.Info("host discovered",
			slog.String("room", string(room.RoomCode)),
			slog.String("addr", host.Key()))
	}
	l.hosts[host.Key()] = host
}

func (l *Listener) purgeLoop(ticker clock.Ticker, done <-chan struct{}) {
	defer l.wg.Done()
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C():
			l.purge()
		}
	}
}

// purge drops stale hosts and publishes the remaining set
func (l *Listener) purge() {
	now := l.clock.Now()
	l.mu.Lock()
	for key, h := range l.hosts {
		if now.Sub(h.SeenAt) > l.config.StaleAfter {
			delete(l.hosts, key)
			l.logger.Info("host expired", slog.String("addr", key))
		}
	}
	hosts := l.hostsLocked()
	l.mu.Unlock()

	l.publisher.Publish(model.EventHosts, model.HostsPayload{Hosts: hosts})
}
