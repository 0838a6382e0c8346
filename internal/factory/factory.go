package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/mathlan/internal/client"
	"github.com/mcoot/mathlan/internal/config"
	"github.com/mcoot/mathlan/internal/dependencies/clock"
	"github.com/mcoot/mathlan/internal/dependencies/random"
	"github.com/mcoot/mathlan/internal/events"
	"github.com/mcoot/mathlan/internal/host"
	"github.com/mcoot/mathlan/internal/lan"
	"github.com/mcoot/mathlan/internal/metrics"
	"github.com/mcoot/mathlan/internal/storage"
	"github.com/mcoot/mathlan/internal/storage/memory"
	redisstorage "github.com/mcoot/mathlan/internal/storage/redis"
)

// App contains all wired application components
type App struct {
	Config *config.Config
	Logger *slog.Logger

	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Shared infrastructure
	Bus     *events.Bus
	Metrics *metrics.Metrics

	// Services
	Host       *host.Host
	Client     *client.Client
	Controller *lan.Controller
}

// New creates a new application with all dependencies wired. A nil logger
// discards everything.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}

	return newWithDependencies(cfg, store, clock.New(), random.New(), logger), nil
}

func newStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage.Type {
	case "", config.StorageTypeMemory:
		return memory.New(), nil
	case config.StorageTypeRedis:
		store, err := redisstorage.New(cfg.RedisConfig())
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return store, nil
	default:
		return nil, errors.New("invalid storage type: must be 'memory' or 'redis'")
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(cfg *config.Config, store storage.Storage, clk clock.Clock, rnd random.Random, logger *slog.Logger) *App {
	bus := events.NewBus(clk, logger)
	m := metrics.New()

	h := host.New(host.Deps{
		Clock:   clk,
		Random:  rnd,
		Bus:     bus,
		Storage: store,
		Metrics: m,
		Logger:  logger,
	})
	c := client.New(cfg.ClientConfig(), bus, clk, logger)
	ctrl := lan.NewController(h, c, bus, cfg.HostConfig(), cfg.ListenerConfig(), clk, logger)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Storage:    store,
		Clock:      clk,
		Random:     rnd,
		Bus:        bus,
		Metrics:    m,
		Host:       h,
		Client:     c,
		Controller: ctrl,
	}
}

// Close stops everything the app started and releases storage
func (a *App) Close(ctx context.Context) error {
	err := a.Controller.Close(ctx)
	a.Bus.Close()
	return errors.Join(err, a.Storage.Close())
}
