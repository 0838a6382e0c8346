package host

import (
	"fmt"
	"time"

	"github.com/mcoot/mathlan/internal/discovery"
	"github.com/mcoot/mathlan/internal/model"
	"github.com/mcoot/mathlan/internal/services/round"
)

const (
	// DefaultPort is the session listening port
	DefaultPort       = 9898
	DefaultMaxPlayers = 8
)

// LocalPlayerConfig seats the host operator as a player
type LocalPlayerConfig struct {
	Name  string
	Color string
}

// Config holds everything needed to start one hosted session
type Config struct {
	HostName   string
	Mode       model.GameMode
	MaxPlayers int

	// BindHost and Port select the listening address. Port 0 picks a free port.
	BindHost string
	Port     int
	// AdvertiseIP is announced to clients. Empty means the first LAN address.
	AdvertiseIP string

	Game      model.MultiplayerConfig
	Points    model.PointsConfig
	Countdown time.Duration

	LocalPlayer *LocalPlayerConfig
	// ProfileKey names the weak-fact profile loaded at start and saved after each round
	ProfileKey string

	Announce        discovery.AnnouncerConfig
	DisableAnnounce bool

	Server ServerConfig
}

// DefaultConfig returns a party room on the default port
func DefaultConfig() Config {
	return Config{
		HostName:   "Host",
		Mode:       model.GameModeParty,
		MaxPlayers: DefaultMaxPlayers,
		Port:       DefaultPort,
		Game:       model.DefaultMultiplayerConfig(),
		Points:     model.DefaultPointsConfig(),
		Countdown:  round.DefaultCountdown,
		Announce:   discovery.DefaultAnnouncerConfig(),
		Server:     DefaultServerConfig(),
	}
}

// Validate checks the config and fills zero values with defaults
func (c *Config) Validate() error {
	if c.HostName == "" {
		return fmt.Errorf("%w: host name is required", model.ErrInvalidConfig)
	}
	if c.Mode == "" {
		c.Mode = model.GameModeParty
	}
	if !c.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", model.ErrInvalidConfig, c.Mode)
	}
	if c.MaxPlayers < 1 {
		return fmt.Errorf("%w: max players must be at least 1", model.ErrInvalidConfig)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", model.ErrInvalidConfig, c.Port)
	}
	if c.Game.QuestionCount < 1 {
		return fmt.Errorf("%w: question count must be at least 1", model.ErrInvalidConfig)
	}
	if c.Game.TimerSeconds < 1 {
		return fmt.Errorf("%w: timer must be at least 1 second", model.ErrInvalidConfig)
	}
	if c.Points == (model.PointsConfig{}) {
		c.Points = model.DefaultPointsConfig()
	}
	if c.Countdown <= 0 {
		c.Countdown = round.DefaultCountdown
	}
	if c.Server == (ServerConfig{}) {
		c.Server = DefaultServerConfig()
	}
	return nil
}
