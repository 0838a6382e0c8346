// Package config loads layered settings: defaults, an optional YAML file,
// MATHLAN_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mcoot/mathlan/internal/client"
	"github.com/mcoot/mathlan/internal/discovery"
	"github.com/mcoot/mathlan/internal/host"
	"github.com/mcoot/mathlan/internal/model"
	"github.com/mcoot/mathlan/internal/services/round"
	redisstorage "github.com/mcoot/mathlan/internal/storage/redis"
)

// EnvPrefix prefixes every environment override, e.g. MATHLAN_HOST_PORT
const EnvPrefix = "MATHLAN"

// Storage backends
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// Config is the full application configuration
type Config struct {
	Host      HostConfig      `mapstructure:"host"`
	Game      GameConfig      `mapstructure:"game"`
	Points    PointsConfig    `mapstructure:"points"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Client    ClientConfig    `mapstructure:"client"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Log       LogConfig       `mapstructure:"log"`
}

type HostConfig struct {
	Name        string `mapstructure:"name"`
	Mode        string `mapstructure:"mode"`
	MaxPlayers  int    `mapstructure:"max_players"`
	BindHost    string `mapstructure:"bind_host"`
	Port        int    `mapstructure:"port"`
	AdvertiseIP string `mapstructure:"advertise_ip"`
	// Play seats the operator as the host-local player
	Play        bool          `mapstructure:"play"`
	PlayerColor string        `mapstructure:"player_color"`
	ProfileKey  string        `mapstructure:"profile_key"`
	Countdown   time.Duration `mapstructure:"countdown"`

	BroadcastAddress string        `mapstructure:"broadcast_address"`
	AnnounceInterval time.Duration `mapstructure:"announce_interval"`
	DisableAnnounce  bool          `mapstructure:"disable_announce"`
}

// GameConfig selects the difficulty preset and round length. Zero overrides
// keep the preset's values.
type GameConfig struct {
	Difficulty         string `mapstructure:"difficulty"`
	Tables             []int  `mapstructure:"tables"`
	QuestionCount      int    `mapstructure:"question_count"`
	TimerSeconds       int    `mapstructure:"timer_seconds"`
	PerQuestionSeconds int    `mapstructure:"per_question_seconds"`
	// Seed fixes the question sequence; negative picks one per round
	Seed     int64  `mapstructure:"seed"`
	RaceMode string `mapstructure:"race_mode"`
}

type PointsConfig struct {
	Base   int     `mapstructure:"base"`
	Speed  float64 `mapstructure:"speed"`
	Streak float64 `mapstructure:"streak"`
}

type DiscoveryConfig struct {
	BindHost      string        `mapstructure:"bind_host"`
	Port          int           `mapstructure:"port"`
	PurgeInterval time.Duration `mapstructure:"purge_interval"`
	StaleAfter    time.Duration `mapstructure:"stale_after"`
}

type ClientConfig struct {
	Name        string        `mapstructure:"name"`
	Color       string        `mapstructure:"color"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type StorageConfig struct {
	Type  string      `mapstructure:"type"`
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	URL       string        `mapstructure:"url"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	PoolSize  int           `mapstructure:"pool_size"`
	ResultTTL time.Duration `mapstructure:"result_ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every default on v
func SetDefaults(v *viper.Viper) {
	medium := model.DefaultMultiplayerConfig()
	points := model.DefaultPointsConfig()
	redisDefaults := redisstorage.DefaultConfig()

	v.SetDefault("host.name", "Host")
	v.SetDefault("host.mode", string(model.GameModeParty))
	v.SetDefault("host.max_players", host.DefaultMaxPlayers)
	v.SetDefault("host.bind_host", "")
	v.SetDefault("host.port", host.DefaultPort)
	v.SetDefault("host.advertise_ip", "")
	v.SetDefault("host.play", false)
	v.SetDefault("host.player_color", model.DefaultLocalColor)
	v.SetDefault("host.profile_key", "")
	v.SetDefault("host.countdown", round.DefaultCountdown)
	v.SetDefault("host.broadcast_address", discovery.DefaultBroadcastHost)
	v.SetDefault("host.announce_interval", discovery.DefaultAnnounceInterval)
	v.SetDefault("host.disable_announce", false)

	v.SetDefault("game.difficulty", string(model.TierMedium))
	v.SetDefault("game.tables", []int{})
	v.SetDefault("game.question_count", medium.QuestionCount)
	v.SetDefault("game.timer_seconds", medium.TimerSeconds)
	v.SetDefault("game.per_question_seconds", model.DefaultPerQuestionSeconds)
	v.SetDefault("game.seed", -1)
	v.SetDefault("game.race_mode", string(model.RaceModeFair))

	v.SetDefault("points.base", points.BasePoints)
	v.SetDefault("points.speed", points.SpeedMultiplier)
	v.SetDefault("points.streak", points.StreakMultiplier)

	v.SetDefault("discovery.bind_host", "")
	v.SetDefault("discovery.port", discovery.DefaultPort)
	v.SetDefault("discovery.purge_interval", discovery.DefaultPurgeInterval)
	v.SetDefault("discovery.stale_after", discovery.DefaultStaleAfter)

	v.SetDefault("client.name", "Player")
	v.SetDefault("client.color", "")
	v.SetDefault("client.dial_timeout", client.DefaultDialTimeout)

	v.SetDefault("storage.type", StorageTypeMemory)
	v.SetDefault("storage.redis.url", redisDefaults.URL)
	v.SetDefault("storage.redis.key_prefix", redisDefaults.KeyPrefix)
	v.SetDefault("storage.redis.pool_size", redisDefaults.PoolSize)
	v.SetDefault("storage.redis.result_ttl", redisDefaults.ResultTTL)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// New returns a viper instance with defaults and environment overrides
// registered. Flags are bound by the caller.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configFile (if set) into v and decodes the result
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside a component
func (c *Config) Validate() error {
	var errs []error
	if !model.GameMode(c.Host.Mode).Valid() {
		errs = append(errs, fmt.Errorf("host.mode: unknown mode %q", c.Host.Mode))
	}
	switch model.DifficultyTier(c.Game.Difficulty) {
	case model.TierEasy, model.TierMedium, model.TierHard, model.TierCustom:
	default:
		errs = append(errs, fmt.Errorf("game.difficulty: unknown tier %q", c.Game.Difficulty))
	}
	if c.Game.Seed > int64(^uint32(0)) {
		errs = append(errs, fmt.Errorf("game.seed: %d does not fit in 32 bits", c.Game.Seed))
	}
	switch c.Storage.Type {
	case StorageTypeMemory, StorageTypeRedis:
	default:
		errs = append(errs, fmt.Errorf("storage.type: must be %q or %q", StorageTypeMemory, StorageTypeRedis))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", model.ErrInvalidConfig, err)
	}
	return nil
}

// Multiplayer builds the round config from the preset and overrides
func (c *Config) Multiplayer() model.MultiplayerConfig {
	difficulty := model.DefaultDifficulty(model.DifficultyTier(c.Game.Difficulty))
	if c.Game.Difficulty == string(model.TierCustom) {
		difficulty.Tier = model.TierCustom
	}
	if len(c.Game.Tables) > 0 {
		difficulty.Tables = append([]int(nil), c.Game.Tables...)
	}
	if c.Game.PerQuestionSeconds > 0 {
		difficulty.PerQuestionSeconds = c.Game.PerQuestionSeconds
	}

	mp := model.DefaultMultiplayerConfig()
	mp.Difficulty = difficulty
	if c.Game.QuestionCount > 0 {
		mp.QuestionCount = c.Game.QuestionCount
	}
	if c.Game.TimerSeconds > 0 {
		mp.TimerSeconds = c.Game.TimerSeconds
	}
	if c.Game.Seed >= 0 {
		seed := uint32(c.Game.Seed)
		mp.Seed = &seed
	}
	if c.Game.RaceMode != "" {
		mp.RaceMode = model.RaceMode(c.Game.RaceMode)
	}
	return mp
}

// HostConfig converts the host section into a session config
func (c *Config) HostConfig() host.Config {
	cfg := host.DefaultConfig()
	cfg.HostName = c.Host.Name
	cfg.Mode = model.GameMode(c.Host.Mode)
	cfg.MaxPlayers = c.Host.MaxPlayers
	cfg.BindHost = c.Host.BindHost
	cfg.Port = c.Host.Port
	cfg.AdvertiseIP = c.Host.AdvertiseIP
	cfg.Game = c.Multiplayer()
	cfg.Points = model.PointsConfig{
		BasePoints:       c.Points.Base,
		SpeedMultiplier:  c.Points.Speed,
		StreakMultiplier: c.Points.Streak,
	}
	cfg.Countdown = c.Host.Countdown
	cfg.ProfileKey = c.Host.ProfileKey
	cfg.DisableAnnounce = c.Host.DisableAnnounce
	cfg.Announce = discovery.AnnouncerConfig{
		Target:   model.JoinHostPort(c.Host.BroadcastAddress, c.Discovery.Port),
		Interval: c.Host.AnnounceInterval,
	}
	if c.Host.Play {
		cfg.LocalPlayer = &host.LocalPlayerConfig{Name: c.Host.Name, Color: c.Host.PlayerColor}
	}
	return cfg
}

// ListenerConfig converts the discovery section
func (c *Config) ListenerConfig() discovery.ListenerConfig {
	return discovery.ListenerConfig{
		BindHost:      c.Discovery.BindHost,
		Port:          c.Discovery.Port,
		PurgeInterval: c.Discovery.PurgeInterval,
		StaleAfter:    c.Discovery.StaleAfter,
	}
}

// ClientConfig converts the client section
func (c *Config) ClientConfig() client.Config {
	cfg := client.DefaultConfig()
	if c.Client.DialTimeout > 0 {
		cfg.DialTimeout = c.Client.DialTimeout
	}
	return cfg
}

// RedisConfig converts the redis section
func (c *Config) RedisConfig() redisstorage.Config {
	cfg := redisstorage.DefaultConfig()
	cfg.URL = c.Storage.Redis.URL
	cfg.KeyPrefix = c.Storage.Redis.KeyPrefix
	cfg.PoolSize = c.Storage.Redis.PoolSize
	cfg.ResultTTL = c.Storage.Redis.ResultTTL
	return cfg
}

// ParseLevel maps a level name to a slog level
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}
