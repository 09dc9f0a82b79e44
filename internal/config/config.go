// Package config loads server configuration from a YAML file and EVO_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/evoserver/evolution-server-go/internal/game"
	"github.com/evoserver/evolution-server-go/internal/game/traits"
)

// EnvPrefix prefixes every environment override, e.g. EVO_SERVER_ADDRESS.
const EnvPrefix = "EVO"

// Config is the complete server configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Game    GameConfig    `mapstructure:"game"`
	Store   StoreConfig   `mapstructure:"store"`
	Replay  ReplayConfig  `mapstructure:"replay"`
}

// ServerConfig configures the HTTP and websocket listener.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GameConfig holds the rule settings new games start with.
type GameConfig struct {
	Deck            string        `mapstructure:"deck"`
	HandSize        int           `mapstructure:"hand_size"`
	TurnTime        time.Duration `mapstructure:"turn_time"`
	QuestionTime    time.Duration `mapstructure:"question_time"`
	AmbushTime      time.Duration `mapstructure:"ambush_time"`
	MaxCascadeSteps int           `mapstructure:"max_cascade_steps"`
}

// Settings converts the section into engine settings.
func (g GameConfig) Settings() game.Settings {
	return game.Settings{
		HandSize:        g.HandSize,
		Deck:            g.Deck,
		TurnTime:        g.TurnTime,
		QuestionTime:    g.QuestionTime,
		AmbushTime:      g.AmbushTime,
		MaxCascadeSteps: g.MaxCascadeSteps,
	}
}

// StoreConfig selects the snapshot store.
type StoreConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// ReplayConfig controls replay recording.
type ReplayConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
}

var (
	logLevels    = []string{"debug", "info", "warn", "error"}
	logFormats   = []string{"json", "console"}
	storeDrivers = []string{"memory", "postgres", "sqlite"}
)

func setDefaults(v *viper.Viper) {
	defaults := game.DefaultSettings()

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("game.deck", defaults.Deck)
	v.SetDefault("game.hand_size", defaults.HandSize)
	v.SetDefault("game.turn_time", defaults.TurnTime)
	v.SetDefault("game.question_time", defaults.QuestionTime)
	v.SetDefault("game.ambush_time", defaults.AmbushTime)
	v.SetDefault("game.max_cascade_steps", defaults.MaxCascadeSteps)

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.max_conns", 10)

	v.SetDefault("replay.enabled", false)
	v.SetDefault("replay.directory", "replays")
}

// Load reads the configuration at path. A missing file is not an error:
// defaults and environment overrides still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Address == "" {
		errs = append(errs, errors.New("server.address is required"))
	}
	if !slices.Contains(logLevels, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level %q is not one of %v", c.Logging.Level, logLevels))
	}
	if !slices.Contains(logFormats, c.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format %q is not one of %v", c.Logging.Format, logFormats))
	}
	if _, err := traits.Deck(c.Game.Deck); err != nil {
		errs = append(errs, fmt.Errorf("game.deck: %w", err))
	}
	if c.Game.HandSize <= 0 {
		errs = append(errs, errors.New("game.hand_size must be positive"))
	}
	if c.Game.TurnTime < 0 || c.Game.QuestionTime < 0 || c.Game.AmbushTime < 0 {
		errs = append(errs, errors.New("game time budgets must not be negative"))
	}
	if c.Game.MaxCascadeSteps <= 0 {
		errs = append(errs, errors.New("game.max_cascade_steps must be positive"))
	}
	if !slices.Contains(storeDrivers, c.Store.Driver) {
		errs = append(errs, fmt.Errorf("store.driver %q is not one of %v", c.Store.Driver, storeDrivers))
	} else if c.Store.Driver != "memory" && c.Store.DSN == "" {
		errs = append(errs, fmt.Errorf("store.dsn is required for %s", c.Store.Driver))
	}
	if c.Replay.Enabled && c.Replay.Directory == "" {
		errs = append(errs, errors.New("replay.directory is required when replays are enabled"))
	}
	return errors.Join(errs...)
}
