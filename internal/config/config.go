// Package config loads process settings from the environment and game
// tuning from an optional YAML file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/talgya/goobernor/internal/donations"
	"github.com/talgya/goobernor/internal/engine"
	"github.com/talgya/goobernor/internal/grid"
	"github.com/talgya/goobernor/internal/politics"
	"github.com/talgya/goobernor/internal/weather"
)

// Presenter modes.
const (
	ModeHTTP    = "http"
	ModeConsole = "console"
)

// Config is the process configuration.
type Config struct {
	DBPath       string        `env:"GOOBERNOR_DB_PATH" envDefault:"goobernor.db"`
	Port         int           `env:"GOOBERNOR_PORT" envDefault:"8080"`
	Seed         int64         `env:"GOOBERNOR_SEED"` // Zero draws a fresh seed
	TickInterval time.Duration `env:"GOOBERNOR_TICK_INTERVAL" envDefault:"500ms"`
	Mode         string        `env:"GOOBERNOR_MODE" envDefault:"http"`
	TuningFile   string        `env:"GOOBERNOR_TUNING_FILE"`
	LogLevel     string        `env:"GOOBERNOR_LOG_LEVEL" envDefault:"info"`
	Resume       bool          `env:"GOOBERNOR_RESUME" envDefault:"true"`
	AdminKey     string        `env:"GOOBERNOR_ADMIN_KEY"`
	RandomOrgKey string        `env:"GOOBERNOR_RANDOM_ORG_KEY"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads and validates the process configuration.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that env parsing cannot.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeHTTP, ModeConsole:
	default:
		return fmt.Errorf("config: unknown mode %q (want %s or %s)", c.Mode, ModeHTTP, ModeConsole)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("config: tick interval must be positive, got %s", c.TickInterval)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: port out of range: %d", c.Port)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("config: unknown log level %q", s)
}

// ClockTuning controls simulated time.
type ClockTuning struct {
	TicksPerHour int `yaml:"ticks_per_hour"`
	StartHour    int `yaml:"start_hour"`
}

// Tuning is every game coefficient. A tuning file overrides only the keys it
// names.
type Tuning struct {
	Clock     ClockTuning      `yaml:"clock"`
	Weather   weather.Config   `yaml:"weather"`
	Grid      grid.Config      `yaml:"grid"`
	Donations donations.Config `yaml:"donations"`
	Governors []string         `yaml:"governors"`
	Incumbent string           `yaml:"incumbent"`
}

// DefaultTuning returns the stock game.
func DefaultTuning() Tuning {
	return Tuning{
		Clock:     ClockTuning{TicksPerHour: engine.DefaultTicksPerHour},
		Weather:   weather.DefaultConfig(),
		Grid:      grid.DefaultConfig(),
		Donations: donations.DefaultConfig(),
		Governors: append([]string(nil), politics.DefaultGovernors...),
		Incumbent: politics.Orange.String(),
	}
}

// LoadTuning layers the YAML file at path over the defaults. An empty path
// returns the defaults.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("read tuning: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tuning{}, fmt.Errorf("parse tuning %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return Tuning{}, fmt.Errorf("tuning %s: %w", path, err)
	}

	slog.Info("tuning loaded", "path", path, "governors", len(t.Governors))
	return t, nil
}

// Validate checks the tuning is playable.
func (t Tuning) Validate() error {
	if t.Clock.TicksPerHour <= 0 {
		return fmt.Errorf("clock: ticks per hour must be positive, got %d", t.Clock.TicksPerHour)
	}
	if t.Clock.StartHour < 0 || t.Clock.StartHour >= engine.HoursPerDay {
		return fmt.Errorf("clock: start hour out of range: %d", t.Clock.StartHour)
	}
	if t.Weather.ForecastHour < 0 || t.Weather.ForecastHour >= engine.HoursPerDay {
		return fmt.Errorf("weather: forecast hour out of range: %d", t.Weather.ForecastHour)
	}
	if err := t.Grid.Validate(); err != nil {
		return err
	}
	if len(t.Governors) == 0 {
		return politics.ErrEmptyRoster
	}
	if _, err := politics.ParseFaction(t.Incumbent); err != nil {
		return err
	}
	return nil
}

// Roster builds the governor line of succession.
func (t Tuning) Roster() (politics.Roster, error) {
	return politics.NewRoster(t.Governors)
}

// IncumbentFaction returns the faction holding office at start.
func (t Tuning) IncumbentFaction() politics.Faction {
	f, err := politics.ParseFaction(t.Incumbent)
	if err != nil {
		return politics.Orange
	}
	return f
}
