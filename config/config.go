/*
Package config loads the planner server's settings.

PRECEDENCE (lowest to highest):
  1. DefaultConfig
  2. config.toml (path given to Load; a missing file is not an error)
  3. .env in the working directory, then COMP_PLANNER_* variables
  4. command-line flags, applied by cmd/server

ENVIRONMENT:
  COMP_PLANNER_HOST            server.host
  COMP_PLANNER_PORT            server.port
  COMP_PLANNER_STORAGE         storage.driver (sqlite | memory)
  COMP_PLANNER_DB              storage.path
  COMP_PLANNER_LOG_LEVEL       log.level
  COMP_PLANNER_LOG_FORMAT      log.format (console | json)
  COMP_PLANNER_ADDITIONAL_UNIT planning.additional_unit
  COMP_PLANNER_BUDGET          planning.budget
  COMP_PLANNER_SESSION_IDLE    sessions.idle_minutes
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"

	"github.com/warp/comp-planner/matrix"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "COMP_PLANNER_"

// AppConfig is the full server configuration.
type AppConfig struct {
	Server   ServerConfig   `toml:"server"`
	Storage  StorageConfig  `toml:"storage"`
	Log      LogConfig      `toml:"log"`
	Planning PlanningConfig `toml:"planning"`
	Sessions SessionConfig  `toml:"sessions"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type StorageConfig struct {
	// Driver is "sqlite" or "memory".
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// PlanningConfig holds defaults applied to new sessions.
type PlanningConfig struct {
	AdditionalUnit string `toml:"additional_unit"`
	// PayZones is used when an uploaded workbook has no zone column.
	PayZones []int `toml:"pay_zones"`
	// Budget is a decimal string; empty or "0" means unbounded.
	Budget string `toml:"budget"`
}

// SessionConfig controls the idle-session reaper.
type SessionConfig struct {
	IdleMinutes   int `toml:"idle_minutes"`
	ReapEveryMins int `toml:"reap_every_minutes"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server:   ServerConfig{Host: "", Port: 8080},
		Storage:  StorageConfig{Driver: "sqlite", Path: "planner.db"},
		Log:      LogConfig{Level: "info", Format: "console"},
		Planning: PlanningConfig{AdditionalUnit: string(matrix.UnitPercent)},
		Sessions: SessionConfig{IdleMinutes: 120, ReapEveryMins: 10},
	}
}

// Load reads path over the defaults, then applies the environment. An
// empty path skips the file.
func Load(path string) (*AppConfig, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	// .env is optional.
	_ = godotenv.Load()
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(EnvPrefix + key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := strings.TrimSpace(getenv(EnvPrefix + key))
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
		return nil
	}

	str("HOST", &c.Server.Host)
	str("STORAGE", &c.Storage.Driver)
	str("DB", &c.Storage.Path)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("ADDITIONAL_UNIT", &c.Planning.AdditionalUnit)
	str("BUDGET", &c.Planning.Budget)
	if err := num("PORT", &c.Server.Port); err != nil {
		return err
	}
	return num("SESSION_IDLE", &c.Sessions.IdleMinutes)
}

// Validate checks value ranges and enumerations.
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for sqlite")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.driver %q: want sqlite or memory", c.Storage.Driver)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format %q: want console or json", c.Log.Format)
	}
	if _, err := matrix.ParseUnit(c.Planning.AdditionalUnit); err != nil {
		return fmt.Errorf("planning.additional_unit: %w", err)
	}
	if _, err := c.Planning.BudgetAmount(); err != nil {
		return err
	}
	for _, z := range c.Planning.PayZones {
		if z <= 0 {
			return fmt.Errorf("planning.pay_zones: zone %d must be positive", z)
		}
	}
	return nil
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Unit returns the parsed additional unit.
func (p PlanningConfig) Unit() matrix.Unit {
	u, err := matrix.ParseUnit(p.AdditionalUnit)
	if err != nil {
		return matrix.UnitPercent
	}
	return u
}

// BudgetAmount parses Budget. Empty is zero.
func (p PlanningConfig) BudgetAmount() (decimal.Decimal, error) {
	if strings.TrimSpace(p.Budget) == "" {
		return decimal.Zero, nil
	}
	b, err := decimal.NewFromString(strings.TrimSpace(p.Budget))
	if err != nil {
		return decimal.Zero, fmt.Errorf("planning.budget %q: %w", p.Budget, err)
	}
	if b.IsNegative() {
		return decimal.Zero, fmt.Errorf("planning.budget %q is negative", p.Budget)
	}
	return b, nil
}
