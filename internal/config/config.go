// Package config loads the abtest configuration.
//
// Values are layered: Default, then the YAML file, then ABTEST_* environment
// variables. Command line flags are applied by the caller on top.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/moguls753/abtest/internal/logging"
	"github.com/moguls753/abtest/internal/statistics"
	"github.com/moguls753/abtest/internal/store"
)

// ErrInvalid is returned when a loaded configuration fails validation
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete abtest configuration
type Config struct {
	Log        logging.Config   `yaml:"log"`
	Store      store.Config     `yaml:"store"`
	Defaults   store.Settings   `yaml:"defaults"` // settings of new sessions
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Simulation SimulationConfig `yaml:"simulation"`
	Session    string           `yaml:"session"` // empty selects the per-user default
}

// AnalysisConfig holds the analysis parameters that are not per-session
type AnalysisConfig struct {
	Delta      float64 `yaml:"delta" validate:"gte=0,lt=1"`
	PriorAlpha float64 `yaml:"prior_alpha" validate:"gt=0"`
	PriorBeta  float64 `yaml:"prior_beta" validate:"gt=0"`
}

// Base returns the analysis with default alpha and epsilon
func (a AnalysisConfig) Base() statistics.Analysis {
	out := statistics.DefaultAnalysis()
	out.Delta = a.Delta
	out.Prior = statistics.BetaParams{Alpha: a.PriorAlpha, Beta: a.PriorBeta}
	return out
}

// SimulationConfig holds defaults of the simulate commands
type SimulationConfig struct {
	Trials  int           `yaml:"trials" validate:"gt=0"`
	Workers int           `yaml:"workers" validate:"gt=0"`
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"` // 0 disables
}

// Dir returns ~/.abtest
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".abtest"), nil
}

// Default returns the built-in configuration: a SQLite store under ~/.abtest
func Default() Config {
	dsn := "abtest.db"
	if dir, err := Dir(); err == nil {
		dsn = filepath.Join(dir, "abtest.db")
	}

	return Config{
		Log: logging.DefaultConfig(),
		Store: store.Config{
			Backend: store.BackendSQLite,
			DSN:     dsn,
			Redis: store.RedisConfig{
				Addr: "localhost:6379",
			},
		},
		Defaults: store.DefaultSettings(),
		Analysis: AnalysisConfig{
			Delta:      0,
			PriorAlpha: 1,
			PriorBeta:  1,
		},
		Simulation: SimulationConfig{
			Trials:  1000,
			Workers: 4,
		},
	}
}

// DefaultPath returns ~/.abtest/config.yaml
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the configuration. An empty path reads the default path, where a
// missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

var envOverrides = []struct {
	key   string
	apply func(*Config, string)
}{
	{"ABTEST_LOG_LEVEL", func(c *Config, v string) { c.Log.Level = v }},
	{"ABTEST_STORE_BACKEND", func(c *Config, v string) { c.Store.Backend = v }},
	{"ABTEST_STORE_DSN", func(c *Config, v string) { c.Store.DSN = v }},
	{"ABTEST_REDIS_ADDR", func(c *Config, v string) { c.Store.Redis.Addr = v }},
	{"ABTEST_REDIS_PASSWORD", func(c *Config, v string) { c.Store.Redis.Password = v }},
	{"ABTEST_SESSION", func(c *Config, v string) { c.Session = v }},
}

func applyEnv(c *Config) {
	for _, o := range envOverrides {
		if v, ok := os.LookupEnv(o.key); ok && v != "" {
			o.apply(c, v)
		}
	}
}

// Save writes cfg as YAML, creating the directory if needed
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
