// Package config loads server settings from defaults, an optional YAML file,
// a .env file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load
const (
	EnvConfigFile      = "FOURINROW_CONFIG"
	EnvPort            = "PORT"
	EnvLogLevel        = "LOG_LEVEL"
	EnvLogFormat       = "LOG_FORMAT"
	EnvDataDir         = "DATA_DIR"
	EnvInMemoryStore   = "IN_MEMORY_STORE"
	EnvAdvisorDepth    = "ADVISOR_DEPTH"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)

// Config holds every server setting
type Config struct {
	Port            string        `yaml:"port" validate:"required,numeric"`
	LogLevel        string        `yaml:"log_level" validate:"oneof=trace debug info warn warning error fatal panic"`
	LogFormat       string        `yaml:"log_format" validate:"oneof=text json"`
	DataDir         string        `yaml:"data_dir" validate:"required_if=InMemoryStore false"`
	InMemoryStore   bool          `yaml:"in_memory_store"`
	AdvisorDepth    int           `yaml:"advisor_depth" validate:"gte=1,lte=8"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		Port:            "8080",
		LogLevel:        "info",
		LogFormat:       "text",
		DataDir:         "./data",
		AdvisorDepth:    4,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Load builds the configuration. path names a YAML file; when empty the
// FOURINROW_CONFIG variable is consulted. A missing .env file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(EnvPort); ok {
		c.Port = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv(EnvLogFormat); ok {
		c.LogFormat = v
	}
	if v, ok := os.LookupEnv(EnvDataDir); ok {
		c.DataDir = v
	}
	if v, ok := os.LookupEnv(EnvInMemoryStore); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvInMemoryStore, err)
		}
		c.InMemoryStore = b
	}
	if v, ok := os.LookupEnv(EnvAdvisorDepth); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvAdvisorDepth, err)
		}
		c.AdvisorDepth = n
	}
	if v, ok := os.LookupEnv(EnvShutdownTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvShutdownTimeout, err)
		}
		c.ShutdownTimeout = d
	}
	return nil
}

// Validate checks field constraints
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Addr is the listen address for the HTTP server
func (c Config) Addr() string {
	return ":" + c.Port
}
