package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the optiscope relay and CLI.
type Config struct {
	Server    Server    `yaml:"server"`
	ThetaData ThetaData `yaml:"thetadata"`
	Yahoo     Yahoo     `yaml:"yahoo"`
	Options   Options   `yaml:"options"`
	Logging   Logging   `yaml:"logging"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ThetaData describes the local options-data daemon.
type ThetaData struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	RatePerSec float64       `yaml:"rate_per_sec"`
	Burst      int           `yaml:"burst"`
}

// Yahoo describes the public chart provider.
type Yahoo struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// Options tunes the option chain aggregator.
type Options struct {
	MaxConcurrent int `yaml:"max_concurrent"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Addr returns the listen address.
func (s Server) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ---------------------------------------------------------------------------
// Defaults
// ---------------------------------------------------------------------------

const (
	DefaultPort          = 3001
	DefaultThetaDataURL  = "http://localhost:25510"
	DefaultYahooURL      = "https://query1.finance.yahoo.com"
	DefaultTimeout       = 30 * time.Second
	DefaultMaxConcurrent = 8
	DefaultUserAgent     = "Mozilla/5.0 (compatible; optiscope)"
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: Server{Port: DefaultPort},
		ThetaData: ThetaData{
			BaseURL: DefaultThetaDataURL,
			Timeout: DefaultTimeout,
		},
		Yahoo: Yahoo{
			BaseURL:   DefaultYahooURL,
			Timeout:   DefaultTimeout,
			UserAgent: DefaultUserAgent,
		},
		Options: Options{MaxConcurrent: DefaultMaxConcurrent},
		Logging: Logging{Level: "info", Format: "json"},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path on top of the
// defaults, then applies environment variable overrides. An empty path or a
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a .env file into the process
// environment. Variables that are already set win. A missing file is not an
// error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.ThetaData.BaseURL == "" {
		return errors.New("thetadata.base_url is required")
	}
	if c.Yahoo.BaseURL == "" {
		return errors.New("yahoo.base_url is required")
	}
	if c.Options.MaxConcurrent < 1 {
		return fmt.Errorf("options.max_concurrent %d must be positive", c.Options.MaxConcurrent)
	}
	return nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("RELAY_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("RELAY_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RELAY_PORT: %w", err)
		}
		cfg.Server.Port = port
	}

	if v := os.Getenv("THETADATA_URL"); v != "" {
		cfg.ThetaData.BaseURL = v
	}
	if v := os.Getenv("YAHOO_URL"); v != "" {
		cfg.Yahoo.BaseURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	return nil
}
