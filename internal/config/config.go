// Package config loads client and reference-server settings from defaults,
// an optional YAML file and HACKDOJO_* environment variables using Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sensei modes.
const (
	SenseiRemote = "remote"
	SenseiLocal  = "local"
)

// Config holds all hackdojo settings.
type Config struct {
	API    APIConfig    `mapstructure:"api"`
	Sensei SenseiConfig `mapstructure:"sensei"`
	Store  StoreConfig  `mapstructure:"store"`
	Server ServerConfig `mapstructure:"server"`
}

// APIConfig configures the backend client.
type APIConfig struct {
	// BaseURL is the absolute URL every endpoint path is joined to.
	BaseURL string `mapstructure:"base_url"`
	// Timeout bounds ordinary gateway calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// SenseiTimeout bounds assistant questions.
	SenseiTimeout time.Duration `mapstructure:"sensei_timeout"`
	// RunTimeout bounds code execution requests.
	RunTimeout time.Duration `mapstructure:"run_timeout"`
}

// SenseiConfig configures the assistant.
type SenseiConfig struct {
	// Mode is "remote" (backend answers) or "local" (configured LLM answers).
	Mode string `mapstructure:"mode"`
	// RatePerMinute paces questions; 0 disables pacing.
	RatePerMinute int `mapstructure:"rate_per_minute"`
}

// StoreConfig configures the device store.
type StoreConfig struct {
	// Path is the SQLite file; empty means the XDG data path.
	Path string `mapstructure:"path"`
}

// ServerConfig configures the reference backend started by `hackdojo serve`.
type ServerConfig struct {
	Addr        string        `mapstructure:"addr"`
	JWTSecret   string        `mapstructure:"jwt_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
	Curriculum  string        `mapstructure:"curriculum"`
	Python      string        `mapstructure:"python"`
	ExecTimeout time.Duration `mapstructure:"exec_timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:       "http://localhost:5000/api",
			Timeout:       15 * time.Second,
			SenseiTimeout: 10 * time.Second,
			RunTimeout:    30 * time.Second,
		},
		Sensei: SenseiConfig{
			Mode:          SenseiRemote,
			RatePerMinute: 6,
		},
		Server: ServerConfig{
			Addr:        ":5000",
			TokenTTL:    24 * time.Hour,
			Python:      "python3",
			ExecTimeout: 5 * time.Second,
		},
	}
}

// Load builds a Config from defaults, then the YAML file at path (or the
// default config path when path is empty and that file exists), then
// HACKDOJO_* environment variables such as HACKDOJO_API_BASE_URL.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix("HACKDOJO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		if p, err := DefaultPath(); err == nil {
			if _, statErr := os.Stat(p); statErr == nil {
				path = p
			}
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if p := os.Getenv("HACKDOJO_DB"); p != "" {
		cfg.Store.Path = p
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can resolve it during Unmarshal.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.sensei_timeout", d.API.SenseiTimeout)
	v.SetDefault("api.run_timeout", d.API.RunTimeout)
	v.SetDefault("sensei.mode", d.Sensei.Mode)
	v.SetDefault("sensei.rate_per_minute", d.Sensei.RatePerMinute)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.jwt_secret", d.Server.JWTSecret)
	v.SetDefault("server.token_ttl", d.Server.TokenTTL)
	v.SetDefault("server.curriculum", d.Server.Curriculum)
	v.SetDefault("server.python", d.Server.Python)
	v.SetDefault("server.exec_timeout", d.Server.ExecTimeout)
}

// Validate checks values that would otherwise fail late and confusingly.
func (c Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("config: api.base_url must be an absolute URL, got %q", c.API.BaseURL)
	}

	switch c.Sensei.Mode {
	case SenseiRemote, SenseiLocal:
	default:
		return fmt.Errorf("config: unknown sensei.mode %q (want remote or local)", c.Sensei.Mode)
	}
	if c.Sensei.RatePerMinute < 0 {
		return errors.New("config: sensei.rate_per_minute must not be negative")
	}

	timeouts := []struct {
		key string
		d   time.Duration
	}{
		{"api.timeout", c.API.Timeout},
		{"api.sensei_timeout", c.API.SenseiTimeout},
		{"api.run_timeout", c.API.RunTimeout},
		{"server.token_ttl", c.Server.TokenTTL},
		{"server.exec_timeout", c.Server.ExecTimeout},
	}
	for _, t := range timeouts {
		if t.d <= 0 {
			return fmt.Errorf("config: %s must be positive", t.key)
		}
	}
	return nil
}

// DefaultPath resolves $XDG_CONFIG_HOME/hackdojo/config.yaml, falling back
// to ~/.config/hackdojo/config.yaml.
func DefaultPath() (string, error) {
	cfgHome := os.Getenv("XDG_CONFIG_HOME")
	if cfgHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		cfgHome = filepath.Join(home, ".config")
	}
	return filepath.Join(cfgHome, "hackdojo", "config.yaml"), nil
}
