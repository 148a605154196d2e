package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	baseApiUrl                   = "http://localhost:8000"
	defaultDBPath                = "tripchat.db"
	defaultRevealDelay           = 20 * time.Millisecond
	defaultResponseHeaderTimeout = 30 * time.Second

	envPrefix = "TRIPCHAT"
)

// Viper keys
const (
	KeyBaseURL               = "base_url"
	KeyDBPath                = "db_path"
	KeyRevealDelay           = "reveal_delay"
	KeyResponseHeaderTimeout = "response_header_timeout"
	KeyDebug                 = "debug"
)

type Config struct {
	BaseURL               string
	DBPath                string
	RevealDelay           time.Duration
	ResponseHeaderTimeout time.Duration
	Debug                 bool
}

func NewConfig() *Config {
	return &Config{
		BaseURL:               baseApiUrl,
		DBPath:                defaultDBPath,
		RevealDelay:           defaultRevealDelay,
		ResponseHeaderTimeout: defaultResponseHeaderTimeout,
	}
}

// NewViper returns a viper instance with defaults registered and
// TRIPCHAT_* environment variables bound. Values from envFiles are loaded
// into the environment first; missing files are ignored.
func NewViper(envFiles ...string) *viper.Viper {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			slog.Debug("env file not loaded", "error", err)
		}
	}

	d := NewConfig()
	v := viper.New()
	v.SetDefault(KeyBaseURL, d.BaseURL)
	v.SetDefault(KeyDBPath, d.DBPath)
	v.SetDefault(KeyRevealDelay, d.RevealDelay)
	v.SetDefault(KeyResponseHeaderTimeout, d.ResponseHeaderTimeout)
	v.SetDefault(KeyDebug, d.Debug)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load builds a validated Config from v
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		BaseURL:               strings.TrimRight(v.GetString(KeyBaseURL), "/"),
		DBPath:                v.GetString(KeyDBPath),
		RevealDelay:           v.GetDuration(KeyRevealDelay),
		ResponseHeaderTimeout: v.GetDuration(KeyResponseHeaderTimeout),
		Debug:                 v.GetBool(KeyDebug),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base url %q: %w", c.BaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid base url %q: must be an absolute http(s) url", c.BaseURL)
	}
	if c.DBPath == "" {
		return errors.New("db path must not be empty")
	}
	if c.RevealDelay < 0 {
		return fmt.Errorf("reveal delay must not be negative, got %s", c.RevealDelay)
	}
	if c.ResponseHeaderTimeout < 0 {
		return fmt.Errorf("response header timeout must not be negative, got %s", c.ResponseHeaderTimeout)
	}
	return nil
}
