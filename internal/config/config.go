// Package config loads the settings of the reviewctl client.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	pkgconfig "github.com/utafrali/fitvibe/pkg/config"
)

// Config holds the client configuration.
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"warn"`

	// Backend
	APIURL     string        `env:"FITVIBE_API_URL" envDefault:"http://localhost:8010"`
	Timeout    time.Duration `env:"FITVIBE_HTTP_TIMEOUT" envDefault:"10s"`
	MaxRetries int           `env:"FITVIBE_HTTP_MAX_RETRIES" envDefault:"0"`

	// Session cookie value. Usually minted with `reviewctl token`.
	SessionToken string `env:"FITVIBE_SESSION"`

	// Used by `reviewctl token` to mint development sessions.
	JWTSecret string `env:"JWT_SECRET"`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:"fitvibe"`

	// Circuit breaker
	BreakerFailureRatio float64       `env:"FITVIBE_CB_FAILURE_RATIO" envDefault:"0.6"`
	BreakerTimeout      time.Duration `env:"FITVIBE_CB_TIMEOUT" envDefault:"30s"`

	LanguageFile string `env:"FITVIBE_LANGUAGE_FILE"`
}

// Load reads configuration from .env and the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadWithDotEnv(cfg); err != nil {
		return nil, fmt.Errorf("load client config: %w", err)
	}
	if cfg.LanguageFile == "" {
		cfg.LanguageFile = defaultLanguageFile()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid FITVIBE_API_URL: %q", c.APIURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid FITVIBE_HTTP_TIMEOUT: %s", c.Timeout)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 5 {
		return fmt.Errorf("invalid FITVIBE_HTTP_MAX_RETRIES: %d", c.MaxRetries)
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		return fmt.Errorf("invalid FITVIBE_CB_FAILURE_RATIO: %v", c.BreakerFailureRatio)
	}
	return nil
}

func defaultLanguageFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "fitvibe", "language")
}
