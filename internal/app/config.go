package app

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`
	AppTimezone       string        `envconfig:"APP_TIMEZONE" default:"UTC"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	APIBaseURL         string        `envconfig:"API_BASE_URL" default:"http://127.0.0.1:8000/api/v1"`
	APITimeout         time.Duration `envconfig:"API_TIMEOUT" default:"15s"`
	APIServiceEmail    string        `envconfig:"API_SERVICE_EMAIL"`
	APIServicePassword string        `envconfig:"API_SERVICE_PASSWORD"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SessionSecret string        `envconfig:"SESSION_SECRET"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"12h"`

	CSRFSecret string `envconfig:"CSRF_SECRET"`

	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`

	LocationCacheTTL         time.Duration `envconfig:"LOCATION_CACHE_TTL" default:"10m"`
	LocationFetchConcurrency int           `envconfig:"LOCATION_FETCH_CONCURRENCY" default:"4"`
	LocationsWarmupCron      string        `envconfig:"LOCATIONS_WARMUP_CRON" default:"@every 15m"`
	WorkerConcurrency        int           `envconfig:"WORKER_CONCURRENCY" default:"2"`

	GotenbergURL string `envconfig:"GOTENBERG_URL" default:"http://127.0.0.1:3000"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg, err := LoadOpsConfig()
	if err != nil {
		return nil, err
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret must be provided")
	}
	if cfg.CSRFSecret == "" {
		return nil, errors.New("csrf secret must be provided")
	}
	return cfg, nil
}

// LoadOpsConfig reads the environment without requiring the web secrets, for
// tools that never serve browser sessions.
func LoadOpsConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.APIBaseURL == "" {
		return nil, errors.New("api base url must be provided")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// Location resolves AppTimezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	if c == nil || c.AppTimezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.AppTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// HasServiceAccount reports whether background jobs can sign in to the API.
func (c *Config) HasServiceAccount() bool {
	return c != nil && c.APIServiceEmail != "" && c.APIServicePassword != ""
}
