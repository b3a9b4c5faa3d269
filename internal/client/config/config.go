package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "BACKPACK_"

// Config holds runtime settings for the backpack CLI.
//
// Durations are time.Duration values; files may write them as "30s" or as
// integer nanoseconds.
type Config struct {
	ServerRoot  string `env:"SERVER_ROOT" validate:"required,url"`
	ClientID    string `env:"CLIENT_ID" validate:"required"`
	RedirectURI string `env:"REDIRECT_URI" validate:"omitempty,url"`

	DataDir      string `env:"DATA_DIR"`
	CacheBackend string `env:"CACHE_BACKEND" validate:"oneof=sqlite redis"`
	RedisURL     string `env:"REDIS_URL" validate:"required_if=CacheBackend redis"`
	// CacheKey encrypts the cache when set. Read from the environment only.
	CacheKey string `env:"CACHE_KEY"`

	LogLevel   string `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat  string `env:"LOG_FORMAT" validate:"oneof=json console"`
	LogBackend string `env:"LOG_BACKEND" validate:"oneof=zap slog"`

	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT" validate:"gt=0"`
	RequestsPerSecond   float64       `env:"REQUESTS_PER_SECOND" validate:"gte=0"`
	SyncConcurrency     int           `env:"SYNC_CONCURRENCY" validate:"min=1,max=32"`
	OnlineCheckInterval time.Duration `env:"ONLINE_CHECK_INTERVAL" validate:"gt=0"`
	MetricsAddr         string        `env:"METRICS_ADDR" validate:"omitempty,hostname_port"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerRoot = "http://localhost:8000/"
	c.ClientID = "backpack-cli"
	c.RedirectURI = "http://localhost:8000/app/callback"
	c.CacheBackend = "sqlite"
	c.LogLevel = "info"
	c.LogFormat = "console"
	c.LogBackend = "zap"
	c.RequestTimeout = 30 * time.Second
	c.RequestsPerSecond = 10
	c.SyncConcurrency = 4
	c.OnlineCheckInterval = 15 * time.Second
}

// APIRoot returns the REST root, ServerRoot + "api/".
func (c *Config) APIRoot() string {
	root := c.ServerRoot
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}
	return root + "api/"
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Sources lists the optional inputs of Load. Each later source overrides
// the earlier ones.
type Sources struct {
	File    string // JSON or YAML, chosen by extension
	DotEnv  string // .env file, loaded if present
	Environ []string
	Flags   *Overrides
}

// Load constructs a Config: defaults, then the config file, then the
// environment, then explicit flags. The result is validated.
func Load(src Sources) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if src.File != "" {
		if err := parseFile(cfg, src.File); err != nil {
			return nil, err
		}
	}
	if err := parseEnv(cfg, src.DotEnv, src.Environ); err != nil {
		return nil, err
	}
	src.Flags.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
