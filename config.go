package lumetric

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the client configuration. The zero value of every optional
// field is replaced with the documented default at construction time.
type Config struct {
	// APIKey is the project API key sent with every capture and remote
	// evaluation. Required.
	APIKey string `env:"LUMETRIC_API_KEY"`

	// PersonalAPIKey is the elevated credential required to fetch flag
	// definitions. Its presence gates local flag evaluation.
	PersonalAPIKey string `env:"LUMETRIC_PERSONAL_API_KEY"`

	// Endpoint is the base URL of the Lumetric API.
	Endpoint string `env:"LUMETRIC_ENDPOINT" envDefault:"https://app.lumetric.io"`

	// EnableLocalEvaluation turns on the background definition poller.
	// It additionally requires PersonalAPIKey to be set.
	EnableLocalEvaluation bool `env:"LUMETRIC_LOCAL_EVALUATION" envDefault:"true"`

	// FlagsPollInterval is how often flag definitions are refreshed.
	FlagsPollInterval time.Duration `env:"LUMETRIC_FLAGS_POLL_INTERVAL" envDefault:"30s"`

	// FlagsRequestTimeout bounds a single definitions fetch.
	FlagsRequestTimeout time.Duration `env:"LUMETRIC_FLAGS_REQUEST_TIMEOUT" envDefault:"10s"`

	// MaxBatchEvents is the sender buffer size that triggers an immediate
	// flush.
	MaxBatchEvents int `env:"LUMETRIC_MAX_BATCH_EVENTS" envDefault:"100"`

	// MaxBatchTime is how long a partial batch may wait before flushing.
	MaxBatchTime time.Duration `env:"LUMETRIC_MAX_BATCH_TIME" envDefault:"5s"`

	// SenderPoolSize is the number of concurrent sender workers.
	SenderPoolSize int `env:"LUMETRIC_SENDER_POOL_SIZE" envDefault:"4"`
}

var loadEnvOnce sync.Once

// LoadConfig reads the configuration from environment variables, loading a
// .env file first if one exists.
func LoadConfig() (Config, error) {
	loadEnvOnce.Do(func() {
		// The .env file is optional.
		_ = godotenv.Load()
	})

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment config: %w", err)
	}
	return cfg, nil
}

// Validate reports configuration errors that prevent the client from being
// constructed at all. Feature-scoped problems, such as local evaluation
// requested without a personal API key, are not errors here: the feature
// disables itself with a log line instead.
func (c Config) Validate() error {
	var errs []error
	if c.APIKey == "" {
		errs = append(errs, ErrMissingAPIKey)
	}
	if c.MaxBatchEvents < 0 {
		errs = append(errs, fmt.Errorf("max batch events must be positive, got %d", c.MaxBatchEvents))
	}
	if c.SenderPoolSize < 0 {
		errs = append(errs, fmt.Errorf("sender pool size must be positive, got %d", c.SenderPoolSize))
	}
	if c.MaxBatchTime < 0 {
		errs = append(errs, fmt.Errorf("max batch time must be positive, got %s", c.MaxBatchTime))
	}
	if c.FlagsPollInterval < 0 {
		errs = append(errs, fmt.Errorf("flags poll interval must be positive, got %s", c.FlagsPollInterval))
	}
	if c.FlagsRequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("flags request timeout must be positive, got %s", c.FlagsRequestTimeout))
	}
	return errors.Join(errs...)
}

// withDefaults fills zero-valued optional fields.
func (c Config) withDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = "https://app.lumetric.io"
	}
	if c.FlagsPollInterval == 0 {
		c.FlagsPollInterval = 30 * time.Second
	}
	if c.FlagsRequestTimeout == 0 {
		c.FlagsRequestTimeout = 10 * time.Second
	}
	if c.MaxBatchEvents == 0 {
		c.MaxBatchEvents = 100
	}
	if c.MaxBatchTime == 0 {
		c.MaxBatchTime = 5 * time.Second
	}
	if c.SenderPoolSize == 0 {
		c.SenderPoolSize = 4
	}
	return c
}
