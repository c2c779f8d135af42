// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every runtime knob of the service. Values come from the
// environment with an optional .env file for local development.
type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// Sessions and sign-in codes.
	SessionSecret string        `env:"SESSION_SECRET,required"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	MagicCodeTTL  time.Duration `env:"MAGIC_CODE_TTL" envDefault:"15m"`

	// Dashboard read bounds.
	DashboardLimit int `env:"DASHBOARD_LIMIT" envDefault:"50"`

	// Weekly publisher.
	PublishTopN           int           `env:"PUBLISH_TOP_N" envDefault:"20"`
	PublishMaxPerCat      int           `env:"PUBLISH_MAX_PER_CATEGORY" envDefault:"3"`
	PublishWeekday        int           `env:"PUBLISH_WEEKDAY" envDefault:"0"`
	PublishHour           int           `env:"PUBLISH_HOUR" envDefault:"0"`
	SchedulerTickInterval time.Duration `env:"SCHEDULER_TICK_INTERVAL" envDefault:"10m"`

	// Database pool.
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"25"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"5"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.PublishWeekday < 0 || c.PublishWeekday > 6 {
		return fmt.Errorf("PUBLISH_WEEKDAY must be 0..6, got %d", c.PublishWeekday)
	}

	if c.PublishHour < 0 || c.PublishHour > 23 {
		return fmt.Errorf("PUBLISH_HOUR must be 0..23, got %d", c.PublishHour)
	}

	if c.DashboardLimit <= 0 {
		return fmt.Errorf("DASHBOARD_LIMIT must be positive, got %d", c.DashboardLimit)
	}

	return nil
}
