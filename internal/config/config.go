// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-task-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-task-go/pkg/utilities"
)

// Store drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type HTTPConfig struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:5001"`
	APIPrefix       string        `env:"API_PREFIX" envDefault:"/api"`
	CORSOrigin      string        `env:"CORS_ORIGIN" envDefault:"http://localhost:5173"`
	BodyLimitBytes  int64         `env:"BODY_LIMIT_BYTES" envDefault:"10485760"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type AuthConfig struct {
	JWTSecret  string        `env:"JWT_SECRET"`
	JWTExpire  time.Duration `env:"JWT_EXPIRE" envDefault:"168h"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"12"`
}

type RateLimitConfig struct {
	Max      int           `env:"RATE_LIMIT_MAX" envDefault:"100"`
	Window   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m"`
	RedisURL string        `env:"REDIS_URL"`
}

type StoreConfig struct {
	Driver        string `env:"STORE_DRIVER" envDefault:"mongo"`
	SnowflakeNode int64  `env:"SNOWFLAKE_NODE" envDefault:"1"`
	Mongo         database.MongoConfig
	Postgres      database.PostgresConfig
}

// Config holds all configuration of the service.
type Config struct {
	HTTP      HTTPConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Store     StoreConfig
	Log       utilities.Config
}

// Load reads a .env file when one exists, then parses the environment.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}
	return Parse()
}

// Parse reads the configuration from the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case DriverMongo, DriverPostgres, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be one of mongo, postgres, memory (got %q)", c.Store.Driver))
	}
	if c.Auth.JWTSecret == "" && c.Store.Driver != DriverMemory {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Auth.JWTExpire <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRE must be positive"))
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_MAX and RATE_LIMIT_WINDOW must be positive"))
	}
	if c.HTTP.APIPrefix != "" && !strings.HasPrefix(c.HTTP.APIPrefix, "/") {
		errs = append(errs, errors.New("API_PREFIX must start with /"))
	}
	c.HTTP.APIPrefix = strings.TrimSuffix(c.HTTP.APIPrefix, "/")
	return errors.Join(errs...)
}
