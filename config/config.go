package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	BackendPostgres = "postgres"
	BackendDynamo   = "dynamodb"
	BackendRedis    = "redis"
	BackendNone     = "none"
)

type Config struct {
	Port           string        `env:"PORT" envDefault:"4000"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	JWTSecret      string        `env:"JWT_SECRET"`
	JWTIssuer      string        `env:"JWT_ISSUER"`
	StoreBackend   string        `env:"STORE_BACKEND" envDefault:"postgres"`
	DynamoTable    string        `env:"DYNAMO_TABLE" envDefault:"roshambo-matches"`
	AWSRegion      string        `env:"AWS_REGION" envDefault:"us-east-1"`
	LedgerBackend  string        `env:"LEDGER_BACKEND" envDefault:"postgres"`
	RedisURL       string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	MoveGrace      time.Duration `env:"MOVE_GRACE" envDefault:"2s"`
	OfferTTL       time.Duration `env:"OFFER_TTL" envDefault:"10m"`
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
	MaxRounds      int           `env:"MAX_ROUNDS" envDefault:"25"`
	MaxMoveTimeout int           `env:"MAX_MOVE_TIMEOUT" envDefault:"300"`
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.StoreBackend {
	case BackendPostgres:
	case BackendDynamo:
		if c.DynamoTable == "" {
			return errors.New("DYNAMO_TABLE is required when STORE_BACKEND=dynamodb")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.LedgerBackend {
	case BackendPostgres, BackendRedis, BackendNone:
	default:
		return fmt.Errorf("unknown LEDGER_BACKEND %q", c.LedgerBackend)
	}
	if c.NeedsDatabase() && c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.MoveGrace < 0 {
		return errors.New("MOVE_GRACE cannot be negative")
	}
	return nil
}

// NeedsDatabase reports whether any configured backend lives in postgres.
func (c Config) NeedsDatabase() bool {
	return c.StoreBackend == BackendPostgres || c.LedgerBackend == BackendPostgres
}
