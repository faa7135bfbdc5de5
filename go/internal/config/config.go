package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// StorageBackend selects where the ledger and uploads live.
type StorageBackend string

const (
	StorageFS       StorageBackend = "fs"
	StorageNATS     StorageBackend = "nats"
	StoragePostgres StorageBackend = "postgres"
)

// Config is the intake server configuration read from the environment.
type Config struct {
	HTTPAddr       string         `env:"HTTP_ADDR" envDefault:":8080"`
	TimeZone       string         `env:"TIME_ZONE" envDefault:"America/New_York"`
	ScheduleFile   string         `env:"SCHEDULE_FILE" envDefault:"tournaments.yaml"`
	StorageBackend StorageBackend `env:"STORAGE_BACKEND" envDefault:"fs"`
	SubmissionRoot string         `env:"SUBMISSION_ROOT" envDefault:"submissions"`
	LedgerFileName string         `env:"LEDGER_FILE_NAME" envDefault:"submissions.csv"`
	StrictLoad     bool           `env:"LEDGER_STRICT_LOAD" envDefault:"false"`
	MaxUploadBytes int64          `env:"MAX_UPLOAD_BYTES" envDefault:"104857600"`

	NATSURL       string        `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	NATSBucket    string        `env:"NATS_BUCKET" envDefault:"submissions"`
	PublishEvents bool          `env:"PUBLISH_EVENTS" envDefault:"false"`
	ShutdownWait  time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// NewConfigFromEnv parses and checks the configuration.
func NewConfigFromEnv() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	switch c.StorageBackend {
	case StorageFS, StorageNATS, StoragePostgres:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q (should be one of fs, nats, postgres)", c.StorageBackend)
	}
	if c.ScheduleFile == "" {
		return fmt.Errorf("SCHEDULE_FILE is required")
	}
	if c.StorageBackend == StorageFS && c.SubmissionRoot == "" {
		return fmt.Errorf("SUBMISSION_ROOT is required for the fs backend")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return nil
}

// NeedsNATS reports whether the server has to connect to NATS.
func (c Config) NeedsNATS() bool {
	return c.StorageBackend == StorageNATS || c.PublishEvents
}

// Level returns the parsed LOG_LEVEL.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
