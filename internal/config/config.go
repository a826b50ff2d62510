package config

import (
	"fmt"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv   string `env:"APP_ENV" envDefault:"production"`

	// StorageDriver selects the local snapshot store: "file" or "postgres".
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"file"`
	DataDir       string `env:"DATA_DIR" envDefault:"./data"`

	DatabaseURL    string `env:"DATABASE_URL"`
	DBMaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	DBMaxIdleConns int    `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`

	// SyncBaseURL points at the hosted record store; empty disables the
	// sync endpoints entirely.
	SyncBaseURL    string `env:"SYNC_BASE_URL"`
	SyncDebounceMS int    `env:"SYNC_DEBOUNCE_MS" envDefault:"1000"`
	SyncTimeoutS   int    `env:"SYNC_TIMEOUT_S" envDefault:"5"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if cfg.StorageDriver == "postgres" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("config.Load: DATABASE_URL is required with STORAGE_DRIVER=postgres")
	}
	return &cfg, nil
}
