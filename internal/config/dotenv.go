package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

type Config struct {
	Port                     string `env:"PORT" envDefault:"8080"`
	DatabaseURL              string `env:"DATABASE_URL"`
	AutoMigrate              bool   `env:"AUTO_MIGRATE" envDefault:"false"`
	CookieSecret             string `env:"COOKIE_SECRET" envDefault:"scoreboard-dev-secret"`
	CookieSecure             bool   `env:"COOKIE_SECURE" envDefault:"false"`
	WSSendBuffer             int    `env:"WS_SEND_BUFFER" envDefault:"16"`
	DBMaxOpenConns           int    `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	DBMaxIdleConns           int    `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeSeconds int    `env:"DB_CONN_MAX_LIFETIME_SECONDS" envDefault:"300"`
	DBConnMaxIdleTimeSeconds int    `env:"DB_CONN_MAX_IDLE_SECONDS" envDefault:"60"`
}

func Default() Config {
	return Config{
		Port:                     "8080",
		CookieSecret:             "scoreboard-dev-secret",
		WSSendBuffer:             16,
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
	}
}

// Load reads Config from the environment. Non-positive sizes fall back to the
// defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	defaults := Default()
	if cfg.WSSendBuffer <= 0 {
		cfg.WSSendBuffer = defaults.WSSendBuffer
	}
	if cfg.DBMaxOpenConns <= 0 {
		cfg.DBMaxOpenConns = defaults.DBMaxOpenConns
	}
	if cfg.DBMaxIdleConns <= 0 {
		cfg.DBMaxIdleConns = defaults.DBMaxIdleConns
	}
	if cfg.DBConnMaxLifetimeSeconds <= 0 {
		cfg.DBConnMaxLifetimeSeconds = defaults.DBConnMaxLifetimeSeconds
	}
	if cfg.DBConnMaxIdleTimeSeconds <= 0 {
		cfg.DBConnMaxIdleTimeSeconds = defaults.DBConnMaxIdleTimeSeconds
	}
	if cfg.CookieSecret == "" {
		return Config{}, fmt.Errorf("COOKIE_SECRET must not be empty")
	}
	return cfg, nil
}
