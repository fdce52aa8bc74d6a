package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

// Config is everything the server reads from the environment. A .env file in
// the working directory is honored for local development; real deployments
// set the variables directly.
type Config struct {
	Addr        string
	DatabaseURL string
	Env         string
}

func Load() (Config, error) {
	// Missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg := Config{
		Addr:        os.Getenv("ADDR"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Env:         os.Getenv("APP_ENV"),
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	return cfg, nil
}

func (c Config) Production() bool { return c.Env == "production" }
