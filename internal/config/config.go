package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-subscriber/internal/tracing"
	"github.com/ovaphlow/pitchfork/service-subscriber/pkg/database"
	"github.com/ovaphlow/pitchfork/service-subscriber/pkg/utilities"
)

// Config is the full service configuration, read from the environment.
type Config struct {
	HTTPAddr        string `env:"HTTP_ADDR" envDefault:"0.0.0.0:8431"`
	SubscribersFile string `env:"SUBSCRIBERS_FILE"`
	SnowflakeNode   int64  `env:"SNOWFLAKE_NODE" envDefault:"1"`
	AuthJWTSecret   string `env:"AUTH_JWT_SECRET"`

	Database database.Config
	Log      utilities.Config
	Tracing  tracing.Config
}

// Load reads a .env file when present and parses the environment into Config.
func Load(files ...string) (Config, error) {
	// best-effort: a missing .env just means real env and defaults are used
	_ = godotenv.Load(files...)

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
