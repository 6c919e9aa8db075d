package config

import (
	"encoding/base64"
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	ServerAddr     string   `env:"CHITCHAT_ADDR" envDefault:"localhost:8000"`
	DatabaseDSN    string   `env:"CHITCHAT_DATABASE_DSN"`
	SigningSecret  string   `env:"CHITCHAT_SIGNING_SECRET"`
	AllowedOrigins []string `env:"CHITCHAT_ALLOWED_ORIGINS" envSeparator:","`
	// RedisAddr is optional; when set, unread counters are kept in Redis
	// instead of process memory.
	RedisAddr string `env:"CHITCHAT_REDIS_ADDR"`

	SigningKey []byte `env:"-"`
}

// NewConfig builds a Config from the environment and validates it. The
// signing secret is expected to be base64 encoded.
func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.ServerAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if cfg.DatabaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if cfg.SigningSecret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}

	signingKey, err := base64.StdEncoding.DecodeString(cfg.SigningSecret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}
	cfg.SigningKey = signingKey

	return cfg, nil
}
