package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	GeminiAPIKey    string        `env:"GEMINI_API_KEY"`
	GeminiModel     string        `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	MaxOutputTokens int32         `env:"GEMINI_MAX_OUTPUT_TOKENS" envDefault:"1000"`
	AITimeout       time.Duration `env:"AI_TIMEOUT" envDefault:"60s"`

	StoreDriver   string `env:"STORE_DRIVER" envDefault:"memory"` // memory or sqlite
	DatabaseURL   string `env:"DATABASE_URL" envDefault:"w2s.db"`
	SeedUsers     bool   `env:"SEED_USERS" envDefault:"true"`
	CurrentUserID int64  `env:"CURRENT_USER_ID" envDefault:"1"`

	HTTPPort       string   `env:"HTTP_PORT" envDefault:"3001"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	// Used by the terminal chat client.
	APIBaseURL string `env:"W2S_API_URL" envDefault:"http://localhost:3001/api"`
}

// Load reads a .env file when present, then parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, relying on environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	if cfg.StoreDriver != "memory" && cfg.StoreDriver != "sqlite" {
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = 1000
	}
	return cfg, nil
}

// RequireGemini reports whether the server has what it needs to reach the model.
func (c *Config) RequireGemini() error {
	if strings.TrimSpace(c.GeminiAPIKey) == "" {
		return errors.New("GEMINI_API_KEY environment variable is required")
	}
	return nil
}
