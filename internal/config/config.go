package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all environment backed configuration for the chat API.
type Config struct {
	// HTTP Server
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`
	MetricsPort int    `env:"METRICS_PORT" envDefault:"9091"`
	DatabaseURL string `env:"DATABASE_URL,notEmpty"`

	// LLM provider
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	LLMModel      string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`

	// Summarization
	SummarizeTimeout time.Duration `env:"SUMMARIZE_TIMEOUT" envDefault:"30s"`

	// Pagination
	DefaultPageSize int `env:"DEFAULT_PAGE_SIZE" envDefault:"10"`
	MaxPageSize     int `env:"MAX_PAGE_SIZE" envDefault:"100"`

	// Realtime
	WSReadLimit     int64         `env:"WS_READ_LIMIT" envDefault:"65536"`
	WSWriteTimeout  time.Duration `env:"WS_WRITE_TIMEOUT" envDefault:"10s"`
	InsightMaxChats int           `env:"INSIGHT_MAX_CHATS" envDefault:"5"`

	// Observability / Logging
	ServiceName string `env:"SERVICE_NAME" envDefault:"chat-api"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"console"`

	// Features
	AutoMigrate bool `env:"AUTO_MIGRATE" envDefault:"true"`
}

// Load parses environment variables into Config and performs minimal validation.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.DefaultPageSize < 1 {
		return nil, errors.New("DEFAULT_PAGE_SIZE must be at least 1")
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		return nil, errors.New("MAX_PAGE_SIZE must not be smaller than DEFAULT_PAGE_SIZE")
	}
	if cfg.SummarizeTimeout <= 0 {
		return nil, errors.New("SUMMARIZE_TIMEOUT must be positive")
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	return cfg, nil
}
