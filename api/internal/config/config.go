package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`
	Mode string `env:"APP_MODE" envDefault:"development"`

	// Key sources, checked in field order by APIKey.
	GoogleAPIKey        string `env:"GOOGLE_API_KEY"`
	GeminiAPIKey        string `env:"GEMINI_API_KEY"`
	GoogleAPIKeyStaging string `env:"GOOGLE_API_KEY_STAGING"`
	GoogleAPIKeySecret  string `env:"GOOGLE_API_KEY_FILE,file"`

	GeminiModel       string        `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
	GeminiRESTBaseURL string        `env:"GEMINI_REST_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta/models"`
	LLMTimeout        time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`

	PromptsFile string `env:"PROMPTS_FILE"`

	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"50"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"3"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"14"`

	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
}

// Load reads an optional .env file and then the process environment.
// A missing env file is not an error; the process environment always wins.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	if cfg.Mode != ModeProduction {
		cfg.Mode = ModeDevelopment
	}
	cfg.GeminiModel = strings.TrimSpace(cfg.GeminiModel)
	cfg.GeminiRESTBaseURL = strings.TrimRight(strings.TrimSpace(cfg.GeminiRESTBaseURL), "/")
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = 60 * time.Second
	}
	return &cfg, nil
}

// APIKey returns the first non-empty credential: GOOGLE_API_KEY,
// GEMINI_API_KEY, GOOGLE_API_KEY_STAGING, then the secret file contents.
func (c *Config) APIKey() string {
	for _, k := range []string{c.GoogleAPIKey, c.GeminiAPIKey, c.GoogleAPIKeyStaging, c.GoogleAPIKeySecret} {
		if v := strings.TrimSpace(k); v != "" {
			return v
		}
	}
	return ""
}

func (c *Config) Production() bool { return c.Mode == ModeProduction }

func (c *Config) Addr() string { return "0.0.0.0:" + strings.TrimPrefix(c.Port, ":") }
