// Package config loads process settings from the environment and the
// reply policy snapshot from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds process-level settings. Behavior knobs live in Policy.
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`

	PolicyPath string `env:"POLICY_PATH" envDefault:"policy.yaml"`

	Transport          string `env:"TRANSPORT" envDefault:"discord"`
	DiscordToken       string `env:"DISCORD_TOKEN"`
	WebhookAddr        string `env:"WEBHOOK_ADDR" envDefault:":8080"`
	WebhookCallbackURL string `env:"WEBHOOK_CALLBACK_URL"`

	AIPrimary    string  `env:"AI_PRIMARY" envDefault:"gemini"`
	AIFallback   string  `env:"AI_FALLBACK" envDefault:"ollama"`
	AIThrottle   float64 `env:"AI_THROTTLE_RPS" envDefault:"2"`
	GeminiAPIKey string  `env:"GEMINI_API_KEY"`
	GeminiModel  string  `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	OllamaURL    string  `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`
	OllamaModel  string  `env:"OLLAMA_MODEL" envDefault:"mistral"`
	OpenAIURL    string  `env:"OPENAI_COMPAT_URL" envDefault:"https://text.pollinations.ai/openai"`
	OpenAIModel  string  `env:"OPENAI_COMPAT_MODEL" envDefault:"openai"`
	OpenAIKey    string  `env:"OPENAI_COMPAT_KEY"`

	ProactiveInterval time.Duration `env:"PROACTIVE_INTERVAL" envDefault:"30s"`
	GenerationTimeout time.Duration `env:"GENERATION_TIMEOUT" envDefault:"45s"`
	TypingDelay       bool          `env:"TYPING_DELAY" envDefault:"true"`

	dotenvErr error
}

// DotenvErr reports a .env file that exists but could not be parsed. Load
// still succeeds in that case using the process environment alone.
func (c *Config) DotenvErr() error { return c.dotenvErr }

// Load reads .env when present and parses the environment.
func Load() (*Config, error) {
	dotErr := godotenv.Load()
	if errors.Is(dotErr, os.ErrNotExist) {
		dotErr = nil
	}
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if dotErr != nil {
		cfg.dotenvErr = fmt.Errorf("read .env: %w", dotErr)
	}
	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))
	cfg.AIPrimary = strings.ToLower(strings.TrimSpace(cfg.AIPrimary))
	cfg.AIFallback = strings.ToLower(strings.TrimSpace(cfg.AIFallback))
	return &cfg, nil
}

// Validate checks settings that the selected transport and backends need.
func (c *Config) Validate() error {
	switch c.Transport {
	case "discord":
		if c.DiscordToken == "" {
			return errors.New("DISCORD_TOKEN is not set")
		}
	case "webhook":
		if c.WebhookCallbackURL == "" {
			return errors.New("WEBHOOK_CALLBACK_URL is not set")
		}
	case "console":
	default:
		return fmt.Errorf("unknown TRANSPORT %q", c.Transport)
	}
	if c.AIPrimary == "" || c.AIPrimary == "none" {
		return errors.New("AI_PRIMARY must name a backend")
	}
	if c.AIPrimary == c.AIFallback {
		return fmt.Errorf("AI_FALLBACK must differ from AI_PRIMARY (%s)", c.AIPrimary)
	}
	if c.ProactiveInterval <= 0 {
		return errors.New("PROACTIVE_INTERVAL must be positive")
	}
	return nil
}
