package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=3000" validate:"min=1,max=65535"`
	LogLevel string `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR debug info warn error"`

	LLMProvider string `env:"LLM_PROVIDER,default=gemini" validate:"oneof=gemini google openai gpt anthropic claude ollama"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL,default=gemini-2.5-flash"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIModel   string `env:"OPENAI_MODEL,default=gpt-4o-mini"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" validate:"omitempty,url"`

	AnthropicAPIKey    string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel     string `env:"ANTHROPIC_MODEL,default=claude-3-5-sonnet-latest"`
	AnthropicMaxTokens int    `env:"ANTHROPIC_MAX_TOKENS,default=1024" validate:"min=1"`

	OllamaHost  string `env:"OLLAMA_HOST,default=http://localhost:11434" validate:"url"`
	OllamaModel string `env:"OLLAMA_MODEL,default=llava"`

	GenerationTimeout time.Duration `env:"GENERATION_TIMEOUT,default=60s" validate:"gt=0"`
	MaxTextLength     int           `env:"MAX_TEXT_LENGTH,default=10000" validate:"min=1"`
	MaxUploadBytes    int64         `env:"MAX_UPLOAD_BYTES,default=20971520" validate:"min=1"`
	AttachmentPolicy  string        `env:"ATTACHMENT_POLICY,default=permissive" validate:"oneof=permissive strict"`
	AllowedOrigin     string        `env:"ALLOWED_ORIGIN,default=*"`

	// Пусто = аудит выключен.
	DatabaseURL string `env:"DATABASE_URL"`

	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	WebhookURL       string `env:"WEBHOOK_URL" validate:"omitempty,url"`
}

var validate = validator.New()

// Load reads a local .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.ProviderKey() == "" && c.Provider() != "ollama" {
		return fmt.Errorf("config: missing API key for provider %q", c.Provider())
	}
	return nil
}

// Provider returns the canonical engine name for LLM_PROVIDER.
func (c *Config) Provider() string {
	switch strings.ToLower(strings.TrimSpace(c.LLMProvider)) {
	case "gemini", "google", "":
		return "gemini"
	case "openai", "gpt":
		return "openai"
	case "anthropic", "claude":
		return "anthropic"
	case "ollama":
		return "ollama"
	default:
		return c.LLMProvider
	}
}

func (c *Config) ProviderKey() string {
	switch c.Provider() {
	case "gemini":
		return c.GeminiAPIKey
	case "openai":
		return c.OpenAIAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	default:
		return ""
	}
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// RequireTelegram is checked by the bot binary only.
func (c *Config) RequireTelegram() error {
	if strings.TrimSpace(c.TelegramBotToken) == "" {
		return errors.New("config: TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}
