package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// cleanEnv blanks the variables without defaults so the host environment does not leak in.
func cleanEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GEMINI_API_KEY", "OPENAI_API_KEY", "OPENAI_BASE_URL", "ANTHROPIC_API_KEY",
		"DATABASE_URL", "TELEGRAM_BOT_TOKEN", "WEBHOOK_URL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	req := require.New(t)
	cleanEnv(t)
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load()

	req.NoError(err)
	req.Equal("0.0.0.0", cfg.Host)
	req.Equal(3000, cfg.Port)
	req.Equal("gemini", cfg.Provider())
	req.Equal("gemini-2.5-flash", cfg.GeminiModel)
	req.Equal(60*time.Second, cfg.GenerationTimeout)
	req.Equal(10000, cfg.MaxTextLength)
	req.Equal(int64(20<<20), cfg.MaxUploadBytes)
	req.Equal("permissive", cfg.AttachmentPolicy)
	req.Equal("0.0.0.0:3000", cfg.Addr())
	req.Empty(cfg.DatabaseURL)
}

func TestLoad_Overrides(t *testing.T) {
	req := require.New(t)
	cleanEnv(t)
	t.Setenv("LLM_PROVIDER", "claude")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("PORT", "8080")
	t.Setenv("GENERATION_TIMEOUT", "15s")
	t.Setenv("ATTACHMENT_POLICY", "strict")

	cfg, err := Load()

	req.NoError(err)
	req.Equal("anthropic", cfg.Provider())
	req.Equal("sk-ant", cfg.ProviderKey())
	req.Equal(8080, cfg.Port)
	req.Equal(15*time.Second, cfg.GenerationTimeout)
	req.Equal("strict", cfg.AttachmentPolicy)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		description string
		env         map[string]string
	}{
		{
			description: "Should require the key of the selected provider",
			env:         map[string]string{"LLM_PROVIDER": "openai", "GEMINI_API_KEY": "set-but-unused"},
		},
		{
			description: "Should reject an unknown provider",
			env:         map[string]string{"LLM_PROVIDER": "palm", "GEMINI_API_KEY": "k"},
		},
		{
			description: "Should reject an unknown attachment policy",
			env:         map[string]string{"GEMINI_API_KEY": "k", "ATTACHMENT_POLICY": "lenient"},
		},
		{
			description: "Should reject a malformed timeout",
			env:         map[string]string{"GEMINI_API_KEY": "k", "GENERATION_TIMEOUT": "soon"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			req := require.New(t)
			cleanEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()

			req.Error(err)
		})
	}
}

func TestLoad_OllamaNeedsNoKey(t *testing.T) {
	req := require.New(t)
	cleanEnv(t)
	t.Setenv("LLM_PROVIDER", "ollama")

	cfg, err := Load()

	req.NoError(err)
	req.Equal("ollama", cfg.Provider())
	req.Equal("http://localhost:11434", cfg.OllamaHost)
}

func TestRequireTelegram(t *testing.T) {
	req := require.New(t)
	req.Error((&Config{}).RequireTelegram())
	req.NoError((&Config{TelegramBotToken: "123:abc"}).RequireTelegram())
}
