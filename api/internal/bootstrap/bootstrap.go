package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"explain-proxy/api/internal/attachment"
	"explain-proxy/api/internal/config"
	"explain-proxy/api/internal/explain"
	"explain-proxy/api/internal/gateway"
	"explain-proxy/api/internal/llm"
	"explain-proxy/api/internal/llm/anthropic"
	"explain-proxy/api/internal/llm/gemini"
	"explain-proxy/api/internal/llm/ollama"
	"explain-proxy/api/internal/llm/openai"
	"explain-proxy/api/internal/store"
)

// App is everything both binaries share.
type App struct {
	Engine  llm.Engine
	Service *explain.Service
	DB      *sql.DB
	Audit   *store.AuditRepo
}

// Close releases the database pool when the audit trail is enabled.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

// Engines builds every provider that has credentials. Ollama needs none.
func Engines(cfg *config.Config) (*llm.Engines, error) {
	engs := &llm.Engines{}
	if cfg.GeminiAPIKey != "" {
		engs.Gemini = gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	if cfg.OpenAIAPIKey != "" {
		engs.OpenAI = openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	}
	if cfg.AnthropicAPIKey != "" {
		engs.Anthropic = anthropic.New(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicMaxTokens)
	}
	if cfg.Provider() == "ollama" {
		o, err := ollama.New(cfg.OllamaHost, cfg.OllamaModel)
		if err != nil {
			return nil, err
		}
		engs.Ollama = o
	}
	return engs, nil
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	engs, err := Engines(cfg)
	if err != nil {
		return nil, err
	}
	engine, err := engs.Get(cfg.Provider())
	if err != nil {
		return nil, err
	}

	app := &App{Engine: engine}
	var recorder store.Recorder
	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		db, err := OpenDB(ctx, dsn)
		if err != nil {
			return nil, err
		}
		log.Info("db connected", "dsn", SafeDSNSummary(dsn))

		audit := store.NewAuditRepo(db)
		if err := audit.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("audit schema: %w", err)
		}
		app.DB, app.Audit, recorder = db, audit, audit
	}

	app.Service = explain.NewService(
		log,
		attachment.NewClassifier(attachment.Policy(cfg.AttachmentPolicy)),
		gateway.New(engine, cfg.GenerationTimeout),
		recorder,
		cfg.MaxTextLength,
	)
	log.Info("engine ready", "engine", engine.Name(), "model", engine.GetModel(), "policy", cfg.AttachmentPolicy)
	return app, nil
}

func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	// только аудит, пул небольшой
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	return db, nil
}

// SafeDSNSummary describes a DSN without its password.
func SafeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	user := u.User.Username()
	host := u.Host
	port := ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}
