package handle

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"explain-proxy/api/internal/explain"
)

const DefaultMaxUploadBytes int64 = 20 << 20

// AuditStats is the read side of the audit trail used by /healthz.
type AuditStats interface {
	CountSince(ctx context.Context, state string, t time.Time) (int, error)
}

type Handle struct {
	svc            *explain.Service
	log            *slog.Logger
	maxUploadBytes int64
	stats          AuditStats
	engine         string
	model          string
}

type Option func(*Handle)

func WithMaxUploadBytes(n int64) Option {
	return func(h *Handle) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// WithAuditStats enables the audit section of /healthz.
func WithAuditStats(s AuditStats) Option {
	return func(h *Handle) { h.stats = s }
}

// WithEngineInfo sets the engine and model reported by /healthz.
func WithEngineInfo(engine, model string) Option {
	return func(h *Handle) { h.engine, h.model = engine, model }
}

func New(svc *explain.Service, log *slog.Logger, opts ...Option) *Handle {
	h := &Handle{
		svc:            svc,
		log:            log,
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Routes returns the full HTTP surface wrapped in middleware.
func (h *Handle) Routes(allowedOrigin string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/explain", h.Explain)
	mux.HandleFunc("/healthz", h.Health)

	return withRequestID(withRecover(h.log, withLogging(h.log, withCORS(allowedOrigin, mux))))
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}
