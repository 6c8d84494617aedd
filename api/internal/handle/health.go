package handle

import (
	"context"
	"net/http"
	"time"
)

type HealthResponse struct {
	Status            string `json:"status"`
	Engine            string `json:"engine,omitempty"`
	Model             string `json:"model,omitempty"`
	FailedLastHour    *int   `json:"failed_last_hour,omitempty"`
	CompletedLastHour *int   `json:"completed_last_hour,omitempty"`
}

func (h *Handle) Health(w http.ResponseWriter, r *http.Request) {
	out := HealthResponse{Status: "ok", Engine: h.engine, Model: h.model}
	if h.stats == nil {
		writeJSON(w, http.StatusOK, out)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	since := time.Now().Add(-time.Hour)
	failed, err := h.stats.CountSince(ctx, "failed", since)
	if err != nil {
		h.log.Warn("health: audit store unavailable", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Engine: h.engine, Model: h.model})
		return
	}
	completed, err := h.stats.CountSince(ctx, "completed", since)
	if err != nil {
		h.log.Warn("health: audit store unavailable", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Engine: h.engine, Model: h.model})
		return
	}
	out.FailedLastHour, out.CompletedLastHour = &failed, &completed
	writeJSON(w, http.StatusOK, out)
}
