package api

import (
	"log/slog"
	"net/http"

	"github.com/yuehengyu/Lunara/internal/engine"
)

// TriggerHandler exposes the two evaluation modes to external
// schedulers. The core never self-schedules; a periodic job (or an
// operator) POSTs here, and overlapping invocations are fine because
// every pass is idempotent.
type TriggerHandler struct {
	evaluator *engine.Evaluator
	logger    *slog.Logger
}

func NewTriggerHandler(evaluator *engine.Evaluator, logger *slog.Logger) *TriggerHandler {
	return &TriggerHandler{evaluator: evaluator, logger: logger}
}

// Check runs one instant pass: short forward window, small look-back.
func (h *TriggerHandler) Check(w http.ResponseWriter, r *http.Request) {
	sum, err := h.evaluator.RunInstant(r.Context())
	if err != nil {
		h.logger.Error("instant pass failed", "error", err)
		respondError(w, http.StatusServiceUnavailable, "evaluation pass failed")
		return
	}
	respondJSON(w, http.StatusOK, sum)
}

// Digest runs the once-daily pass over the next full calendar day.
func (h *TriggerHandler) Digest(w http.ResponseWriter, r *http.Request) {
	sum, err := h.evaluator.RunDigest(r.Context())
	if err != nil {
		h.logger.Error("digest pass failed", "error", err)
		respondError(w, http.StatusServiceUnavailable, "evaluation pass failed")
		return
	}
	respondJSON(w, http.StatusOK, sum)
}
