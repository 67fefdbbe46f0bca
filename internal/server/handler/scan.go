package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cardexlabs/arbscan/internal/domain"
	"github.com/cardexlabs/arbscan/internal/engine"
)

// Scanner defines the scan orchestrator surface the handler requires.
type Scanner interface {
	ScanNow(ctx context.Context) ([]domain.Opportunity, error)
	Status() engine.ScanStatus
}

// ScanHandler serves scan trigger and status endpoints.
type ScanHandler struct {
	scanner Scanner
	logger  *slog.Logger
}

// NewScanHandler creates a ScanHandler with the given scanner.
func NewScanHandler(scanner Scanner, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{scanner: scanner, logger: logger}
}

// Trigger runs one scan immediately and returns the ranked result set. An
// already-running scan answers 409; the cooldown window answers 429.
// POST /api/scan
func (h *ScanHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	opps, err := h.scanner.ScanNow(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrScanInProgress):
			writeError(w, http.StatusConflict, "scan already in progress")
		case errors.Is(err, domain.ErrCooldownActive):
			w.Header().Set("Retry-After", "45")
			writeError(w, http.StatusTooManyRequests, "scan cooldown active")
		default:
			h.logger.ErrorContext(r.Context(), "handler: manual scan failed",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "scan failed")
		}
		return
	}

	if opps == nil {
		opps = []domain.Opportunity{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":         len(opps),
		"opportunities": opps,
		"completed_at":  time.Now().UTC().Format(time.RFC3339),
	})
}

// Status returns a snapshot of the scan orchestrator state.
// GET /api/scanner/status
func (h *ScanHandler) Status(w http.ResponseWriter, r *http.Request) {
	st := h.scanner.Status()

	resp := map[string]any{
		"scanning":   st.Scanning,
		"scans_run":  st.ScansRun,
		"last_count": st.LastCount,
	}
	if !st.LastScanStart.IsZero() {
		resp["last_scan_start"] = st.LastScanStart.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}
