package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cardexlabs/arbscan/internal/domain"
)

// OpportunityService defines the methods the opportunity handler requires.
type OpportunityService interface {
	ListActive(ctx context.Context, opts domain.ListOpts) ([]domain.Opportunity, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error)
	Deactivate(ctx context.Context, id string) error
	ScanHistory(ctx context.Context, lastID string, count int) ([]domain.StreamMessage, error)
}

// OpportunityHandler serves opportunity-related HTTP endpoints.
type OpportunityHandler struct {
	svc    OpportunityService
	logger *slog.Logger
}

// NewOpportunityHandler creates an OpportunityHandler with the given service.
func NewOpportunityHandler(svc OpportunityService, logger *slog.Logger) *OpportunityHandler {
	return &OpportunityHandler{svc: svc, logger: logger}
}

// listResponse wraps the opportunity list responses.
type listResponse struct {
	Opportunities []domain.Opportunity `json:"opportunities"`
}

// ListActive returns the currently active, unexpired opportunities, best
// first.
// GET /api/opportunities?limit=50&offset=0
func (h *OpportunityHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	opps, err := h.svc.ListActive(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list active opportunities failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list opportunities")
		return
	}

	if opps == nil {
		opps = []domain.Opportunity{}
	}
	writeJSON(w, http.StatusOK, listResponse{Opportunities: opps})
}

// ListRecent returns the most recently detected opportunities, active or not.
// GET /api/opportunities/recent?limit=20
func (h *OpportunityHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	opps, err := h.svc.ListRecent(r.Context(), parseLimit(r, 20, 200))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list recent opportunities failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list opportunities")
		return
	}

	if opps == nil {
		opps = []domain.Opportunity{}
	}
	writeJSON(w, http.StatusOK, listResponse{Opportunities: opps})
}

// Deactivate marks an opportunity inactive.
// DELETE /api/opportunities/{id}
func (h *OpportunityHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing opportunity id")
		return
	}

	if err := h.svc.Deactivate(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "opportunity not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: deactivate opportunity failed",
			slog.String("opp_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to deactivate opportunity")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated", "id": id})
}

// ScanHistory returns recent scan summaries from the durable stream.
// GET /api/scans?after=0&limit=50
func (h *OpportunityHandler) ScanHistory(w http.ResponseWriter, r *http.Request) {
	after := r.URL.Query().Get("after")
	if after == "" {
		after = "0"
	}

	msgs, err := h.svc.ScanHistory(r.Context(), after, parseLimit(r, 50, 500))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: scan history failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read scan history")
		return
	}

	type scanEntry struct {
		ID      string          `json:"id"`
		Summary json.RawMessage `json:"summary"`
	}
	entries := make([]scanEntry, 0, len(msgs))
	for _, m := range msgs {
		entries = append(entries, scanEntry{ID: m.ID, Summary: json.RawMessage(m.Payload)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"scans": entries})
}
