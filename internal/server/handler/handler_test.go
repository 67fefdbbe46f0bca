package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cardexlabs/arbscan/internal/domain"
	"github.com/cardexlabs/arbscan/internal/engine"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubOppService struct {
	active  []domain.Opportunity
	missing bool
}

func (s *stubOppService) ListActive(ctx context.Context, opts domain.ListOpts) ([]domain.Opportunity, error) {
	return s.active, nil
}

func (s *stubOppService) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	return s.active, nil
}

func (s *stubOppService) Deactivate(ctx context.Context, id string) error {
	if s.missing {
		return domain.ErrNotFound
	}
	return nil
}

func (s *stubOppService) ScanHistory(ctx context.Context, lastID string, count int) ([]domain.StreamMessage, error) {
	return []domain.StreamMessage{
		{ID: "1-0", Payload: []byte(`{"count":3}`)},
	}, nil
}

type stubScanner struct {
	opps []domain.Opportunity
	err  error
}

func (s *stubScanner) ScanNow(ctx context.Context) ([]domain.Opportunity, error) {
	return s.opps, s.err
}

func (s *stubScanner) Status() engine.ScanStatus {
	return engine.ScanStatus{Scanning: false, LastCount: len(s.opps), ScansRun: 7}
}

func TestListActiveReturnsEmptyArrayNotNull(t *testing.T) {
	h := NewOpportunityHandler(&stubOppService{}, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/opportunities", nil)
	rec := httptest.NewRecorder()
	h.ListActive(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"opportunities":[]`) {
		t.Errorf("empty list must serialize as [], got %s", rec.Body.String())
	}
}

func TestDeactivateUnknownOpportunity(t *testing.T) {
	h := NewOpportunityHandler(&stubOppService{missing: true}, discardLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/opportunities/{id}", h.Deactivate)

	req := httptest.NewRequest(http.MethodDelete, "/api/opportunities/nope", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestScanHistoryEmbedsRawSummaries(t *testing.T) {
	h := NewOpportunityHandler(&stubOppService{}, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/scans", nil)
	rec := httptest.NewRecorder()
	h.ScanHistory(rec, req)

	var resp struct {
		Scans []struct {
			ID      string          `json:"id"`
			Summary json.RawMessage `json:"summary"`
		} `json:"scans"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Scans) != 1 || resp.Scans[0].ID != "1-0" {
		t.Fatalf("unexpected scans: %+v", resp.Scans)
	}
	if string(resp.Scans[0].Summary) != `{"count":3}` {
		t.Errorf("summary must pass through verbatim, got %s", resp.Scans[0].Summary)
	}
}

func TestTriggerMapsGuardErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"in progress", domain.ErrScanInProgress, http.StatusConflict},
		{"cooldown", domain.ErrCooldownActive, http.StatusTooManyRequests},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewScanHandler(&stubScanner{err: tc.err}, discardLogger())

			req := httptest.NewRequest(http.MethodPost, "/api/scan", nil)
			rec := httptest.NewRecorder()
			h.Trigger(rec, req)

			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestTriggerReturnsRankedSet(t *testing.T) {
	opp := domain.Opportunity{
		ID: "opp-1", Pair: "ADA/USD", BuyVenue: "minswap", SellVenue: "sundaeswap",
		Confidence: domain.ConfidenceHigh, DetectedAt: time.Now(),
	}
	h := NewScanHandler(&stubScanner{opps: []domain.Opportunity{opp}}, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/scan", nil)
	rec := httptest.NewRecorder()
	h.Trigger(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"count":1`) {
		t.Errorf("response missing count: %s", rec.Body.String())
	}
}

func TestStatusSnapshot(t *testing.T) {
	h := NewScanHandler(&stubScanner{}, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/scanner/status", nil)
	rec := httptest.NewRecorder()
	h.Status(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"scans_run":7`) {
		t.Errorf("response missing scans_run: %s", rec.Body.String())
	}
}
