package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/cardexlabs/arbscan/internal/domain"
)

type stubStore struct {
	replaced   [][]domain.Opportunity
	replaceErr error
	active     []domain.Opportunity
	pruned     int64
}

func (s *stubStore) ReplaceForPairs(ctx context.Context, opps []domain.Opportunity) error {
	s.replaced = append(s.replaced, opps)
	return s.replaceErr
}

func (s *stubStore) ListActive(ctx context.Context, opts domain.ListOpts) ([]domain.Opportunity, error) {
	return s.active, nil
}

func (s *stubStore) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	return s.active, nil
}

func (s *stubStore) Deactivate(ctx context.Context, id string) error { return nil }

func (s *stubStore) PruneStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.pruned, nil
}

func (s *stubStore) Count(ctx context.Context) (int64, error) { return int64(len(s.active)), nil }

type stubBus struct {
	published []string
	appended  []string
}

func (b *stubBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.published = append(b.published, string(payload))
	return nil
}

func (b *stubBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	b.appended = append(b.appended, string(payload))
	return nil
}

func (b *stubBus) StreamRead(ctx context.Context, stream, lastID string, count int) ([]domain.StreamMessage, error) {
	return nil, nil
}

type stubNotifier struct {
	events []string
}

func (n *stubNotifier) Notify(ctx context.Context, event, title, message string) error {
	n.events = append(n.events, event)
	return nil
}

func testService(store *stubStore, bus *stubBus, notifier Notifier) *OpportunityService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewOpportunityService(store, bus, nil, notifier, logger)
}

func sampleOpportunity(ready bool) domain.Opportunity {
	return domain.Opportunity{
		ID:             "opp-1",
		Pair:           "ADA/USD",
		BuyVenue:       "minswap",
		SellVenue:      "sundaeswap",
		BuyPrice:       0.40,
		SellPrice:      0.44,
		NetProfit:      16,
		NetProfitPct:   6.2,
		Confidence:     domain.ConfidenceHigh,
		ExecutionReady: ready,
		DetectedAt:     time.Now(),
	}
}

func TestRecordScanPersistsAndPublishes(t *testing.T) {
	store := &stubStore{}
	bus := &stubBus{}
	svc := testService(store, bus, nil)

	opps := []domain.Opportunity{sampleOpportunity(false)}
	if err := svc.RecordScan(context.Background(), opps); err != nil {
		t.Fatalf("RecordScan returned error: %v", err)
	}

	if len(store.replaced) != 1 || len(store.replaced[0]) != 1 {
		t.Fatalf("expected one persisted batch, got %+v", store.replaced)
	}
	if len(bus.published) != 1 || len(bus.appended) != 1 {
		t.Fatalf("expected one publish and one stream append, got %d/%d",
			len(bus.published), len(bus.appended))
	}
	if !strings.Contains(bus.published[0], `"best_pair":"ADA/USD"`) {
		t.Errorf("publish payload missing best pair: %s", bus.published[0])
	}
}

func TestRecordScanToleratesStoreFailure(t *testing.T) {
	store := &stubStore{replaceErr: errors.New("db down")}
	bus := &stubBus{}
	svc := testService(store, bus, nil)

	if err := svc.RecordScan(context.Background(), []domain.Opportunity{sampleOpportunity(false)}); err != nil {
		t.Fatalf("store failure must not propagate, got %v", err)
	}
	if len(bus.published) != 1 {
		t.Fatal("scan event should still be published after a store failure")
	}
}

func TestRecordScanAlertsOnExecutionReady(t *testing.T) {
	store := &stubStore{}
	bus := &stubBus{}
	notifier := &stubNotifier{}
	svc := testService(store, bus, notifier)

	opps := []domain.Opportunity{sampleOpportunity(true), sampleOpportunity(false)}
	if err := svc.RecordScan(context.Background(), opps); err != nil {
		t.Fatalf("RecordScan returned error: %v", err)
	}

	if len(notifier.events) != 1 || notifier.events[0] != "execution_ready" {
		t.Fatalf("expected one execution_ready alert, got %v", notifier.events)
	}
}

func TestRecordScanEmptyBatchPublishesSummary(t *testing.T) {
	store := &stubStore{}
	bus := &stubBus{}
	svc := testService(store, bus, nil)

	if err := svc.RecordScan(context.Background(), nil); err != nil {
		t.Fatalf("RecordScan returned error: %v", err)
	}
	if len(bus.published) != 1 {
		t.Fatal("empty scans still publish a summary event")
	}
	if strings.Contains(bus.published[0], "best_pair") {
		t.Errorf("empty scan must not carry a best pair: %s", bus.published[0])
	}
}
