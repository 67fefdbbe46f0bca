package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cardexlabs/arbscan/internal/domain"
)

type stubFeed struct {
	mu      sync.Mutex
	calls   int
	entered chan struct{} // signalled when Fetch begins, if non-nil
	release chan struct{} // Fetch blocks until closed, if non-nil
	obs     []domain.PriceObservation
	err     error
}

func (f *stubFeed) Fetch(ctx context.Context) ([]domain.PriceObservation, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.obs, f.err
}

func (f *stubFeed) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type stubSink struct {
	mu       sync.Mutex
	recorded [][]domain.Opportunity
	err      error
}

func (s *stubSink) RecordScan(ctx context.Context, opps []domain.Opportunity) error {
	s.mu.Lock()
	s.recorded = append(s.recorded, opps)
	s.mu.Unlock()
	return s.err
}

// profitableObservations produce exactly one viable MEDIUM-or-better
// opportunity through the full pipeline with the default thresholds.
func profitableObservations() []domain.PriceObservation {
	return []domain.PriceObservation{
		obs("ADA/USD", "dexa", 0.40, 1_000_000),
		obs("ADA/USD", "dexb", 0.44, 1_000_000),
	}
}

func newTestScanner(feed domain.PriceFeed, sink ResultSink, cooldown time.Duration) *Scanner {
	return NewScanner(
		feed,
		NewNormalizer([]string{"ADA"}, []string{"coingecko"}),
		testDetector(),
		NewRanker(RankConfig{}),
		sink,
		cooldown,
		testLogger(),
	)
}

func TestScanNowProducesRankedResult(t *testing.T) {
	feed := &stubFeed{obs: profitableObservations()}
	sink := &stubSink{}
	s := newTestScanner(feed, sink, time.Millisecond)

	got, err := s.ScanNow(context.Background())
	if err != nil {
		t.Fatalf("ScanNow: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 ranked opportunity, got %d", len(got))
	}
	if got[0].BuyVenue != "dexa" || got[0].SellVenue != "dexb" {
		t.Fatalf("unexpected orientation: %+v", got[0])
	}
	if len(sink.recorded) != 1 || len(sink.recorded[0]) != 1 {
		t.Fatalf("sink did not receive the ranked set: %+v", sink.recorded)
	}
}

func TestScanMutualExclusion(t *testing.T) {
	feed := &stubFeed{
		obs:     profitableObservations(),
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	s := newTestScanner(feed, nil, time.Millisecond)

	done := make(chan []domain.Opportunity, 1)
	go func() {
		res, _ := s.ScanNow(context.Background())
		done <- res
	}()

	// Wait for the first scan to reach the feed fetch, then issue a second.
	<-feed.entered
	res, err := s.ScanNow(context.Background())
	if !errors.Is(err, domain.ErrScanInProgress) {
		t.Fatalf("expected ErrScanInProgress, got %v (res=%v)", err, res)
	}
	if feed.callCount() != 1 {
		t.Fatalf("pipeline ran twice concurrently: %d fetches", feed.callCount())
	}

	close(feed.release)
	first := <-done
	if len(first) != 1 {
		t.Fatalf("first scan result lost: %v", first)
	}
}

func TestScanCooldownEnforced(t *testing.T) {
	feed := &stubFeed{obs: profitableObservations()}
	s := newTestScanner(feed, nil, time.Hour)

	if _, err := s.ScanNow(context.Background()); err != nil {
		t.Fatalf("first scan: %v", err)
	}
	if _, err := s.ScanNow(context.Background()); !errors.Is(err, domain.ErrCooldownActive) {
		t.Fatalf("expected ErrCooldownActive, got %v", err)
	}
	if feed.callCount() != 1 {
		t.Fatalf("expected exactly one pipeline execution, got %d", feed.callCount())
	}
}

func TestScanFeedFailureYieldsEmptyResult(t *testing.T) {
	feed := &stubFeed{err: errors.New("backend down")}
	s := newTestScanner(feed, nil, time.Millisecond)

	got, err := s.ScanNow(context.Background())
	if err != nil {
		t.Fatalf("feed failure must not surface an error, got %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}

	// The guard must be released so a later scan still runs.
	time.Sleep(2 * time.Millisecond)
	if _, err := s.ScanNow(context.Background()); err != nil {
		t.Fatalf("scanner locked out after feed failure: %v", err)
	}
}

func TestScanSinkFailureDoesNotAffectResult(t *testing.T) {
	feed := &stubFeed{obs: profitableObservations()}
	sink := &stubSink{err: errors.New("persistence down")}
	s := newTestScanner(feed, sink, time.Millisecond)

	got, err := s.ScanNow(context.Background())
	if err != nil {
		t.Fatalf("sink failure must not surface: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("in-memory result must survive sink failure, got %d", len(got))
	}
}

func TestScanStatus(t *testing.T) {
	feed := &stubFeed{obs: profitableObservations()}
	s := newTestScanner(feed, nil, time.Millisecond)

	if st := s.Status(); st.Scanning || st.ScansRun != 0 {
		t.Fatalf("unexpected initial status: %+v", st)
	}
	if _, err := s.ScanNow(context.Background()); err != nil {
		t.Fatalf("ScanNow: %v", err)
	}
	st := s.Status()
	if st.Scanning {
		t.Fatalf("scanning flag not released")
	}
	if st.ScansRun != 1 || st.LastCount != 1 {
		t.Fatalf("unexpected status after scan: %+v", st)
	}
	if st.LastScanStart.IsZero() {
		t.Fatalf("last scan start not recorded")
	}
}
