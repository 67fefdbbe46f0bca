package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cardexlabs/arbscan/internal/domain"
)

// ResultSink receives the ranked result set of a completed scan. A sink
// failure is logged by the scanner but never invalidates the in-memory result
// already produced.
type ResultSink interface {
	RecordScan(ctx context.Context, opps []domain.Opportunity) error
}

// ScanStatus is a snapshot of the orchestrator state for the status API.
type ScanStatus struct {
	Scanning      bool
	LastScanStart time.Time
	LastCount     int
	ScansRun      int64
}

// Scanner owns the scan cadence: it guards against overlapping scans, enforces
// a minimum cooldown between scan starts, runs the pipeline, and hands the
// ranked result to the sink.
type Scanner struct {
	feed       domain.PriceFeed
	normalizer *Normalizer
	detector   *Detector
	ranker     *Ranker
	sink       ResultSink
	cooldown   time.Duration
	logger     *slog.Logger

	mu        sync.Mutex
	scanning  bool
	lastStart time.Time
	lastCount int
	scansRun  int64
}

// NewScanner creates a Scanner. The sink may be nil, in which case results
// are only returned to the caller.
func NewScanner(
	feed domain.PriceFeed,
	normalizer *Normalizer,
	detector *Detector,
	ranker *Ranker,
	sink ResultSink,
	cooldown time.Duration,
	logger *slog.Logger,
) *Scanner {
	if cooldown <= 0 {
		cooldown = 45 * time.Second
	}
	return &Scanner{
		feed:       feed,
		normalizer: normalizer,
		detector:   detector,
		ranker:     ranker,
		sink:       sink,
		cooldown:   cooldown,
		logger:     logger.With(slog.String("component", "scanner")),
	}
}

// ScanNow runs one scan pass and returns the ranked opportunities. It returns
// domain.ErrScanInProgress when a scan is already running and
// domain.ErrCooldownActive when called again within the cooldown window; in
// both cases the pipeline does not run. Feed failures are logged and yield an
// empty result for the cycle, never an error.
func (s *Scanner) ScanNow(ctx context.Context) ([]domain.Opportunity, error) {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		s.logger.Debug("scan rejected: already in progress")
		return nil, domain.ErrScanInProgress
	}
	if elapsed := time.Since(s.lastStart); elapsed < s.cooldown {
		s.mu.Unlock()
		s.logger.Debug("scan rejected: cooldown active",
			slog.Duration("elapsed", elapsed),
			slog.Duration("cooldown", s.cooldown),
		)
		return nil, domain.ErrCooldownActive
	}
	s.scanning = true
	s.lastStart = time.Now()
	s.mu.Unlock()

	// The guard must be released on every path or the scanner locks out
	// permanently.
	defer func() {
		s.mu.Lock()
		s.scanning = false
		s.mu.Unlock()
	}()

	started := time.Now()

	raw, err := s.feed.Fetch(ctx)
	if err != nil {
		s.logger.Error("feed fetch failed, scan yields empty result",
			slog.String("error", err.Error()),
		)
		s.finish(0)
		return []domain.Opportunity{}, nil
	}

	groups := s.normalizer.Normalize(raw)
	candidates := s.detector.Detect(groups)
	ranked := s.ranker.Rank(candidates)

	s.logger.Info("scan complete",
		slog.Int("observations", len(raw)),
		slog.Int("pairs", len(groups)),
		slog.Int("candidates", len(candidates)),
		slog.Int("ranked", len(ranked)),
		slog.Duration("took", time.Since(started)),
	)

	if s.sink != nil {
		if err := s.sink.RecordScan(ctx, ranked); err != nil {
			s.logger.Warn("result sink failed",
				slog.String("error", err.Error()),
			)
		}
	}

	s.finish(len(ranked))
	return ranked, nil
}

func (s *Scanner) finish(count int) {
	s.mu.Lock()
	s.lastCount = count
	s.scansRun++
	s.mu.Unlock()
}

// Run scans immediately and then on every interval tick until ctx is
// cancelled. Guard rejections between ticks are expected and ignored.
func (s *Scanner) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	s.logger.Info("periodic scanning started", slog.Duration("interval", interval))
	defer s.logger.Info("periodic scanning stopped")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.ScanNow(ctx); err != nil &&
			!errors.Is(err, domain.ErrScanInProgress) &&
			!errors.Is(err, domain.ErrCooldownActive) {
			s.logger.Error("scan failed", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Status returns a snapshot of the orchestrator state.
func (s *Scanner) Status() ScanStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ScanStatus{
		Scanning:      s.scanning,
		LastScanStart: s.lastStart,
		LastCount:     s.lastCount,
		ScansRun:      s.scansRun,
	}
}
