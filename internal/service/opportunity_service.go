// Package service wires the scan engine's output into the persistence,
// messaging, archival, and notification layers. Services translate between
// the pure engine types and the infrastructure interfaces in domain.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cardexlabs/arbscan/internal/domain"
)

// opportunitiesChannel carries live scan events to pub/sub subscribers.
const opportunitiesChannel = "opportunities"

// scanStream is the durable stream holding one summary entry per scan.
const scanStream = "scans"

// Notifier delivers operator alerts. Satisfied by notify.Notifier.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Archiver writes completed scan batches to cold storage.
type Archiver interface {
	ArchiveScan(ctx context.Context, opps []domain.Opportunity) error
}

// OpportunityService records completed scans and serves opportunity queries.
// It is the scanner's result sink: persistence, bus, archive, and notifier
// failures are logged but never propagated, so a downstream outage cannot
// invalidate a scan that already produced results.
type OpportunityService struct {
	store    domain.OpportunityStore
	bus      domain.SignalBus
	archiver Archiver
	notifier Notifier
	logger   *slog.Logger
}

// NewOpportunityService creates an OpportunityService. archiver and notifier
// may be nil when archival or alerting is not configured.
func NewOpportunityService(
	store domain.OpportunityStore,
	bus domain.SignalBus,
	archiver Archiver,
	notifier Notifier,
	logger *slog.Logger,
) *OpportunityService {
	return &OpportunityService{
		store:    store,
		bus:      bus,
		archiver: archiver,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "opportunity_service")),
	}
}

// RecordScan persists the ranked result set of one scan, publishes a scan
// event, appends a summary to the durable scan stream, archives the batch,
// and alerts on execution-ready candidates.
func (s *OpportunityService) RecordScan(ctx context.Context, opps []domain.Opportunity) error {
	if err := s.store.ReplaceForPairs(ctx, opps); err != nil {
		s.logger.WarnContext(ctx, "persist scan results failed",
			slog.Int("count", len(opps)),
			slog.String("error", err.Error()),
		)
	}

	s.publishScan(ctx, opps)

	if s.archiver != nil && len(opps) > 0 {
		if err := s.archiver.ArchiveScan(ctx, opps); err != nil {
			s.logger.WarnContext(ctx, "archive scan failed",
				slog.String("error", err.Error()),
			)
		}
	}

	for _, opp := range opps {
		if opp.ExecutionReady {
			s.notifyExecutionReady(ctx, opp)
		}
	}

	return nil
}

// ListActive returns currently active opportunities, best first.
func (s *OpportunityService) ListActive(ctx context.Context, opts domain.ListOpts) ([]domain.Opportunity, error) {
	opps, err := s.store.ListActive(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("opportunity_service: list active: %w", err)
	}
	return opps, nil
}

// ListRecent returns the most recently detected opportunities up to limit,
// active or not.
func (s *OpportunityService) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	opps, err := s.store.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("opportunity_service: list recent: %w", err)
	}
	return opps, nil
}

// Deactivate marks an opportunity inactive, e.g. after manual review.
func (s *OpportunityService) Deactivate(ctx context.Context, id string) error {
	if err := s.store.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("opportunity_service: deactivate %q: %w", id, err)
	}
	s.logger.InfoContext(ctx, "opportunity deactivated", slog.String("opp_id", id))
	return nil
}

// PruneStale deletes opportunities detected more than olderThan ago.
func (s *OpportunityService) PruneStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	n, err := s.store.PruneStale(ctx, olderThan)
	if err != nil {
		return 0, fmt.Errorf("opportunity_service: prune stale: %w", err)
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "pruned stale opportunities", slog.Int64("deleted", n))
	}
	return n, nil
}

// ScanHistory reads back recent scan summaries from the durable stream.
func (s *OpportunityService) ScanHistory(ctx context.Context, lastID string, count int) ([]domain.StreamMessage, error) {
	msgs, err := s.bus.StreamRead(ctx, scanStream, lastID, count)
	if err != nil {
		return nil, fmt.Errorf("opportunity_service: read scan stream: %w", err)
	}
	return msgs, nil
}

// publishScan emits the live scan event and appends the stream summary.
func (s *OpportunityService) publishScan(ctx context.Context, opps []domain.Opportunity) {
	summary := map[string]any{
		"event":       "scan_completed",
		"count":       len(opps),
		"finished_at": time.Now().UTC().Format(time.RFC3339),
	}
	if len(opps) > 0 {
		best := opps[0]
		summary["best_pair"] = best.Pair
		summary["best_net_profit_pct"] = best.NetProfitPct
		summary["best_confidence"] = string(best.Confidence)
	}

	evt, _ := json.Marshal(summary)

	if err := s.bus.Publish(ctx, opportunitiesChannel, evt); err != nil {
		s.logger.WarnContext(ctx, "publish scan event failed",
			slog.String("error", err.Error()),
		)
	}
	if err := s.bus.StreamAppend(ctx, scanStream, evt); err != nil {
		s.logger.WarnContext(ctx, "append scan stream failed",
			slog.String("error", err.Error()),
		)
	}
}

// notifyExecutionReady alerts operators about a candidate that cleared the
// execution bar.
func (s *OpportunityService) notifyExecutionReady(ctx context.Context, opp domain.Opportunity) {
	if s.notifier == nil {
		return
	}

	title := fmt.Sprintf("Execution-ready: %s", opp.Pair)
	message := fmt.Sprintf(
		"Buy %s @ %.6f, sell %s @ %.6f\nNet profit: %.2f (%.2f%%)\nVolume: %.2f, confidence: %s",
		opp.BuyVenue, opp.BuyPrice,
		opp.SellVenue, opp.SellPrice,
		opp.NetProfit, opp.NetProfitPct,
		opp.VolumeAvailable, opp.Confidence,
	)

	if err := s.notifier.Notify(ctx, "execution_ready", title, message); err != nil {
		s.logger.WarnContext(ctx, "execution-ready alert failed",
			slog.String("opp_id", opp.ID),
			slog.String("error", err.Error()),
		)
	}
}
