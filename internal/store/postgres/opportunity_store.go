package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardexlabs/arbscan/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates an OpportunityStore backed by the given pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

const oppSelectCols = `id, pair, buy_venue, sell_venue, buy_price, sell_price,
	gross_price_diff, volume_available, total_fees, net_profit, net_profit_pct,
	liquidity_score, slippage_risk, confidence, time_to_expiry_ms,
	execution_ready, detected_at`

// rankExpr orders rows the same way the in-memory ranker does: confidence
// weight dominates, net profit breaks ties within a tier.
const rankExpr = `(CASE confidence
	WHEN 'HIGH' THEN 3
	WHEN 'MEDIUM' THEN 2
	ELSE 1
END) * 1000 + net_profit`

// ReplaceForPairs deletes existing rows for each incoming (pair, buy_venue,
// sell_venue) key, then inserts the new batch in one transaction. Repeated
// scans of the same pairs stay idempotent.
func (s *OpportunityStore) ReplaceForPairs(ctx context.Context, opps []domain.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin replace tx: %w", err)
	}
	defer tx.Rollback(ctx)

	seen := make(map[string]struct{}, len(opps))
	for _, opp := range opps {
		key := opp.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if _, err := tx.Exec(ctx,
			`DELETE FROM opportunities WHERE pair = $1 AND buy_venue = $2 AND sell_venue = $3`,
			opp.Pair, opp.BuyVenue, opp.SellVenue,
		); err != nil {
			return fmt.Errorf("postgres: delete stale rows for %s: %w", key, err)
		}
	}

	const insert = `
		INSERT INTO opportunities (
			id, pair, buy_venue, sell_venue, buy_price, sell_price,
			gross_price_diff, volume_available, total_fees, net_profit, net_profit_pct,
			liquidity_score, slippage_risk, confidence, time_to_expiry_ms,
			execution_ready, active, detected_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14, $15,
			$16, TRUE, $17
		)`

	for _, opp := range opps {
		if _, err := tx.Exec(ctx, insert,
			opp.ID, opp.Pair, opp.BuyVenue, opp.SellVenue, opp.BuyPrice, opp.SellPrice,
			opp.GrossPriceDiff, opp.VolumeAvailable, opp.TotalFees, opp.NetProfit, opp.NetProfitPct,
			opp.LiquidityScore, opp.SlippageRisk, string(opp.Confidence), opp.TimeToExpiry.Milliseconds(),
			opp.ExecutionReady, opp.DetectedAt,
		); err != nil {
			return fmt.Errorf("postgres: insert opportunity %s: %w", opp.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit replace tx: %w", err)
	}
	return nil
}

// ListActive returns unexpired active opportunities, best first.
func (s *OpportunityStore) ListActive(ctx context.Context, opts domain.ListOpts) ([]domain.Opportunity, error) {
	query := `SELECT ` + oppSelectCols + `
		FROM opportunities
		WHERE active
		  AND detected_at + (time_to_expiry_ms * INTERVAL '1 millisecond') > NOW()
		ORDER BY ` + rankExpr + ` DESC, detected_at DESC`

	args := []any{}
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list active opportunities: %w", err)
	}
	defer rows.Close()

	return scanOpportunities(rows)
}

// ListRecent returns the most recently detected opportunities, active or not.
func (s *OpportunityStore) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	query := `SELECT ` + oppSelectCols + ` FROM opportunities ORDER BY detected_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent opportunities: %w", err)
	}
	defer rows.Close()

	return scanOpportunities(rows)
}

// Deactivate marks an opportunity inactive.
func (s *OpportunityStore) Deactivate(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE opportunities SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: deactivate opportunity %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// PruneStale deletes rows detected more than olderThan ago and returns the
// number deleted.
func (s *OpportunityStore) PruneStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM opportunities WHERE detected_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: prune stale opportunities: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Count returns the total number of stored opportunities.
func (s *OpportunityStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM opportunities`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count opportunities: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanOpportunities(rows rowScanner) ([]domain.Opportunity, error) {
	var opps []domain.Opportunity
	for rows.Next() {
		var (
			opp        domain.Opportunity
			confidence string
			expiryMs   int64
		)
		if err := rows.Scan(
			&opp.ID, &opp.Pair, &opp.BuyVenue, &opp.SellVenue, &opp.BuyPrice, &opp.SellPrice,
			&opp.GrossPriceDiff, &opp.VolumeAvailable, &opp.TotalFees, &opp.NetProfit, &opp.NetProfitPct,
			&opp.LiquidityScore, &opp.SlippageRisk, &confidence, &expiryMs,
			&opp.ExecutionReady, &opp.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		opp.Confidence = domain.Confidence(confidence)
		opp.TimeToExpiry = time.Duration(expiryMs) * time.Millisecond
		opps = append(opps, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: opportunity rows: %w", err)
	}
	return opps, nil
}

var _ domain.OpportunityStore = (*OpportunityStore)(nil)
