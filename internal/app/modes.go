package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cardexlabs/arbscan/internal/domain"
	"github.com/cardexlabs/arbscan/internal/engine"
	"github.com/cardexlabs/arbscan/internal/feed"
	"github.com/cardexlabs/arbscan/internal/server"
	"github.com/cardexlabs/arbscan/internal/server/handler"
	"github.com/cardexlabs/arbscan/internal/service"
)

// ScanMode runs the scan loop and housekeeping without the HTTP API.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")

	g, ctx := errgroup.WithContext(ctx)

	scanner, svc := a.buildEngine(deps)

	g.Go(func() error {
		return scanner.Run(ctx, a.cfg.Scanner.ScanInterval.Duration)
	})

	a.startHousekeeping(ctx, g, svc)
	a.startTickerFeed(ctx, g, deps)

	return g.Wait()
}

// ServeMode runs the HTTP API without the background scan loop. Scans happen
// only on demand via POST /api/scan.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	scanner, svc := a.buildEngine(deps)
	a.startHTTPServer(ctx, g, deps, scanner, svc)

	return g.Wait()
}

// FullMode runs the scan loop, housekeeping, the ticker feed, and the HTTP
// API together.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	scanner, svc := a.buildEngine(deps)

	g.Go(func() error {
		return scanner.Run(ctx, a.cfg.Scanner.ScanInterval.Duration)
	})

	a.startHousekeeping(ctx, g, svc)
	a.startTickerFeed(ctx, g, deps)
	a.startHTTPServer(ctx, g, deps, scanner, svc)

	return g.Wait()
}

// buildEngine assembles the scan pipeline: feed adapters, normalizer,
// detector, ranker, the orchestrating scanner, and the result sink service.
func (a *App) buildEngine(deps *Dependencies) (*engine.Scanner, *service.OpportunityService) {
	scfg := a.cfg.Scanner

	feeModel := engine.NewFeeModel(a.cfg.FeeTable(), scfg.DefaultFeeRate)
	normalizer := engine.NewNormalizer(scfg.KnownSymbols, scfg.ReferenceVenues)
	detector := engine.NewDetector(feeModel, engine.DetectorConfig{
		MinPriceGap:     scfg.MinPriceGap,
		MinRawProfitPct: scfg.MinRawProfitPct,
		MaxRawProfitPct: scfg.MaxRawProfitPct,
		MaxTradeVolume:  scfg.MaxTradeVolume,
		ExecutionFloor:  scfg.ExecutionFloor,
		Expiry:          time.Duration(scfg.ExpirySeconds) * time.Second,
	}, a.logger)
	ranker := engine.NewRanker(engine.RankConfig{
		MinNetProfitPct: scfg.MinNetProfitPct,
		MinVolume:       scfg.MinVolume,
		MaxSlippageRisk: scfg.MaxSlippageRisk,
		MinNetProfit:    scfg.MinNetProfit,
		TopN:            scfg.TopN,
	})

	var priceFeed domain.PriceFeed = feed.NewAggregator(a.buildAdapters(), deps.RateLimiter, a.logger)
	if deps.PriceCache != nil {
		priceFeed = feed.NewCacheWarmer(priceFeed, deps.PriceCache, a.logger)
	}

	var archiver service.Archiver
	if deps.Archiver != nil {
		archiver = deps.Archiver
	}
	svc := service.NewOpportunityService(
		deps.OpportunityStore, deps.SignalBus, archiver, deps.Notifier, a.logger,
	)

	scanner := engine.NewScanner(
		priceFeed, normalizer, detector, ranker, svc,
		scfg.Cooldown.Duration, a.logger,
	)
	return scanner, svc
}

// buildAdapters creates one feed adapter per configured venue endpoint.
func (a *App) buildAdapters() []feed.Adapter {
	fcfg := a.cfg.Feeds
	timeout := fcfg.RequestTimeout.Duration

	var adapters []feed.Adapter
	if fcfg.MinswapURL != "" {
		adapters = append(adapters, feed.NewMinswapClient(fcfg.MinswapURL, timeout))
	}
	if fcfg.SundaeswapURL != "" {
		adapters = append(adapters, feed.NewSundaeswapClient(fcfg.SundaeswapURL, timeout))
	}
	if fcfg.MuesliswapURL != "" {
		adapters = append(adapters, feed.NewMuesliswapClient(fcfg.MuesliswapURL, timeout))
	}
	if fcfg.WingridersURL != "" {
		adapters = append(adapters, feed.NewWingridersClient(fcfg.WingridersURL, timeout))
	}
	if fcfg.CoinGeckoURL != "" {
		adapters = append(adapters, feed.NewCoinGeckoClient(fcfg.CoinGeckoURL, timeout))
	}
	return adapters
}

// startHousekeeping prunes stale opportunity rows on a fixed cadence.
func (a *App) startHousekeeping(ctx context.Context, g *errgroup.Group, svc *service.OpportunityService) {
	retention := a.cfg.Scanner.PruneOlderThan.Duration
	if retention <= 0 {
		return
	}

	g.Go(func() error {
		ticker := time.NewTicker(retention / 4)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if _, err := svc.PruneStale(ctx, retention); err != nil {
					a.logger.WarnContext(ctx, "prune failed",
						slog.String("error", err.Error()),
					)
				}
			}
		}
	})
}

// startTickerFeed connects the optional websocket ticker stream that keeps
// the price cache warm between scan cycles.
func (a *App) startTickerFeed(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	wsURL := a.cfg.Feeds.TickerWSURL
	if wsURL == "" {
		return
	}

	ticker := feed.NewTickerFeed(wsURL, deps.PriceCache, a.logger)

	g.Go(func() error {
		if err := ticker.Connect(ctx); err != nil {
			// The ticker feed is a warm-cache optimization; scanning works
			// without it.
			a.logger.WarnContext(ctx, "ticker feed unavailable",
				slog.String("url", wsURL),
				slog.String("error", err.Error()),
			)
			return nil
		}

		pairs := make([]string, 0, len(a.cfg.Scanner.KnownSymbols))
		for _, sym := range a.cfg.Scanner.KnownSymbols {
			if sym == "ADA" {
				continue
			}
			pairs = append(pairs, sym+"/ADA")
		}
		if err := ticker.Subscribe(ctx, pairs); err != nil {
			a.logger.WarnContext(ctx, "ticker subscribe failed",
				slog.String("error", err.Error()),
			)
		}

		<-ctx.Done()
		_ = ticker.Close()
		return ctx.Err()
	})
}

// startHTTPServer builds the handler set and runs the API server until the
// context is cancelled.
func (a *App) startHTTPServer(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	scanner *engine.Scanner,
	svc *service.OpportunityService,
) {
	if !a.cfg.Server.Enabled {
		return
	}

	handlers := server.Handlers{
		Health:        handler.NewHealthHandler(a.logger),
		Opportunities: handler.NewOpportunityHandler(svc, a.logger),
		Scan:          handler.NewScanHandler(scanner, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, deps.RateLimiter, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("server shutdown failed", slog.String("error", err.Error()))
		}
		return ctx.Err()
	})
}
