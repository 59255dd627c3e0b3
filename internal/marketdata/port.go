// Package marketdata supplies bar-series OHLC data per symbol across
// timeframes and classifies its quality. The real wire protocol (cTrader
// framing, OAuth refresh) is out of scope; this package exposes the
// bar-series fetch interface the core consumes, plus a simulated generator
// for G0/G1 operation.
package marketdata

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/atlas-desktop/fx-decision-engine/pkg/fxtypes"
)

// Port is the contract the Tick Orchestrator consumes. A real
// implementation would wrap an HTTP/websocket provider client; Simulator
// below is the in-process generator used in G0/G1 and in tests.
type Port interface {
	Fetch(ctx context.Context, symbol string) (fxtypes.BarSeries, error)
	FetchBatch(ctx context.Context, symbols []string) map[string]FetchResult
	DataQuality(series []fxtypes.Bar, timeframe fxtypes.Timeframe, symbol string) QualityResult
}

// FetchResult isolates one symbol's outcome within a batch fetch so a
// single symbol's failure never aborts the others.
type FetchResult struct {
	Series fxtypes.BarSeries
	Err    error
}

const (
	maxRetries     = 2
	retryBackoff   = 20 * time.Millisecond
	fetchTimeout   = 3 * time.Second
)

// fetchWithRetry retries fn up to maxRetries times with a small backoff.
func fetchWithRetry(ctx context.Context, logger *zap.Logger, symbol string, fn func(context.Context) (fxtypes.BarSeries, error)) (fxtypes.BarSeries, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		cctx, cancel := context.WithTimeout(ctx, fetchTimeout)
		series, err := fn(cctx)
		cancel()
		if err == nil {
			return series, nil
		}
		lastErr = err
		logger.Warn("market data fetch failed", zap.String("symbol", symbol), zap.Int("attempt", attempt), zap.Error(err))
		if attempt < maxRetries {
			time.Sleep(retryBackoff)
		}
	}
	return fxtypes.BarSeries{}, fmt.Errorf("fetch %s: %w", symbol, lastErr)
}
