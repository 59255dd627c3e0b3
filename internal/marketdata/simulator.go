package marketdata

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/fx-decision-engine/pkg/fxtypes"
)

// Simulator generates deterministic, symbol-seeded synthetic bar series for
// G0/G1 operation and for tests, in place of a live provider connection.
type Simulator struct {
	logger *zap.Logger
	clock  func() time.Time
}

// NewSimulator builds a Simulator using the real wall clock.
func NewSimulator(logger *zap.Logger) *Simulator {
	return &Simulator{logger: logger.Named("marketdata-sim"), clock: time.Now}
}

// seed derives a stable per-symbol pseudo-random seed without math/rand.
func seed(symbol string) float64 {
	var h uint32 = 2166136261
	for _, c := range symbol {
		h = (h ^ uint32(c)) * 16777619
	}
	return float64(h%10000) / 10000.0
}

func basePriceFor(symbol string) decimal.Decimal {
	switch symbol {
	case "EURUSD":
		return decimal.NewFromFloat(1.1000)
	case "GBPUSD":
		return decimal.NewFromFloat(1.2700)
	case "USDJPY":
		return decimal.NewFromFloat(149.50)
	default:
		return decimal.NewFromFloat(1.0000 + seed(symbol))
	}
}

func genSeries(symbol string, tf fxtypes.Timeframe, n int, interval time.Duration, now time.Time, s float64) []fxtypes.Bar {
	base := basePriceFor(symbol)
	bars := make([]fxtypes.Bar, 0, n)
	price := base
	for i := n - 1; i >= 0; i-- {
		ts := now.Add(-time.Duration(i) * interval)
		drift := math.Sin(s*float64(i)) * 0.0005
		o := price
		c := price.Add(decimal.NewFromFloat(drift))
		h := decimal.Max(o, c).Add(decimal.NewFromFloat(0.0003))
		l := decimal.Min(o, c).Sub(decimal.NewFromFloat(0.0003))
		bars = append(bars, fxtypes.Bar{
			Open: o, High: h, Low: l, Close: c,
			Volume:    decimal.NewFromFloat(1000 + s*500),
			Timestamp: ts,
		})
		price = c
	}
	return bars
}

// Fetch returns a synthetic BarSeries for symbol, seeded so repeated calls
// within the same second are stable.
func (s *Simulator) Fetch(ctx context.Context, symbol string) (fxtypes.BarSeries, error) {
	if symbol == "" {
		return fxtypes.BarSeries{}, fmt.Errorf("empty symbol")
	}
	now := s.clock().UTC()
	sd := seed(symbol)

	return fxtypes.BarSeries{
		Symbol:    symbol,
		D1:        genSeries(symbol, fxtypes.TimeframeD1, 30, 24*time.Hour, now, sd),
		H4:        genSeries(symbol, fxtypes.TimeframeH4, 30, 4*time.Hour, now, sd),
		H1:        genSeries(symbol, fxtypes.TimeframeH1, 30, time.Hour, now, sd),
		M15:       genSeries(symbol, fxtypes.TimeframeM15, 30, 15*time.Minute, now, sd),
		FetchedAt: now,
	}, nil
}

// FetchBatch fetches every symbol independently; one symbol's failure is
// isolated in its own FetchResult.
func (s *Simulator) FetchBatch(ctx context.Context, symbols []string) map[string]FetchResult {
	out := make(map[string]FetchResult, len(symbols))
	for _, sym := range symbols {
		series, err := fetchWithRetry(ctx, s.logger, sym, s.Fetch)
		out[sym] = FetchResult{Series: series, Err: err}
	}
	return out
}

// DataQuality classifies series against the simulator's own clock.
func (s *Simulator) DataQuality(series []fxtypes.Bar, timeframe fxtypes.Timeframe, symbol string) QualityResult {
	return DataQuality(series, timeframe, symbol, s.clock().UTC())
}

var _ Port = (*Simulator)(nil)
