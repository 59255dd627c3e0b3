package marketdata

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/fx-decision-engine/pkg/fxtypes"
)

func bar(ts time.Time) fxtypes.Bar {
	return fxtypes.Bar{
		Open: decimal.NewFromFloat(1.1), High: decimal.NewFromFloat(1.11),
		Low: decimal.NewFromFloat(1.09), Close: decimal.NewFromFloat(1.1),
		Volume: decimal.NewFromInt(100), Timestamp: ts,
	}
}

func TestDataQuality_MarketClosedWeekend(t *testing.T) {
	saturday := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) // a Saturday
	res := DataQuality([]fxtypes.Bar{bar(saturday)}, fxtypes.TimeframeH1, "EURUSD", saturday)
	if res.Status != fxtypes.DataQualityMarketClosed {
		t.Errorf("expected status %s, got %s", fxtypes.DataQualityMarketClosed, res.Status)
	}
}

func TestDataQuality_DownOnEmptySeries(t *testing.T) {
	monday := time.Date(2026, 7, 27, 12, 0, 0, 0, time.UTC)
	res := DataQuality(nil, fxtypes.TimeframeH1, "EURUSD", monday)
	if res.Status != fxtypes.DataQualityDown {
		t.Errorf("expected status %s, got %s", fxtypes.DataQualityDown, res.Status)
	}
}

func TestDataQuality_DegradedOnStaleBar(t *testing.T) {
	now := time.Date(2026, 7, 27, 12, 0, 0, 0, time.UTC)
	stale := bar(now.Add(-3 * time.Hour)) // > 2x H1 interval
	res := DataQuality([]fxtypes.Bar{stale}, fxtypes.TimeframeH1, "EURUSD", now)
	if res.Status != fxtypes.DataQualityDegraded {
		t.Errorf("expected status %s, got %s", fxtypes.DataQualityDegraded, res.Status)
	}
	if !res.Stale {
		t.Error("expected stale flag to be set")
	}
}

func TestDataQuality_OKWhenFresh(t *testing.T) {
	now := time.Date(2026, 7, 27, 12, 0, 0, 0, time.UTC)
	fresh := bar(now.Add(-10 * time.Minute))
	res := DataQuality([]fxtypes.Bar{fresh}, fxtypes.TimeframeH1, "EURUSD", now)
	if res.Status != fxtypes.DataQualityOK {
		t.Errorf("expected status %s, got %s", fxtypes.DataQualityOK, res.Status)
	}
}

func TestDataQuality_DegradedOnInternalGap(t *testing.T) {
	now := time.Date(2026, 7, 27, 12, 0, 0, 0, time.UTC)
	series := []fxtypes.Bar{
		bar(now.Add(-5 * time.Hour)),
		bar(now.Add(-10 * time.Minute)), // > 3x H1 interval gap vs previous
	}
	res := DataQuality(series, fxtypes.TimeframeH1, "EURUSD", now)
	if res.Status != fxtypes.DataQualityDegraded {
		t.Errorf("expected status %s, got %s", fxtypes.DataQualityDegraded, res.Status)
	}
	if res.Gaps != 1 {
		t.Errorf("expected 1 gap, got %d", res.Gaps)
	}
}
