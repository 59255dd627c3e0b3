package mcl

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/fx-decision-engine/pkg/fxtypes"
)

func h1Bar(close float64, ts time.Time) fxtypes.Bar {
	c := decimal.NewFromFloat(close)
	return fxtypes.Bar{
		Open: c, Close: c,
		High: c.Add(decimal.NewFromFloat(0.0005)),
		Low:  c.Sub(decimal.NewFromFloat(0.0005)),
		Volume: decimal.NewFromInt(100), Timestamp: ts,
	}
}

func TestClassify_TrendOnRisingClosesAndLows(t *testing.T) {
	now := time.Date(2026, 7, 27, 10, 0, 0, 0, time.UTC)
	in := Input{
		Symbol: "EURUSD",
		H1: []fxtypes.Bar{
			h1Bar(1.10000, now.Add(-2*time.Hour)),
			h1Bar(1.10010, now.Add(-1*time.Hour)),
			h1Bar(1.10020, now),
		},
		Instant: now,
	}
	snap := Classify(in)
	if snap.Structure != fxtypes.StructureTrend {
		t.Errorf("expected structure %s, got %s", fxtypes.StructureTrend, snap.Structure)
	}
	if snap.Why.ReasonCode == "" {
		t.Error("expected a non-empty reason code")
	}
}

func TestClassify_ReasonCodeAlwaysInCatalogue(t *testing.T) {
	atr := decimal.NewFromFloat(1.0)
	ref := decimal.NewFromFloat(1.0)
	asia := time.Date(2026, 7, 27, 3, 0, 0, 0, time.UTC) // 03:00 UTC: ASIA baseline session
	snap := Classify(Input{Symbol: "EURUSD", Instant: asia, ATR: &atr, ATRReference: &ref, EventProximity: fxtypes.EventProximityNone})
	if snap.Why.ReasonCode != fxtypes.ReasonMCLNeutralBaseline {
		t.Errorf("expected reason %s, got %s", fxtypes.ReasonMCLNeutralBaseline, snap.Why.ReasonCode)
	}
}

func TestClassify_MissingMetricIsNeutralNotPanic(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Classify panicked on missing metrics: %v", r)
		}
	}()
	snap := Classify(Input{Symbol: "EURUSD", Instant: time.Now()})
	if snap.Why.ReasonCode != fxtypes.ReasonMCLMissingMetric {
		t.Errorf("expected reason %s, got %s", fxtypes.ReasonMCLMissingMetric, snap.Why.ReasonCode)
	}
}

func TestClassify_VolatilityThresholds(t *testing.T) {
	low := decimal.NewFromFloat(0.3)
	high := decimal.NewFromFloat(2.0)
	ref := decimal.NewFromFloat(1.0)

	snap := Classify(Input{Symbol: "EURUSD", Instant: time.Now(), ATR: &low, ATRReference: &ref})
	if snap.Volatility != fxtypes.VolatilityLow {
		t.Errorf("expected volatility %s, got %s", fxtypes.VolatilityLow, snap.Volatility)
	}

	snap = Classify(Input{Symbol: "EURUSD", Instant: time.Now(), ATR: &high, ATRReference: &ref})
	if snap.Volatility != fxtypes.VolatilityHigh {
		t.Errorf("expected volatility %s, got %s", fxtypes.VolatilityHigh, snap.Volatility)
	}
}

func TestClassify_SessionPriorityNYOverLondon(t *testing.T) {
	overlap := time.Date(2026, 7, 27, 14, 0, 0, 0, time.UTC) // 14:00 UTC: both NY and London windows
	snap := Classify(Input{Symbol: "EURUSD", Instant: overlap})
	if snap.Session != fxtypes.SessionNY {
		t.Errorf("expected session %s, got %s", fxtypes.SessionNY, snap.Session)
	}
}

func TestClassify_RangeUsesProvidedATRNotBarHighLow(t *testing.T) {
	now := time.Date(2026, 7, 27, 10, 0, 0, 0, time.UTC)
	// Last close sits 0.000433 off the three-bar mean: outside a
	// bar-High-Low-derived band (0.001*0.2=0.0002) but inside a supplied
	// ATR of 0.01 (band 0.002).
	in := Input{
		Symbol: "EURUSD",
		H1: []fxtypes.Bar{
			h1Bar(1.10000, now.Add(-2*time.Hour)),
			h1Bar(1.10030, now.Add(-1*time.Hour)),
			h1Bar(1.09950, now),
		},
		Instant: now,
	}
	wideATR := decimal.NewFromFloat(0.01)
	ref := decimal.NewFromFloat(0.01)
	in.ATR = &wideATR
	in.ATRReference = &ref

	snap := Classify(in)
	if snap.Structure != fxtypes.StructureRange {
		t.Errorf("expected structure %s with a wide ATR band, got %s", fxtypes.StructureRange, snap.Structure)
	}
}
