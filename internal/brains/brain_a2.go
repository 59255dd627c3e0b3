package brains

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/fx-decision-engine/pkg/fxtypes"
)

// brainA2 is a trend-following brain: proposes a long when structure is
// TREND with normal-or-higher volatility, otherwise skips.
func brainA2(s fxtypes.MarketSnapshot, correlationID string, now time.Time) (*fxtypes.Intent, *fxtypes.Why) {
	if s.Structure != fxtypes.StructureTrend {
		return nil, &fxtypes.Why{ReasonCode: fxtypes.ReasonBrainSkipNoSetup, Message: "structure is not TREND"}
	}
	if s.Volatility == fxtypes.VolatilityLow {
		return nil, &fxtypes.Why{ReasonCode: fxtypes.ReasonBrainSkipLowConfidence, Message: "volatility too low for trend entry"}
	}

	atr := s.Metrics.ATR
	if atr.IsZero() {
		atr = decimal.NewFromFloat(0.0010)
	}

	return &fxtypes.Intent{
		IntentID:        newIntentID(),
		Symbol:          s.Symbol,
		BrainID:         string(fxtypes.ComponentA2),
		Type:            fxtypes.IntentOpenLong,
		ProposedRiskPct: decimal.NewFromFloat(1.0),
		Plan: fxtypes.TradePlan{
			Entry:     decimal.Zero, // orchestrator fills in live price at dispatch time
			Stop:      atr.Mul(decimal.NewFromFloat(-1.5)),
			Target:    atr.Mul(decimal.NewFromFloat(2.5)),
			Timeframe: fxtypes.TimeframeH1,
		},
		Constraints: fxtypes.IntentConstraints{
			MaxSlippageBps: decimal.NewFromInt(5),
			ValidUntil:     now.Add(15 * time.Minute),
			MinRewardRisk:  decimal.NewFromFloat(1.5),
		},
		Why: fxtypes.Why{ReasonCode: fxtypes.ReasonMCLStructureShift, Message: "trend continuation entry"},
	}, nil
}
