package brains

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/fx-decision-engine/pkg/fxtypes"
)

// brainC3 scales into an existing trend on the NY session's correlation
// window, skipping outside NY/LONDON overlap or when event proximity
// suggests caution.
func brainC3(s fxtypes.MarketSnapshot, correlationID string, now time.Time) (*fxtypes.Intent, *fxtypes.Why) {
	if s.Session != fxtypes.SessionNY && s.Session != fxtypes.SessionLondon {
		return nil, &fxtypes.Why{ReasonCode: fxtypes.ReasonBrainSkipNoSetup, Message: "outside NY/LONDON sessions"}
	}
	if s.EventProximity == fxtypes.EventProximityPreEvent {
		return nil, &fxtypes.Why{ReasonCode: fxtypes.ReasonBrainSkipLowConfidence, Message: "pre-event proximity"}
	}
	if s.Structure != fxtypes.StructureTrend {
		return nil, &fxtypes.Why{ReasonCode: fxtypes.ReasonBrainSkipNoSetup, Message: "no trend to scale into"}
	}

	atr := s.Metrics.ATR
	if atr.IsZero() {
		atr = decimal.NewFromFloat(0.0010)
	}

	return &fxtypes.Intent{
		IntentID:        newIntentID(),
		Symbol:          s.Symbol,
		BrainID:         string(fxtypes.ComponentC3),
		Type:            fxtypes.IntentScaleIn,
		ProposedRiskPct: decimal.NewFromFloat(0.5),
		Plan: fxtypes.TradePlan{
			Entry:     decimal.Zero,
			Stop:      atr.Mul(decimal.NewFromFloat(-1.0)),
			Target:    atr.Mul(decimal.NewFromFloat(2.0)),
			Timeframe: fxtypes.TimeframeH1,
		},
		Constraints: fxtypes.IntentConstraints{
			MaxSlippageBps: decimal.NewFromInt(5),
			ValidUntil:     now.Add(15 * time.Minute),
			MinRewardRisk:  decimal.NewFromFloat(2.0),
		},
		Why: fxtypes.Why{ReasonCode: fxtypes.ReasonMCLSessionShift, Message: "session-aligned trend scale-in"},
	}, nil
}
