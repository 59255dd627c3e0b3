package brains

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/fx-decision-engine/pkg/fxtypes"
)

// brainD2 is a defensive hedge brain: proposes a hedge whenever execution
// health is degraded or global_mode signals stress, regardless of
// structure, skipping in calm conditions.
func brainD2(s fxtypes.MarketSnapshot, correlationID string, now time.Time) (*fxtypes.Intent, *fxtypes.Why) {
	stressed := s.GlobalMode == fxtypes.GlobalModeCorrBreak || s.GlobalMode == fxtypes.GlobalModeEventCluster
	if s.ExecutionHealth == fxtypes.ExecutionHealthOK && !stressed {
		return nil, &fxtypes.Why{ReasonCode: fxtypes.ReasonBrainSkipNoSetup, Message: "no stress condition to hedge"}
	}

	atr := s.Metrics.ATR
	if atr.IsZero() {
		atr = decimal.NewFromFloat(0.0010)
	}

	return &fxtypes.Intent{
		IntentID:        newIntentID(),
		Symbol:          s.Symbol,
		BrainID:         string(fxtypes.ComponentD2),
		Type:            fxtypes.IntentHedge,
		ProposedRiskPct: decimal.NewFromFloat(0.25),
		Plan: fxtypes.TradePlan{
			Entry:     decimal.Zero,
			Stop:      atr.Mul(decimal.NewFromFloat(-2.0)),
			Target:    atr.Mul(decimal.NewFromFloat(1.0)),
			Timeframe: fxtypes.TimeframeH4,
		},
		Constraints: fxtypes.IntentConstraints{
			MaxSlippageBps: decimal.NewFromInt(10),
			ValidUntil:     now.Add(30 * time.Minute),
			MinRewardRisk:  decimal.NewFromFloat(0.5),
		},
		Why: fxtypes.Why{ReasonCode: fxtypes.ReasonMCLEventProximity, Message: "defensive hedge under stress"},
	}, nil
}
