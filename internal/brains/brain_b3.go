package brains

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/fx-decision-engine/pkg/fxtypes"
)

// brainB3 is a mean-reversion brain: proposes a short on a RAID liquidity
// phase with HIGH volatility (a sweep likely to revert), otherwise skips.
func brainB3(s fxtypes.MarketSnapshot, correlationID string, now time.Time) (*fxtypes.Intent, *fxtypes.Why) {
	if s.LiquidityPhase != fxtypes.LiquidityRaid {
		return nil, &fxtypes.Why{ReasonCode: fxtypes.ReasonBrainSkipNoSetup, Message: "liquidity phase is not RAID"}
	}
	if s.Volatility != fxtypes.VolatilityHigh {
		return nil, &fxtypes.Why{ReasonCode: fxtypes.ReasonBrainSkipLowConfidence, Message: "raid without elevated volatility"}
	}

	atr := s.Metrics.ATR
	if atr.IsZero() {
		atr = decimal.NewFromFloat(0.0010)
	}

	return &fxtypes.Intent{
		IntentID:        newIntentID(),
		Symbol:          s.Symbol,
		BrainID:         string(fxtypes.ComponentB3),
		Type:            fxtypes.IntentOpenShort,
		ProposedRiskPct: decimal.NewFromFloat(0.75),
		Plan: fxtypes.TradePlan{
			Entry:     decimal.Zero,
			Stop:      atr.Mul(decimal.NewFromFloat(1.2)),
			Target:    atr.Mul(decimal.NewFromFloat(-1.8)),
			Timeframe: fxtypes.TimeframeM15,
		},
		Constraints: fxtypes.IntentConstraints{
			MaxSlippageBps: decimal.NewFromInt(8),
			ValidUntil:     now.Add(10 * time.Minute),
			MinRewardRisk:  decimal.NewFromFloat(1.2),
		},
		Why: fxtypes.Why{ReasonCode: fxtypes.ReasonMCLLiquidityShift, Message: "liquidity raid reversion entry"},
	}, nil
}
