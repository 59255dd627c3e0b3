// Package portfolio implements the Portfolio Manager: a pure function over
// (intent, evolving portfolio state, current instant) producing a Decision,
// evaluated through an ordered chain of guards, lower-priority-first, where
// the first hard block wins.
package portfolio

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/fx-decision-engine/pkg/fxtypes"
)

// Manager evaluates intents against an evolving PortfolioState. It carries
// no state itself: state lives in the caller-owned PortfolioState value,
// per the orchestrator's "owns the only copy for the tick" policy.
type Manager struct{}

// New builds a Manager. Stateless; exists for symmetry with the other
// components and to leave room for future configuration.
func New() *Manager { return &Manager{} }

func opensOrScales(t fxtypes.IntentType) bool {
	switch t {
	case fxtypes.IntentOpenLong, fxtypes.IntentOpenShort, fxtypes.IntentScaleIn:
		return true
	default:
		return false
	}
}

func currencyOf(symbol string) string {
	if len(symbol) >= 6 {
		return symbol[3:6]
	}
	return symbol
}

// Evaluate runs the ordered rule chain over one intent, given the evolving
// state and whether the executor is currently BROKEN (for the Queue rule).
// On ALLOW/MODIFY it returns an updated state; on DENY/QUEUE the returned
// state is identical to the input.
func (m *Manager) Evaluate(intent fxtypes.Intent, state fxtypes.PortfolioState, executorBroken bool, now time.Time) (decision fxtypes.Decision, next fxtypes.PortfolioState) {
	defer func() {
		if r := recover(); r != nil {
			decision = deny(intent, state, fxtypes.ReasonPMInternalError, "internal arithmetic error recovered")
			next = state
		}
	}()

	// 1. Global mode guard.
	if state.GlobalMode == fxtypes.GlobalModeRiskOff && opensOrScales(intent.Type) {
		return deny(intent, state, fxtypes.ReasonPMGlobalRiskOff, "global mode is RISK_OFF"), state
	}

	// 2. Cooldown guard.
	for _, cd := range state.Cooldowns {
		if cd.BrainID == intent.BrainID && cd.Symbol == intent.Symbol && now.Before(cd.Until) {
			return deny(intent, state, fxtypes.ReasonPMCooldownActive, "active cooldown for brain/symbol"), state
		}
	}

	// 3. Correlation guard.
	if opensOrScales(intent.Type) {
		projectedCorrelated := state.ExposurePct.Add(intent.ProposedRiskPct)
		if projectedCorrelated.GreaterThan(state.Limits.MaxCorrelatedExposure) {
			return deny(intent, state, fxtypes.ReasonPMCorrelationBlock, "correlated exposure would exceed limit"), state
		}
	}

	// 4. Hard caps.
	if opensOrScales(intent.Type) && state.OpenPositionsCount >= state.Limits.MaxPositions {
		return deny(intent, state, fxtypes.ReasonPMMaxPositions, "max open positions reached"), state
	}
	if state.DailyLossPct.GreaterThanOrEqual(state.Limits.MaxDailyLoss) {
		return deny(intent, state, fxtypes.ReasonPMMaxDailyLoss, "max daily loss reached"), state
	}
	if state.DrawdownPct.GreaterThanOrEqual(state.Limits.MaxDrawdown) {
		return deny(intent, state, fxtypes.ReasonPMMaxDrawdown, "max drawdown reached"), state
	}

	proposed := intent.ProposedRiskPct

	// 5. Per-symbol / per-currency caps.
	symbolExposure := decimal.Zero
	currencyExposure := decimal.Zero
	currency := currencyOf(intent.Symbol)
	for _, p := range state.OpenPositions {
		if p.Symbol == intent.Symbol {
			symbolExposure = symbolExposure.Add(p.RiskPct)
		}
		if p.Currency == currency {
			currencyExposure = currencyExposure.Add(p.RiskPct)
		}
	}

	if residual := state.Limits.MaxExposurePerSymbol.Sub(symbolExposure); opensOrScales(intent.Type) && proposed.GreaterThan(residual) {
		if residual.GreaterThanOrEqual(state.Limits.MinResidualRiskPct) {
			proposed = residual
		} else {
			return deny(intent, state, fxtypes.ReasonPMSymbolCapDeny, "per-symbol cap leaves no usable residual"), state
		}
	}
	if residual := state.Limits.MaxExposurePerCurrency.Sub(currencyExposure); opensOrScales(intent.Type) && proposed.GreaterThan(residual) {
		if residual.GreaterThanOrEqual(state.Limits.MinResidualRiskPct) {
			proposed = residual
		} else {
			return deny(intent, state, fxtypes.ReasonPMCurrencyCapDeny, "per-currency cap leaves no usable residual"), state
		}
	}

	// 6. Fit test.
	modified := !proposed.Equal(intent.ProposedRiskPct)
	if proposed.GreaterThan(state.AvailableRiskPct) {
		proposed = state.AvailableRiskPct
		modified = true
	}

	verdict := fxtypes.VerdictAllow
	var adj *fxtypes.RiskAdjustment
	reason := fxtypes.ReasonPMAllow
	if modified {
		verdict = fxtypes.VerdictModify
		reason = fxtypes.ReasonPMFitModify
		adj = &fxtypes.RiskAdjustment{OriginalPct: intent.ProposedRiskPct, AdjustedPct: proposed, Reason: reason}
	}

	// 7. Queue.
	if executorBroken {
		d := fxtypes.Decision{
			IntentID:        intent.IntentID,
			Verdict:         fxtypes.VerdictQueue,
			RiskStateAtTime: state,
			Why:             fxtypes.Why{ReasonCode: fxtypes.ReasonPMQueueExecBroken, Message: "executor is BROKEN, intent queued"},
		}
		return d, state
	}

	next = advance(state, intent, proposed)
	decision = fxtypes.Decision{
		IntentID:        intent.IntentID,
		Verdict:         verdict,
		Adjustment:      adj,
		RiskStateAtTime: state,
		Why:             fxtypes.Why{ReasonCode: reason, Message: "intent evaluated"},
	}
	return decision, next
}

func deny(intent fxtypes.Intent, state fxtypes.PortfolioState, code fxtypes.ReasonCode, msg string) fxtypes.Decision {
	return fxtypes.Decision{
		IntentID:        intent.IntentID,
		Verdict:         fxtypes.VerdictDeny,
		RiskStateAtTime: state,
		Why:             fxtypes.Why{ReasonCode: code, Message: msg},
	}
}

// advance applies an ALLOW/MODIFY to state so the next intent in the tick
// sees updated exposure and position count.
func advance(state fxtypes.PortfolioState, intent fxtypes.Intent, riskPct decimal.Decimal) fxtypes.PortfolioState {
	next := state
	next.ExposurePct = state.ExposurePct.Add(riskPct)
	next.AvailableRiskPct = state.AvailableRiskPct.Sub(riskPct)
	if opensOrScales(intent.Type) {
		next.OpenPositionsCount = state.OpenPositionsCount + 1
	}
	positions := make([]fxtypes.OpenPosition, len(state.OpenPositions), len(state.OpenPositions)+1)
	copy(positions, state.OpenPositions)
	next.OpenPositions = append(positions, fxtypes.OpenPosition{
		Symbol: intent.Symbol, Currency: currencyOf(intent.Symbol), RiskPct: riskPct, Side: intent.Type,
	})
	return next
}
