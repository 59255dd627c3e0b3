// Package commandmapper implements the pure function that turns a
// (decision, intent, gate, arm) tuple into an ordered list of executor
// commands, built field-by-field in a fixed order so the same inputs
// always produce the same command list.
package commandmapper

import (
	"github.com/atlas-desktop/fx-decision-engine/pkg/fxtypes"
)

// EdgeHealthAction is the emergency action an edge-health monitor may raise
// ahead of a normal decision/intent pass.
type EdgeHealthAction struct {
	ExitNow          bool
	AffectedSymbols  []string
}

// Context is the mapper's view of operational state. CurrentStrategy and
// Arm are read to decide whether SET_STRATEGY/ARM are necessary.
type Context struct {
	Gate            fxtypes.Gate
	Arm             fxtypes.Arm
	CurrentStrategy string
	EdgeHealth      EdgeHealthAction
	CorrelationID   string
}

// UnsupportedAction is recorded when the mapper is asked to represent an
// action outside its enumerated command set; it surfaces as a ledger entry
// with reason EXEC_ORDER_FAILED, never invented as a command.
type UnsupportedAction struct {
	Action string
	Reason fxtypes.ReasonCode
}

// Map runs the ordered rules and returns the commands to dispatch plus any
// unsupported-action records to log. It is deterministic: calling it twice
// with the same inputs yields the same ordered list.
func Map(ctx Context, decision fxtypes.Decision, intent fxtypes.Intent) (commands []fxtypes.ExecutorCommand, unsupported []UnsupportedAction) {
	// 1. Gate G0 => empty.
	if ctx.Gate == fxtypes.GateG0 {
		return nil, nil
	}

	// 2. Emergency EXIT_NOW overrides everything else.
	if ctx.EdgeHealth.ExitNow {
		return []fxtypes.ExecutorCommand{{
			Type:          fxtypes.CommandCloseDay,
			Payload:       map[string]any{"symbols": ctx.EdgeHealth.AffectedSymbols, "reason": "EHM_EXIT_NOW"},
			CorrelationID: ctx.CorrelationID,
		}}, nil
	}

	// 3. Non-ALLOW/MODIFY verdicts emit nothing.
	if decision.Verdict != fxtypes.VerdictAllow && decision.Verdict != fxtypes.VerdictModify {
		return nil, nil
	}

	// 4. CLOSE intents are managed by the executor's own lifecycle.
	if intent.Type == fxtypes.IntentClose {
		return nil, nil
	}

	// 5. Fixed emission order.
	var out []fxtypes.ExecutorCommand

	desiredStrategy := intent.BrainID
	if desiredStrategy != ctx.CurrentStrategy {
		out = append(out, fxtypes.ExecutorCommand{
			Type:          fxtypes.CommandSetStrategy,
			Payload:       map[string]any{"strategy": desiredStrategy},
			CorrelationID: ctx.CorrelationID,
		})
	}

	riskPct := intent.ProposedRiskPct
	if decision.Adjustment != nil {
		riskPct = decision.Adjustment.AdjustedPct
	}

	out = append(out, fxtypes.ExecutorCommand{
		Type: fxtypes.CommandSetParams,
		Payload: map[string]any{
			"symbol":    intent.Symbol,
			"direction": string(intent.Type),
			"entry":     intent.Plan.Entry.String(),
			"stop":      intent.Plan.Stop.String(),
			"target":    intent.Plan.Target.String(),
			"timeframe": string(intent.Plan.Timeframe),
			"quantity":  riskPct.String(),
		},
		CorrelationID: ctx.CorrelationID,
	})

	if decision.Adjustment != nil {
		out = append(out, fxtypes.ExecutorCommand{
			Type:          fxtypes.CommandSetRisk,
			Payload:       map[string]any{"risk_pct": riskPct.String(), "reason": string(decision.Adjustment.Reason)},
			CorrelationID: ctx.CorrelationID,
		})
	}

	out = append(out, fxtypes.ExecutorCommand{
		Type:          fxtypes.CommandSetSymbolsActive,
		Payload:       map[string]any{"add": []string{intent.Symbol}},
		CorrelationID: ctx.CorrelationID,
	})

	if ctx.Arm == fxtypes.ArmDisarmed && ctx.Gate.Level() >= fxtypes.GateG1.Level() {
		out = append(out, fxtypes.ExecutorCommand{
			Type:          fxtypes.CommandArm,
			Payload:       map[string]any{},
			CorrelationID: ctx.CorrelationID,
		})
	}

	return out, nil
}
