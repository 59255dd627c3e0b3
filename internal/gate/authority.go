// Package gate implements the Gate Promotion Authority: validating
// prerequisites for a requested gate transition and recording it. Control
// logic over already-typed structs; its only third-party imports are
// google/uuid for audit ids and zap for logging.
package gate

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atlas-desktop/fx-decision-engine/pkg/fxtypes"
	"github.com/atlas-desktop/fx-decision-engine/internal/opstate"
)

// TransitionResult is the outcome of a requested transition.
type TransitionResult struct {
	Accepted        bool
	NewGate         fxtypes.Gate
	MissingReasons  []fxtypes.ReasonCode
	Audit           *fxtypes.AuditLog
}

// Authority validates and applies gate transitions against a shared
// opstate.State.
type Authority struct {
	logger *zap.Logger
	state  *opstate.State
}

// New builds an Authority bound to state.
func New(logger *zap.Logger, state *opstate.State) *Authority {
	return &Authority{logger: logger.Named("gate-authority"), state: state}
}

// RequestTransition validates from->to against the most recent tick result
// and the actor's role.
func (a *Authority) RequestTransition(from, to fxtypes.Gate, actor fxtypes.ActorContext, now time.Time, correlationID string) TransitionResult {
	if to.Level() < from.Level() {
		a.state.SetGate(to)
		audit := a.recordAudit(actor, "GATE_DEMOTE", from, to, correlationID, now)
		return TransitionResult{Accepted: true, NewGate: to, Audit: &audit}
	}

	if to.Level() != from.Level()+1 {
		return TransitionResult{Accepted: false, MissingReasons: []fxtypes.ReasonCode{fxtypes.ReasonGateStateViolation}}
	}

	snap := a.state.Snapshot()
	var missing []fxtypes.ReasonCode

	if snap.LastTickResult == nil || !snap.LastTickResult.HasMCLSnapshot {
		missing = append(missing, fxtypes.ReasonGatePrereqMissingMCLSnapshot)
	}
	if snap.LastTickResult == nil || !snap.LastTickResult.HasBrainIntentOrSkip {
		missing = append(missing, fxtypes.ReasonGatePrereqMissingBrainIntent)
	}
	if snap.LastTickResult == nil || !snap.LastTickResult.HasPMDecision {
		missing = append(missing, fxtypes.ReasonGatePrereqMissingPMDecision)
	}
	if snap.LastTickResult == nil || snap.LastTickResult.EventsPersisted <= 0 {
		missing = append(missing, fxtypes.ReasonGatePrereqMissingLedger)
	}
	if snap.ExecutorConnectivity != opstate.ConnectivityConnected {
		missing = append(missing, fxtypes.ReasonGatePrereqMissingExecutor)
	}
	if actor.Role != fxtypes.RoleAdmin {
		missing = append(missing, fxtypes.ReasonGatePrereqMissingRole)
	}

	if len(missing) > 0 {
		return TransitionResult{Accepted: false, MissingReasons: missing}
	}

	a.state.SetGate(to)
	audit := a.recordAudit(actor, "GATE_PROMOTE", from, to, correlationID, now)
	return TransitionResult{Accepted: true, NewGate: to, Audit: &audit}
}

func (a *Authority) recordAudit(actor fxtypes.ActorContext, action string, from, to fxtypes.Gate, correlationID string, now time.Time) fxtypes.AuditLog {
	return fxtypes.AuditLog{
		AuditID:       uuid.NewString(),
		Timestamp:     now,
		ActorUserID:   actor.UserID,
		ActorRole:     actor.Role,
		Action:        action,
		Resource:      "gate",
		Before:        map[string]any{"gate": string(from)},
		After:         map[string]any{"gate": string(to)},
		CorrelationID: correlationID,
	}
}
