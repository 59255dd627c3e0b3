package gate

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/atlas-desktop/fx-decision-engine/internal/opstate"
	"github.com/atlas-desktop/fx-decision-engine/pkg/fxtypes"
)

func containsReason(reasons []fxtypes.ReasonCode, want fxtypes.ReasonCode) bool {
	for _, r := range reasons {
		if r == want {
			return true
		}
	}
	return false
}

func TestRequestTransition_RefusedWithNoPriorTick(t *testing.T) {
	state := opstate.New(zap.NewNop())
	a := New(zap.NewNop(), state)

	res := a.RequestTransition(fxtypes.GateG0, fxtypes.GateG1, fxtypes.ActorContext{Role: fxtypes.RoleAdmin}, time.Now(), "corr-1")
	if res.Accepted {
		t.Fatal("expected promotion to be refused with no prior tick")
	}
	for _, want := range []fxtypes.ReasonCode{
		fxtypes.ReasonGatePrereqMissingMCLSnapshot,
		fxtypes.ReasonGatePrereqMissingBrainIntent,
		fxtypes.ReasonGatePrereqMissingPMDecision,
		fxtypes.ReasonGatePrereqMissingLedger,
		fxtypes.ReasonGatePrereqMissingExecutor,
	} {
		if !containsReason(res.MissingReasons, want) {
			t.Errorf("expected missing reasons to contain %s, got %v", want, res.MissingReasons)
		}
	}
	if got := state.Snapshot().Gate; got != fxtypes.GateG0 {
		t.Errorf("expected gate to remain %s, got %s", fxtypes.GateG0, got)
	}
}

func TestRequestTransition_AcceptedWhenPrerequisitesMet(t *testing.T) {
	state := opstate.New(zap.NewNop())
	state.RecordTickResult(opstate.TickResult{
		HasMCLSnapshot: true, HasBrainIntentOrSkip: true, HasPMDecision: true, EventsPersisted: 6,
	})
	state.SetExecutorConnectivity(opstate.ConnectivityConnected)

	a := New(zap.NewNop(), state)
	res := a.RequestTransition(fxtypes.GateG0, fxtypes.GateG1, fxtypes.ActorContext{Role: fxtypes.RoleAdmin}, time.Now(), "corr-2")
	if !res.Accepted {
		t.Fatalf("expected promotion to be accepted, missing reasons: %v", res.MissingReasons)
	}
	if got := state.Snapshot().Gate; got != fxtypes.GateG1 {
		t.Errorf("expected gate %s, got %s", fxtypes.GateG1, got)
	}
	if res.Audit == nil {
		t.Error("expected an audit record")
	}
}

func TestRequestTransition_NonAdminRefused(t *testing.T) {
	state := opstate.New(zap.NewNop())
	state.RecordTickResult(opstate.TickResult{HasMCLSnapshot: true, HasBrainIntentOrSkip: true, HasPMDecision: true, EventsPersisted: 6})
	state.SetExecutorConnectivity(opstate.ConnectivityConnected)

	a := New(zap.NewNop(), state)
	res := a.RequestTransition(fxtypes.GateG0, fxtypes.GateG1, fxtypes.ActorContext{Role: "Trader"}, time.Now(), "corr-3")
	if res.Accepted {
		t.Fatal("expected promotion by a non-admin to be refused")
	}
	if !containsReason(res.MissingReasons, fxtypes.ReasonGatePrereqMissingRole) {
		t.Errorf("expected missing reasons to contain %s, got %v", fxtypes.ReasonGatePrereqMissingRole, res.MissingReasons)
	}
}

func TestRequestTransition_DemotionAlwaysAllowedAndForcesDisarmAtG0(t *testing.T) {
	state := opstate.New(zap.NewNop())
	state.SetGate(fxtypes.GateG2)
	if err := state.Arm("ARM"); err != nil {
		t.Fatalf("unexpected error arming: %v", err)
	}

	a := New(zap.NewNop(), state)
	res := a.RequestTransition(fxtypes.GateG2, fxtypes.GateG0, fxtypes.ActorContext{Role: "Trader"}, time.Now(), "corr-4")
	if !res.Accepted {
		t.Fatal("expected demotion to always be accepted")
	}
	if got := state.Snapshot().Arm; got != fxtypes.ArmDisarmed {
		t.Errorf("expected arm state %s after demotion to G0, got %s", fxtypes.ArmDisarmed, got)
	}
}

func TestRequestTransition_MustBeExactlyOneStep(t *testing.T) {
	state := opstate.New(zap.NewNop())
	state.RecordTickResult(opstate.TickResult{HasMCLSnapshot: true, HasBrainIntentOrSkip: true, HasPMDecision: true, EventsPersisted: 6})
	state.SetExecutorConnectivity(opstate.ConnectivityConnected)

	a := New(zap.NewNop(), state)
	res := a.RequestTransition(fxtypes.GateG0, fxtypes.GateG2, fxtypes.ActorContext{Role: fxtypes.RoleAdmin}, time.Now(), "corr-5")
	if res.Accepted {
		t.Error("expected a two-step promotion to be refused")
	}
}
