package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/fx-decision-engine/internal/brains"
	"github.com/atlas-desktop/fx-decision-engine/internal/executor"
	"github.com/atlas-desktop/fx-decision-engine/internal/gate"
	"github.com/atlas-desktop/fx-decision-engine/internal/ledger"
	"github.com/atlas-desktop/fx-decision-engine/internal/marketdata"
	"github.com/atlas-desktop/fx-decision-engine/internal/metrics"
	"github.com/atlas-desktop/fx-decision-engine/internal/opstate"
	"github.com/atlas-desktop/fx-decision-engine/internal/portfolio"
	"github.com/atlas-desktop/fx-decision-engine/internal/streamhub"
	"github.com/atlas-desktop/fx-decision-engine/pkg/fxtypes"
)

func testLimits() fxtypes.RiskLimits {
	return fxtypes.RiskLimits{
		MaxDrawdown: decimal.NewFromInt(10), MaxExposure: decimal.NewFromInt(30),
		MaxDailyLoss: decimal.NewFromInt(5), MaxPositions: 10,
		MaxExposurePerSymbol: decimal.NewFromInt(8), MaxExposurePerCurrency: decimal.NewFromInt(15),
		MaxCorrelatedExposure: decimal.NewFromInt(20), MinResidualRiskPct: decimal.NewFromFloat(0.1),
	}
}

type testRig struct {
	orch   *Orchestrator
	ledger *ledger.Ledger
	state  *opstate.State
	gate   *gate.Authority
	exec   *executor.Simulator
}

func newTestRig(t *testing.T, mode executor.HealthMode) *testRig {
	t.Helper()
	logger := zap.NewNop()

	l, err := ledger.New(logger, t.TempDir())
	if err != nil {
		t.Fatalf("failed to create ledger: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })

	hub := streamhub.New(logger)
	t.Cleanup(hub.Close)

	state := opstate.New(logger)
	ga := gate.New(logger, state)
	mtr := metrics.New(prometheus.NewRegistry())
	exec := executor.NewSimulator(logger, mode)

	orch := New(logger, DefaultConfig(), l, hub, marketdata.NewSimulator(logger),
		brains.NewRegistry(), portfolio.New(), exec, state, mtr, testLimits())

	return &testRig{orch: orch, ledger: l, state: state, gate: ga, exec: exec}
}

// A shadow-gate (G0) tick classifies and decides but sends zero commands,
// since MaySendCommands requires gate != G0.
func TestRunTick_ShadowGateSendsNoCommands(t *testing.T) {
	rig := newTestRig(t, executor.HealthModeNormal)

	result, err := rig.orch.RunTick(context.Background(), []string{"EURUSD", "GBPUSD"})
	if err != nil {
		t.Fatalf("unexpected error running tick: %v", err)
	}
	if !result.HasMCLSnapshot {
		t.Error("expected HasMCLSnapshot to be true")
	}
	if !result.HasBrainIntentOrSkip {
		t.Error("expected HasBrainIntentOrSkip to be true")
	}
	if result.EventsPersisted <= 0 {
		t.Errorf("expected at least one event persisted, got %d", result.EventsPersisted)
	}

	for _, e := range rig.ledger.Tail(1000, ledger.Filters{}) {
		if e.EventType == fxtypes.EventExecutorCommand {
			t.Error("no commands should be sent while gate is G0")
		}
	}
}

// Every event appended during one tick shares that tick's correlation id.
func TestRunTick_AllEventsShareOneCorrelationID(t *testing.T) {
	rig := newTestRig(t, executor.HealthModeNormal)

	if _, err := rig.orch.RunTick(context.Background(), []string{"EURUSD"}); err != nil {
		t.Fatalf("unexpected error running tick: %v", err)
	}

	events := rig.ledger.Tail(1000, ledger.Filters{})
	if len(events) == 0 {
		t.Fatal("expected at least one event")
	}
	corr := events[0].CorrelationID
	for _, e := range events {
		if e.CorrelationID != corr {
			t.Errorf("expected correlation id %s, got %s", corr, e.CorrelationID)
		}
	}
}

// A completed tick in which a brain proposes an intent satisfies the gate
// authority's promotion prerequisites (MCL snapshot, brain intent/skip, PM
// decision, ledger writes); executor connectivity must still be recorded
// separately. Degraded execution health makes D2 propose a hedge, since
// the simulated bars alone leave every brain skipping.
func TestRunTick_SatisfiesGatePromotionPrerequisites(t *testing.T) {
	rig := newTestRig(t, executor.HealthModeNormal)
	rig.state.SetExecutionState(fxtypes.ExecutionHealthDegraded)

	if _, err := rig.orch.RunTick(context.Background(), []string{"EURUSD"}); err != nil {
		t.Fatalf("unexpected error running tick: %v", err)
	}

	rig.state.SetExecutorConnectivity(opstate.ConnectivityConnected)

	res := rig.gate.RequestTransition(fxtypes.GateG0, fxtypes.GateG1, fxtypes.ActorContext{Role: fxtypes.RoleAdmin}, time.Now(), "corr-test")
	if !res.Accepted {
		t.Errorf("expected promotion to be accepted, missing reasons: %v", res.MissingReasons)
	}
}

// Once armed above G0, simulator lifecycle events normalize through
// handleLifecycleEvent into ledger events carrying the dispatching tick's
// correlation id. Degraded execution health makes D2 propose a hedge so
// the ticks have a decision to dispatch.
func TestRunTick_ArmedDispatchesCommandsAndRecordsLifecycle(t *testing.T) {
	rig := newTestRig(t, executor.HealthModeNormal)
	rig.state.SetExecutionState(fxtypes.ExecutionHealthDegraded)

	if _, err := rig.orch.RunTick(context.Background(), []string{"EURUSD"}); err != nil {
		t.Fatalf("unexpected error running tick: %v", err)
	}
	rig.state.SetExecutorConnectivity(opstate.ConnectivityConnected)

	res := rig.gate.RequestTransition(fxtypes.GateG0, fxtypes.GateG1, fxtypes.ActorContext{Role: fxtypes.RoleAdmin}, time.Now(), "corr-promote")
	if !res.Accepted {
		t.Fatalf("expected promotion to be accepted, missing reasons: %v", res.MissingReasons)
	}
	if err := rig.state.Arm("ARM"); err != nil {
		t.Fatalf("unexpected error arming: %v", err)
	}

	result, err := rig.orch.RunTick(context.Background(), []string{"EURUSD"})
	if err != nil {
		t.Fatalf("unexpected error running tick: %v", err)
	}
	if result.EventsPersisted <= 0 {
		t.Errorf("expected at least one event persisted, got %d", result.EventsPersisted)
	}

	commands := rig.ledger.Tail(1000, ledger.Filters{EventType: fxtypes.EventExecutorCommand})
	if len(commands) == 0 {
		t.Fatal("expected EXECUTOR_COMMAND events once armed above G0")
	}
	fills := rig.ledger.Tail(1000, ledger.Filters{EventType: fxtypes.EventExecSimulatedFill})
	if len(fills) == 0 {
		t.Fatal("expected an EXEC_SIMULATED_FILL lifecycle event")
	}
	if fills[0].CorrelationID != commands[0].CorrelationID {
		t.Errorf("expected lifecycle correlation id %s, got %s", commands[0].CorrelationID, fills[0].CorrelationID)
	}
}

// While one tick holds the tick lock, a second RunTick is refused with
// ErrTickInProgress instead of running concurrently.
func TestRunTick_TickLockPreventsConcurrentTicks(t *testing.T) {
	rig := newTestRig(t, executor.HealthModeNormal)

	rig.orch.tickLock <- struct{}{}
	defer func() { <-rig.orch.tickLock }()

	_, err := rig.orch.RunTick(context.Background(), []string{"EURUSD"})
	if !errors.Is(err, ErrTickInProgress) {
		t.Errorf("expected ErrTickInProgress, got %v", err)
	}
}
