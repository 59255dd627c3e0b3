package executor

import (
	"context"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/fx-decision-engine/pkg/fxtypes"
)

func setParamsCommand(correlationID string) fxtypes.ExecutorCommand {
	return fxtypes.ExecutorCommand{
		Type: fxtypes.CommandSetParams,
		Payload: map[string]any{
			"symbol": "EURUSD", "direction": "OPEN_LONG",
			"entry": "1.1000", "stop": "1.0950", "target": "1.1100",
			"timeframe": "H1", "quantity": decimal.NewFromFloat(1).String(),
		},
		CorrelationID: correlationID,
	}
}

// Round-trip property: SET_PARAMS with a full plan emits exactly
// [FILL, POSITION_OPENED, PNL_UPDATE(0)] in order.
func TestSimulator_SetParamsEmitsDeterministicLifecycle(t *testing.T) {
	sim := NewSimulator(zap.NewNop(), HealthModeNormal)
	var events []fxtypes.ExecutorEventType
	sim.OnLifecycleEvent(func(e fxtypes.ExecutorEvent) { events = append(events, e.Type) })

	res, err := sim.Send(context.Background(), setParamsCommand("corr-1"))
	if err != nil {
		t.Fatalf("unexpected error sending command: %v", err)
	}
	if !res.OK {
		t.Fatalf("expected result OK, got reason %s", res.ReasonCode)
	}

	want := []fxtypes.ExecutorEventType{fxtypes.ExecOrderFilled, fxtypes.ExecPositionOpened, fxtypes.ExecPnLUpdate}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("expected lifecycle sequence %v, got %v", want, events)
	}
}

func TestSimulator_RepeatingFromCleanStateProducesSameSequence(t *testing.T) {
	sim1 := NewSimulator(zap.NewNop(), HealthModeNormal)
	var seq1 []fxtypes.ExecutorEventType
	sim1.OnLifecycleEvent(func(e fxtypes.ExecutorEvent) { seq1 = append(seq1, e.Type) })
	_, _ = sim1.Send(context.Background(), setParamsCommand("corr-x"))

	sim2 := NewSimulator(zap.NewNop(), HealthModeNormal)
	var seq2 []fxtypes.ExecutorEventType
	sim2.OnLifecycleEvent(func(e fxtypes.ExecutorEvent) { seq2 = append(seq2, e.Type) })
	_, _ = sim2.Send(context.Background(), setParamsCommand("corr-x"))

	if !reflect.DeepEqual(seq1, seq2) {
		t.Errorf("expected repeated sequences to match: %v != %v", seq1, seq2)
	}
}

func TestSimulator_DownModeRejectsEverything(t *testing.T) {
	sim := NewSimulator(zap.NewNop(), HealthModeDown)
	res, err := sim.Send(context.Background(), setParamsCommand("corr-1"))
	if err != nil {
		t.Fatalf("unexpected error sending command: %v", err)
	}
	if res.OK {
		t.Error("expected result to be rejected in DOWN mode")
	}
	if res.ReasonCode != fxtypes.ReasonExecBroken {
		t.Errorf("expected reason %s, got %s", fxtypes.ReasonExecBroken, res.ReasonCode)
	}
}

func TestSimulator_CloseDayEmitsDaySummaryAndResets(t *testing.T) {
	sim := NewSimulator(zap.NewNop(), HealthModeNormal)
	_, _ = sim.Send(context.Background(), setParamsCommand("corr-1"))

	var gotSummary bool
	sim.OnLifecycleEvent(func(e fxtypes.ExecutorEvent) {
		if e.Type == fxtypes.ExecDaySummary {
			gotSummary = true
		}
	})
	res, err := sim.Send(context.Background(), fxtypes.ExecutorCommand{Type: fxtypes.CommandCloseDay, CorrelationID: "corr-1"})
	if err != nil {
		t.Fatalf("unexpected error sending close-day command: %v", err)
	}
	if !res.OK {
		t.Fatalf("expected result OK, got reason %s", res.ReasonCode)
	}
	if !gotSummary {
		t.Error("expected a day-summary lifecycle event")
	}
}

func TestDeriveHealth_Thresholds(t *testing.T) {
	cases := []struct {
		latencyMs, errorRate float64
		want                 fxtypes.ExecutionHealth
	}{
		{100, 0, fxtypes.ExecutionHealthOK},
		{600, 0, fxtypes.ExecutionHealthDegraded},
		{2500, 0, fxtypes.ExecutionHealthBroken},
		{0, 0.6, fxtypes.ExecutionHealthBroken},
	}
	for _, c := range cases {
		if got := DeriveHealth(c.latencyMs, c.errorRate); got != c.want {
			t.Errorf("DeriveHealth(%v, %v) = %s, want %s", c.latencyMs, c.errorRate, got, c.want)
		}
	}
}
