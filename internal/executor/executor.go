// Package executor implements the Executor Port: a common interface with a
// real HTTP adapter and an in-memory simulator, covering a generic
// execution-service command/lifecycle envelope rather than one exchange's
// order wire format.
package executor

import (
	"context"

	"github.com/atlas-desktop/fx-decision-engine/pkg/fxtypes"
)

// SendResult is the typed outcome of Send.
type SendResult struct {
	OK         bool
	ReasonCode fxtypes.ReasonCode
}

// Status is the derived health of the executor port.
type Status struct {
	Health    fxtypes.ExecutionHealth
	LatencyMs float64
	ErrorRate float64
}

// LifecycleCallback receives asynchronous lifecycle events from the
// executor, synchronously per dispatched command.
type LifecycleCallback func(fxtypes.ExecutorEvent)

// Port is the common interface both implementations satisfy.
type Port interface {
	Send(ctx context.Context, cmd fxtypes.ExecutorCommand) (SendResult, error)
	Status(ctx context.Context) (Status, error)
	OnLifecycleEvent(cb LifecycleCallback)
}

// DeriveHealth classifies executor health from observed latency and error
// rate.
func DeriveHealth(latencyMs, errorRate float64) fxtypes.ExecutionHealth {
	switch {
	case latencyMs > 2000 || errorRate > 0.5:
		return fxtypes.ExecutionHealthBroken
	case latencyMs > 500 || errorRate > 0.2:
		return fxtypes.ExecutionHealthDegraded
	default:
		return fxtypes.ExecutionHealthOK
	}
}
