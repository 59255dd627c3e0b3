package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/fx-decision-engine/pkg/fxtypes"
)

// HealthMode selects one of the simulator's three fixed operating modes.
type HealthMode string

const (
	HealthModeNormal   HealthMode = "normal"
	HealthModeDegraded HealthMode = "degraded"
	HealthModeDown     HealthMode = "down"
)

type modeProfile struct {
	latency   time.Duration
	errorRate float64
	health    fxtypes.ExecutionHealth
}

var profiles = map[HealthMode]modeProfile{
	HealthModeNormal:   {latency: 25 * time.Millisecond, errorRate: 0, health: fxtypes.ExecutionHealthOK},
	HealthModeDegraded: {latency: 800 * time.Millisecond, errorRate: 0.35, health: fxtypes.ExecutionHealthDegraded},
	HealthModeDown:     {latency: 0, errorRate: 1.0, health: fxtypes.ExecutionHealthBroken},
}

type simulatedPosition struct {
	Symbol string
	Qty    decimal.Decimal
}

// Simulator maintains in-memory armed flag, active strategy, symbol list,
// risk profile, and open simulated positions. It emits a deterministic
// lifecycle sequence for SET_PARAMS and resets daily counters on
// CLOSE_DAY.
type Simulator struct {
	logger *zap.Logger
	mode   HealthMode
	clock  func() time.Time
	rngSeed uint64

	mu        sync.Mutex
	armed     bool
	strategy  string
	symbols   []string
	riskPct   decimal.Decimal
	positions map[string]simulatedPosition
	callbacks []LifecycleCallback
}

// NewSimulator builds a Simulator in the given health mode.
func NewSimulator(logger *zap.Logger, mode HealthMode) *Simulator {
	return &Simulator{
		logger:    logger.Named("executor-sim"),
		mode:      mode,
		clock:     time.Now,
		positions: make(map[string]simulatedPosition),
	}
}

// OnLifecycleEvent registers a synchronous lifecycle observer.
func (s *Simulator) OnLifecycleEvent(cb LifecycleCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, cb)
}

func (s *Simulator) emit(e fxtypes.ExecutorEvent) {
	s.mu.Lock()
	cbs := append([]LifecycleCallback(nil), s.callbacks...)
	s.mu.Unlock()
	for _, cb := range cbs {
		cb(e)
	}
}

// deterministicFail derives a stable pseudo-failure decision from the
// command's correlation id so repeated calls on a clean state are
// reproducible, avoiding math/rand.
func (s *Simulator) deterministicFail(correlationID string) bool {
	profile := profiles[s.mode]
	if profile.errorRate <= 0 {
		return false
	}
	if profile.errorRate >= 1 {
		return true
	}
	var h uint32 = 2166136261
	for _, c := range correlationID {
		h = (h ^ uint32(c)) * 16777619
	}
	frac := float64(h%1000) / 1000.0
	return frac < profile.errorRate
}

// Send processes one command according to the simulator's current health
// mode.
func (s *Simulator) Send(ctx context.Context, cmd fxtypes.ExecutorCommand) (SendResult, error) {
	profile := profiles[s.mode]
	if profile.latency > 0 {
		select {
		case <-time.After(profile.latency):
		case <-ctx.Done():
			return SendResult{OK: false, ReasonCode: fxtypes.ReasonExecOrderTimeout}, ctx.Err()
		}
	}

	if s.mode == HealthModeDown {
		return SendResult{OK: false, ReasonCode: fxtypes.ReasonExecBroken}, nil
	}
	if s.deterministicFail(cmd.CorrelationID) {
		return SendResult{OK: false, ReasonCode: fxtypes.ReasonExecOrderFailed}, nil
	}

	switch cmd.Type {
	case fxtypes.CommandArm:
		s.mu.Lock()
		s.armed = true
		s.mu.Unlock()
	case fxtypes.CommandDisarm:
		s.mu.Lock()
		s.armed = false
		s.mu.Unlock()
	case fxtypes.CommandSetStrategy:
		if name, ok := cmd.Payload["strategy"].(string); ok {
			s.mu.Lock()
			s.strategy = name
			s.mu.Unlock()
		}
	case fxtypes.CommandSetRisk:
		if v, ok := cmd.Payload["risk_pct"].(string); ok {
			if d, err := decimal.NewFromString(v); err == nil {
				s.mu.Lock()
				s.riskPct = d
				s.mu.Unlock()
			}
		}
	case fxtypes.CommandSetSymbolsActive:
		if add, ok := cmd.Payload["add"].([]string); ok {
			s.mu.Lock()
			s.symbols = append(s.symbols, add...)
			s.mu.Unlock()
		}
	case fxtypes.CommandSetParams:
		s.handleSetParams(cmd)
	case fxtypes.CommandCloseDay:
		s.handleCloseDay(cmd)
	}

	return SendResult{OK: true}, nil
}

// handleSetParams emits the deterministic FILL -> POSITION_OPENED ->
// PNL_UPDATE(0) sequence for a full trade plan.
func (s *Simulator) handleSetParams(cmd fxtypes.ExecutorCommand) {
	symbol, _ := cmd.Payload["symbol"].(string)
	qtyStr, _ := cmd.Payload["quantity"].(string)
	qty, _ := decimal.NewFromString(qtyStr)

	s.mu.Lock()
	s.positions[symbol] = simulatedPosition{Symbol: symbol, Qty: qty}
	strategy := s.strategy
	s.mu.Unlock()

	now := s.clock().UTC()
	base := fxtypes.ExecutorEvent{Symbol: symbol, Strategy: strategy, Timestamp: now, CorrelationID: cmd.CorrelationID}

	fill := base
	fill.Type = fxtypes.ExecOrderFilled
	fill.Details = map[string]any{"event_type": string(fxtypes.EventExecSimulatedFill), "symbol": symbol, "quantity": qtyStr}
	s.emit(fill)

	opened := base
	opened.Type = fxtypes.ExecPositionOpened
	opened.Details = map[string]any{"event_type": string(fxtypes.EventExecPositionOpened), "symbol": symbol, "quantity": qtyStr}
	s.emit(opened)

	pnl := base
	pnl.Type = fxtypes.ExecPnLUpdate
	pnl.Details = map[string]any{"event_type": string(fxtypes.EventExecPnLUpdate), "symbol": symbol, "pnl": "0"}
	s.emit(pnl)
}

func (s *Simulator) handleCloseDay(cmd fxtypes.ExecutorCommand) {
	s.mu.Lock()
	count := len(s.positions)
	s.positions = make(map[string]simulatedPosition)
	s.mu.Unlock()

	summary := fxtypes.ExecutorEvent{
		Type:          fxtypes.ExecDaySummary,
		Timestamp:     s.clock().UTC(),
		CorrelationID: cmd.CorrelationID,
		Details:       map[string]any{"event_type": string(fxtypes.EventExecDaySummary), "positions_closed": count},
	}
	s.emit(summary)
}

// Status derives OK/DEGRADED/BROKEN from the fixed mode profile.
func (s *Simulator) Status(ctx context.Context) (Status, error) {
	p := profiles[s.mode]
	return Status{Health: p.health, LatencyMs: float64(p.latency / time.Millisecond), ErrorRate: p.errorRate}, nil
}

// SetMode lets tests/ops switch health mode at runtime.
func (s *Simulator) SetMode(mode HealthMode) error {
	if _, ok := profiles[mode]; !ok {
		return fmt.Errorf("unknown health mode %q", mode)
	}
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
	return nil
}

var _ Port = (*Simulator)(nil)
