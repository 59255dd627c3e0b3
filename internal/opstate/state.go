// Package opstate holds the single process-wide operational-state record
// and its guarded mutators: gate level, arm/disarm, risk-off, connectivity,
// and the fields the gate authority reads when judging a promotion.
package opstate

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atlas-desktop/fx-decision-engine/pkg/fxtypes"
)

// Connectivity is the executor connectivity observation.
type Connectivity string

const (
	ConnectivityUnknown      Connectivity = "unknown"
	ConnectivityConnected    Connectivity = "connected"
	ConnectivityDisconnected Connectivity = "disconnected"
)

// TickResult is the per-tick summary recorded by the orchestrator; it gates
// gate promotion.
type TickResult struct {
	HasMCLSnapshot       bool
	HasBrainIntentOrSkip bool
	HasPMDecision        bool
	EventsPersisted      int
	CompletedAt          time.Time
}

// Snapshot is an immutable read of the operational state.
type Snapshot struct {
	Gate                 fxtypes.Gate
	Arm                  fxtypes.Arm
	GlobalMode           fxtypes.GlobalMode
	ExecutionState       fxtypes.ExecutionHealth
	ProviderStates       map[string]fxtypes.DataQualityStatus
	ExecutorConnectivity Connectivity
	MockMode             bool
	RiskOff              bool
	LastTickResult       *TickResult
}

// ErrStateViolation is returned when a mutation is refused because it would
// violate an operational invariant.
type ErrStateViolation struct {
	Reason fxtypes.ReasonCode
	Detail string
}

func (e *ErrStateViolation) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

// State is the process-wide operational-state record. All reads/writes are
// guarded by a single mutex; readers observe a consistent snapshot.
type State struct {
	logger *zap.Logger

	mu                   sync.RWMutex
	gate                 fxtypes.Gate
	arm                  fxtypes.Arm
	globalMode           fxtypes.GlobalMode
	executionState       fxtypes.ExecutionHealth
	providerStates       map[string]fxtypes.DataQualityStatus
	executorConnectivity Connectivity
	mockMode             bool
	riskOff              bool
	lastTickResult       *TickResult
}

// New builds a State starting in G0/DISARMED, the only valid starting
// point (ARMED is unreachable while gate = G0).
func New(logger *zap.Logger) *State {
	return &State{
		logger:               logger.Named("opstate"),
		gate:                 fxtypes.GateG0,
		arm:                  fxtypes.ArmDisarmed,
		globalMode:           fxtypes.GlobalModeNormal,
		executionState:       fxtypes.ExecutionHealthOK,
		providerStates:       make(map[string]fxtypes.DataQualityStatus),
		executorConnectivity: ConnectivityUnknown,
		mockMode:             true,
	}
}

// Snapshot returns a consistent read of the whole state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	providers := make(map[string]fxtypes.DataQualityStatus, len(s.providerStates))
	for k, v := range s.providerStates {
		providers[k] = v
	}
	var last *TickResult
	if s.lastTickResult != nil {
		cp := *s.lastTickResult
		last = &cp
	}
	return Snapshot{
		Gate: s.gate, Arm: s.arm, GlobalMode: s.globalMode, ExecutionState: s.executionState,
		ProviderStates: providers, ExecutorConnectivity: s.executorConnectivity,
		MockMode: s.mockMode, RiskOff: s.riskOff, LastTickResult: last,
	}
}

// Arm transitions to ARMED. Refused when gate = G0 or risk_off is set.
func (s *State) Arm(confirm string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if confirm != "ARM" {
		return &ErrStateViolation{Reason: fxtypes.ReasonGateStateViolation, Detail: "confirmation token mismatch"}
	}
	if s.gate == fxtypes.GateG0 {
		return &ErrStateViolation{Reason: fxtypes.ReasonGateStateViolation, Detail: "cannot arm while gate is G0"}
	}
	if s.riskOff {
		return &ErrStateViolation{Reason: fxtypes.ReasonGateStateViolation, Detail: "cannot arm while risk_off is set"}
	}
	s.arm = fxtypes.ArmArmed
	return nil
}

// Disarm transitions to DISARMED.
func (s *State) Disarm(confirm string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if confirm != "DISARM" {
		return &ErrStateViolation{Reason: fxtypes.ReasonGateStateViolation, Detail: "confirmation token mismatch"}
	}
	s.arm = fxtypes.ArmDisarmed
	return nil
}

// Kill disarms and forces risk_off = true.
func (s *State) Kill(confirm string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if confirm != "KILL" {
		return &ErrStateViolation{Reason: fxtypes.ReasonGateStateViolation, Detail: "confirmation token mismatch"}
	}
	s.arm = fxtypes.ArmDisarmed
	s.riskOff = true
	return nil
}

// ClearRiskOff lifts the risk_off flag, e.g. after operator review.
func (s *State) ClearRiskOff() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.riskOff = false
}

// SetGate is called only by the gate authority after validating
// prerequisites. Forcing arm=DISARMED on demotion to G0 is enforced here.
func (s *State) SetGate(g fxtypes.Gate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = g
	if g == fxtypes.GateG0 {
		s.arm = fxtypes.ArmDisarmed
	}
}

// SetGlobalMode records the process-wide risk regime derived from the
// latest snapshots.
func (s *State) SetGlobalMode(m fxtypes.GlobalMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.globalMode = m
}

// SetExecutionState records the executor port's derived health.
func (s *State) SetExecutionState(h fxtypes.ExecutionHealth) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executionState = h
}

// SetProviderState records one market-data provider's quality observation.
func (s *State) SetProviderState(symbol string, status fxtypes.DataQualityStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providerStates[symbol] = status
}

// SetExecutorConnectivity records the observed connectivity.
func (s *State) SetExecutorConnectivity(c Connectivity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executorConnectivity = c
}

// SetMockMode toggles whether the simulator (vs a real adapter) is active.
func (s *State) SetMockMode(mock bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mockMode = mock
}

// RecordTickResult stores the most recent tick summary; it gates promotion.
func (s *State) RecordTickResult(r TickResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastTickResult = &r
}

// MaySendCommands implements gate != G0 && arm == ARMED && !risk_off.
func (s *State) MaySendCommands() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gate != fxtypes.GateG0 && s.arm == fxtypes.ArmArmed && !s.riskOff
}
