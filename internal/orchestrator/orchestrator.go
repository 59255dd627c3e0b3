// Package orchestrator implements the Tick Orchestrator: it sequences the
// market-data fetch, context classification, brain fan-out, portfolio
// arbitration, command mapping and executor dispatch for one tick, writing
// every step to the ledger and streaming it live. The per-symbol fan-out
// uses a fixed number of worker goroutines draining a jobs channel; each
// result carries its input index, so the returned snapshots keep input
// order even though MCL_SNAPSHOT events are appended as fetches complete.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/fx-decision-engine/internal/brains"
	"github.com/atlas-desktop/fx-decision-engine/internal/commandmapper"
	"github.com/atlas-desktop/fx-decision-engine/internal/executor"
	"github.com/atlas-desktop/fx-decision-engine/internal/ledger"
	"github.com/atlas-desktop/fx-decision-engine/internal/marketdata"
	"github.com/atlas-desktop/fx-decision-engine/internal/mcl"
	"github.com/atlas-desktop/fx-decision-engine/internal/metrics"
	"github.com/atlas-desktop/fx-decision-engine/internal/opstate"
	"github.com/atlas-desktop/fx-decision-engine/internal/portfolio"
	"github.com/atlas-desktop/fx-decision-engine/internal/streamhub"
	"github.com/atlas-desktop/fx-decision-engine/pkg/fxtypes"
)

// Config controls the orchestrator's fan-out width.
type Config struct {
	SymbolFetchWorkers int
}

// DefaultConfig bounds the per-symbol fetch fan-out to a small fixed width,
// appropriate to a handful of FX symbols per tick.
func DefaultConfig() Config {
	return Config{SymbolFetchWorkers: 4}
}

// ErrTickInProgress is returned when a second tick is requested while one
// is still running; the orchestrator admits at most one tick at a time.
var ErrTickInProgress = fmt.Errorf("a tick is already in progress")

// Orchestrator sequences one complete tick. The portfolio state threaded
// through a tick is owned exclusively by the running tick; no external
// observer reads or writes it mid-tick.
type Orchestrator struct {
	logger *zap.Logger
	cfg    Config

	ledger *ledger.Ledger
	hub    *streamhub.Hub
	market marketdata.Port
	brains *brains.Registry
	pm     *portfolio.Manager
	exec   executor.Port
	state  *opstate.State
	mtr    *metrics.Registry
	limits fxtypes.RiskLimits

	tickLock chan struct{} // single-slot semaphore: at most one tick at a time
}

// New wires an Orchestrator from its already-constructed dependencies and
// registers it as the executor port's lifecycle observer.
func New(logger *zap.Logger, cfg Config, l *ledger.Ledger, hub *streamhub.Hub, market marketdata.Port, registry *brains.Registry, pm *portfolio.Manager, exec executor.Port, state *opstate.State, mtr *metrics.Registry, limits fxtypes.RiskLimits) *Orchestrator {
	o := &Orchestrator{
		logger: logger.Named("orchestrator"), cfg: cfg, ledger: l, hub: hub,
		market: market, brains: registry, pm: pm, exec: exec, state: state, mtr: mtr, limits: limits,
		tickLock: make(chan struct{}, 1),
	}
	o.exec.OnLifecycleEvent(o.handleLifecycleEvent)
	return o
}

// tickContext carries the per-tick bookkeeping that append() and its
// callers need without threading five separate arguments everywhere.
type tickContext struct {
	correlationID   string
	now             time.Time
	appendCount     int
	hasSnapshot     bool
	hasIntentOrSkip bool
	hasDecision     bool
}

func symPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func reasonPtr(r fxtypes.ReasonCode) *fxtypes.ReasonCode {
	if r == "" {
		return nil
	}
	return &r
}

func (o *Orchestrator) append(tc *tickContext, severity fxtypes.Severity, eventType fxtypes.EventType, component fxtypes.Component, symbol, brainID string, reason fxtypes.ReasonCode, payload map[string]any) {
	e := fxtypes.LedgerEvent{
		EventID: uuid.NewString(), CorrelationID: tc.correlationID, Timestamp: time.Now().UTC(),
		Severity: severity, EventType: eventType, Component: component,
		Symbol: symPtr(symbol), BrainID: symPtr(brainID), ReasonCode: reasonPtr(reason), Payload: payload,
	}
	inserted, err := o.ledger.Append(e)
	if err != nil {
		o.logger.Error("ledger append failed", zap.Error(err), zap.String("correlation_id", tc.correlationID))
		return
	}
	if !inserted {
		return
	}
	tc.appendCount++
	if o.mtr != nil {
		o.mtr.LedgerEventsTotal.Inc()
	}
	o.hub.Publish(streamhub.TopicLedger, e)
}

// RunTick executes one complete tick over symbols: fetch, classify, brain
// fan-out, portfolio evaluation, command mapping, dispatch. Per-symbol,
// per-PM-evaluation and per-command failures are isolated and recorded as
// ledger events; brain calls run without their own recover. Only an
// already-running tick is returned as an error.
func (o *Orchestrator) RunTick(ctx context.Context, symbols []string) (opstate.TickResult, error) {
	select {
	case o.tickLock <- struct{}{}:
	default:
		return opstate.TickResult{}, ErrTickInProgress
	}
	defer func() { <-o.tickLock }()

	tc := &tickContext{correlationID: uuid.NewString(), now: time.Now().UTC()}
	if o.mtr != nil {
		o.mtr.TicksTotal.Inc()
	}

	snapshots := o.fetchAndClassify(ctx, tc, symbols)
	o.updateGlobalMode(snapshots)

	intents, decisions := o.runBrainsAndPM(tc, snapshots)

	if o.state.MaySendCommands() {
		o.dispatchCommands(ctx, tc, decisions, intents)
	}

	result := opstate.TickResult{
		HasMCLSnapshot:       tc.hasSnapshot,
		HasBrainIntentOrSkip: tc.hasIntentOrSkip,
		HasPMDecision:        tc.hasDecision,
		EventsPersisted:      tc.appendCount,
		CompletedAt:          time.Now().UTC(),
	}
	o.state.RecordTickResult(result)
	return result, nil
}

// fetchAndClassify is steps 2-3: bounded-parallel per-symbol fetch, each
// followed by an MCL_SNAPSHOT append. A symbol's failure is isolated and
// never aborts the others.
func (o *Orchestrator) fetchAndClassify(ctx context.Context, tc *tickContext, symbols []string) []fxtypes.MarketSnapshot {
	if len(symbols) == 0 {
		return nil
	}
	workers := o.cfg.SymbolFetchWorkers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(symbols) {
		workers = len(symbols)
	}

	type result struct {
		idx  int
		snap *fxtypes.MarketSnapshot
	}
	jobs := make(chan int, len(symbols))
	results := make(chan result, len(symbols))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					o.logger.Error("panic in symbol fetch worker recovered", zap.Any("panic", r))
				}
			}()
			for idx := range jobs {
				results <- result{idx: idx, snap: o.fetchOneSymbol(ctx, tc, symbols[idx])}
			}
		}()
	}
	for i := range symbols {
		jobs <- i
	}
	close(jobs)

	go func() { wg.Wait(); close(results) }()

	ordered := make([]*fxtypes.MarketSnapshot, len(symbols))
	for r := range results {
		ordered[r.idx] = r.snap
	}

	out := make([]fxtypes.MarketSnapshot, 0, len(symbols))
	for _, s := range ordered {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}

func (o *Orchestrator) fetchOneSymbol(ctx context.Context, tc *tickContext, symbol string) *fxtypes.MarketSnapshot {
	series, err := o.market.Fetch(ctx, symbol)
	if err != nil {
		o.append(tc, fxtypes.SeverityWarn, fxtypes.EventProvStateChange, fxtypes.ComponentSystem, symbol, "", fxtypes.ReasonProvDown,
			map[string]any{"error": err.Error()})
		o.state.SetProviderState(symbol, fxtypes.DataQualityDown)
		return nil
	}

	h1q := o.market.DataQuality(series.H1, fxtypes.TimeframeH1, symbol)
	o.state.SetProviderState(symbol, h1q.Status)
	if h1q.Status != fxtypes.DataQualityOK {
		o.append(tc, fxtypes.SeverityWarn, fxtypes.EventProvStateChange, fxtypes.ComponentSystem, symbol, "", h1q.Reason,
			map[string]any{"quality": h1q})
	}

	snap := mcl.Classify(mcl.Input{
		Symbol: symbol, H1: series.H1, M15: series.M15,
		EventProximity:  fxtypes.EventProximityNone,
		ExecutionHealth: o.state.Snapshot().ExecutionState,
		GlobalMode:      o.state.Snapshot().GlobalMode,
		Instant:         tc.now,
	})

	tc.hasSnapshot = true
	o.append(tc, fxtypes.SeverityInfo, fxtypes.EventMCLSnapshot, fxtypes.ComponentMCL, symbol, "", snap.Why.ReasonCode,
		map[string]any{"snapshot": snap})
	return &snap
}

// updateGlobalMode is step 3's tail: derive the process-wide global_mode
// from the tick's snapshots. A standing risk_off flag (set by Kill) always
// wins; otherwise the most severe snapshot-reported mode wins.
func (o *Orchestrator) updateGlobalMode(snapshots []fxtypes.MarketSnapshot) {
	if o.state.Snapshot().RiskOff {
		o.state.SetGlobalMode(fxtypes.GlobalModeRiskOff)
		return
	}
	severity := map[fxtypes.GlobalMode]int{
		fxtypes.GlobalModeNormal: 0, fxtypes.GlobalModeFlowPaying: 1,
		fxtypes.GlobalModeEventCluster: 2, fxtypes.GlobalModeCorrBreak: 3, fxtypes.GlobalModeRiskOff: 4,
	}
	mode := fxtypes.GlobalModeNormal
	for _, s := range snapshots {
		if severity[s.GlobalMode] > severity[mode] {
			mode = s.GlobalMode
		}
	}
	o.state.SetGlobalMode(mode)
}

// runBrainsAndPM is steps 4-5: fan out brains per snapshot in fixed order,
// then fan the resulting intents into the PM in that same order, threading
// one mutable portfolio state across the whole tick.
func (o *Orchestrator) runBrainsAndPM(tc *tickContext, snapshots []fxtypes.MarketSnapshot) ([]fxtypes.Intent, []fxtypes.Decision) {
	var intents []fxtypes.Intent

	for _, snap := range snapshots {
		o.brains.IterateInFixedOrder(snap, tc.correlationID, tc.now, func(brainID fxtypes.Component, intent *fxtypes.Intent, skipWhy *fxtypes.Why) {
			tc.hasIntentOrSkip = true
			if intent != nil {
				o.append(tc, fxtypes.SeverityInfo, fxtypes.EventBrainIntent, brainID, snap.Symbol, string(brainID), intent.Why.ReasonCode,
					map[string]any{"intent": intent})
				intents = append(intents, *intent)
				return
			}
			o.append(tc, fxtypes.SeverityInfo, fxtypes.EventBrainSkip, brainID, snap.Symbol, string(brainID), skipWhy.ReasonCode,
				map[string]any{"why": skipWhy})
		})
	}

	state := fxtypes.PortfolioState{
		AvailableRiskPct: decimal.NewFromInt(100),
		Limits:           o.limits,
		GlobalMode:       o.state.Snapshot().GlobalMode,
	}
	executorBroken := o.state.Snapshot().ExecutionState == fxtypes.ExecutionHealthBroken

	var decisions []fxtypes.Decision
	for _, intent := range intents {
		func(intent fxtypes.Intent) {
			defer func() {
				if r := recover(); r != nil {
					o.append(tc, fxtypes.SeverityError, fxtypes.EventPMDecision, fxtypes.ComponentPM, intent.Symbol, intent.BrainID, fxtypes.ReasonPMInternalError,
						map[string]any{"panic": fmt.Sprintf("%v", r)})
				}
			}()
			decision, next := o.pm.Evaluate(intent, state, executorBroken, tc.now)
			state = next
			tc.hasDecision = true
			o.append(tc, fxtypes.SeverityInfo, fxtypes.EventPMDecision, fxtypes.ComponentPM, intent.Symbol, intent.BrainID, decision.Why.ReasonCode,
				map[string]any{"decision": decision})
			decisions = append(decisions, decision)
		}(intent)
	}
	return intents, decisions
}

// dispatchCommands is step 6: for each ALLOW/MODIFY decision, map then send
// commands, appending EXECUTOR_COMMAND events; asynchronous lifecycle
// callbacks flow through handleLifecycleEvent, all preserving the tick's
// correlation id.
func (o *Orchestrator) dispatchCommands(ctx context.Context, tc *tickContext, decisions []fxtypes.Decision, intents []fxtypes.Intent) {
	byID := make(map[string]fxtypes.Intent, len(intents))
	for _, in := range intents {
		byID[in.IntentID] = in
	}

	snap := o.state.Snapshot()
	mapCtx := commandmapper.Context{Gate: snap.Gate, Arm: snap.Arm, CorrelationID: tc.correlationID}
	currentStrategy := ""

	for _, decision := range decisions {
		if decision.Verdict != fxtypes.VerdictAllow && decision.Verdict != fxtypes.VerdictModify {
			continue
		}
		intent, ok := byID[decision.IntentID]
		if !ok {
			continue
		}

		mapCtx.CurrentStrategy = currentStrategy
		commands, unsupported := commandmapper.Map(mapCtx, decision, intent)

		for _, u := range unsupported {
			o.append(tc, fxtypes.SeverityWarn, fxtypes.EventEHMAction, fxtypes.ComponentEHM, intent.Symbol, intent.BrainID, u.Reason,
				map[string]any{"action": u.Action})
		}

		for _, cmd := range commands {
			if cmd.Type == fxtypes.CommandSetStrategy {
				if name, ok := cmd.Payload["strategy"].(string); ok {
					currentStrategy = name
				}
			}
			o.append(tc, fxtypes.SeverityInfo, fxtypes.EventExecutorCommand, fxtypes.ComponentSystem, intent.Symbol, intent.BrainID, "",
				map[string]any{"command": cmd})
			if o.mtr != nil {
				o.mtr.CommandsTotal.WithLabelValues(string(cmd.Type)).Inc()
			}

			o.sendOneCommand(ctx, tc, intent, cmd)
		}
	}
}

func (o *Orchestrator) sendOneCommand(ctx context.Context, tc *tickContext, intent fxtypes.Intent, cmd fxtypes.ExecutorCommand) {
	defer func() {
		if r := recover(); r != nil {
			o.append(tc, fxtypes.SeverityError, fxtypes.EventExecStateChange, fxtypes.ComponentSystem, intent.Symbol, "", fxtypes.ReasonExecBroken,
				map[string]any{"panic": fmt.Sprintf("%v", r)})
		}
	}()
	res, err := o.exec.Send(ctx, cmd)
	if err != nil || !res.OK {
		reason := res.ReasonCode
		if reason == "" {
			reason = fxtypes.ReasonExecOrderFailed
		}
		o.append(tc, fxtypes.SeverityError, fxtypes.EventExecStateChange, fxtypes.ComponentSystem, intent.Symbol, "", reason,
			map[string]any{"command_type": string(cmd.Type)})
	}
}

// handleLifecycleEvent normalises an executor lifecycle callback into a
// ledger event, preserving the originating correlation id even if RunTick
// has already returned by the time the callback fires.
func (o *Orchestrator) handleLifecycleEvent(e fxtypes.ExecutorEvent) {
	eventType := fxtypes.EventExecutorEvent
	if raw, ok := e.Details["event_type"]; ok {
		if s, ok := raw.(string); ok {
			eventType = fxtypes.EventType(s)
		}
	}

	ev := fxtypes.LedgerEvent{
		EventID: uuid.NewString(), CorrelationID: e.CorrelationID, Timestamp: e.Timestamp,
		Severity: fxtypes.SeverityInfo, EventType: eventType, Component: fxtypes.ComponentSystem,
		Symbol: symPtr(e.Symbol), Payload: e.Details,
	}
	inserted, err := o.ledger.Append(ev)
	if err != nil {
		o.logger.Error("ledger append of lifecycle event failed", zap.Error(err))
		return
	}
	if inserted {
		if o.mtr != nil {
			o.mtr.LedgerEventsTotal.Inc()
		}
		o.hub.Publish(streamhub.TopicLedger, ev)
	}
}
