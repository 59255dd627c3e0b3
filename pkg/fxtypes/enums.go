// Package fxtypes holds the domain vocabulary shared by every component of
// the decision engine: the closed enum sets and the core entities they
// compose into.
package fxtypes

// Gate is the discretisation of how "live" the system is.
type Gate string

const (
	GateG0 Gate = "G0" // shadow: no commands leave the process
	GateG1 Gate = "G1" // paper: simulator only
	GateG2 Gate = "G2" // live restricted
	GateG3 Gate = "G3" // live full
)

var gateOrder = map[Gate]int{GateG0: 0, GateG1: 1, GateG2: 2, GateG3: 3}

// Level returns the gate's ordinal position, G0=0..G3=3.
func (g Gate) Level() int { return gateOrder[g] }

// Valid reports whether g is one of the four defined gate levels.
func (g Gate) Valid() bool {
	_, ok := gateOrder[g]
	return ok
}

// Arm is permission to act.
type Arm string

const (
	ArmArmed    Arm = "ARMED"
	ArmDisarmed Arm = "DISARMED"
)

// Structure classifies the short-term price structure of a symbol.
type Structure string

const (
	StructureTrend      Structure = "TREND"
	StructureRange       Structure = "RANGE"
	StructureTransition Structure = "TRANSITION"
)

// Volatility classifies ATR relative to a reference.
type Volatility string

const (
	VolatilityLow    Volatility = "LOW"
	VolatilityNormal Volatility = "NORMAL"
	VolatilityHigh   Volatility = "HIGH"
)

// LiquidityPhase classifies the last M15 bar's shape.
type LiquidityPhase string

const (
	LiquidityBuildup LiquidityPhase = "BUILDUP"
	LiquidityRaid    LiquidityPhase = "RAID"
	LiquidityClean   LiquidityPhase = "CLEAN"
)

// Session is the active FX trading session.
type Session string

const (
	SessionAsia   Session = "ASIA"
	SessionLondon Session = "LONDON"
	SessionNY     Session = "NY"
)

// EventProximity describes closeness to a scheduled news event.
type EventProximity string

const (
	EventProximityNone      EventProximity = "NONE"
	EventProximityPreEvent  EventProximity = "PRE_EVENT"
	EventProximityPostEvent EventProximity = "POST_EVENT"
)

// ExecutionHealth is the executor port's derived health state.
type ExecutionHealth string

const (
	ExecutionHealthOK       ExecutionHealth = "OK"
	ExecutionHealthDegraded ExecutionHealth = "DEGRADED"
	ExecutionHealthBroken   ExecutionHealth = "BROKEN"
)

// GlobalMode is the process-wide risk regime.
type GlobalMode string

const (
	GlobalModeNormal       GlobalMode = "NORMAL"
	GlobalModeEventCluster GlobalMode = "EVENT_CLUSTER"
	GlobalModeFlowPaying   GlobalMode = "FLOW_PAYING"
	GlobalModeCorrBreak    GlobalMode = "CORR_BREAK"
	GlobalModeRiskOff      GlobalMode = "RISK_OFF"
)

// DataQualityStatus is the Market-Data Port's per-series classification.
type DataQualityStatus string

const (
	DataQualityOK           DataQualityStatus = "OK"
	DataQualityDegraded     DataQualityStatus = "DEGRADED"
	DataQualityDown         DataQualityStatus = "DOWN"
	DataQualityMarketClosed DataQualityStatus = "MARKET_CLOSED"
)

// Timeframe is one of the four aligned bar series kept per symbol.
type Timeframe string

const (
	TimeframeD1  Timeframe = "D1"
	TimeframeH4  Timeframe = "H4"
	TimeframeH1  Timeframe = "H1"
	TimeframeM15 Timeframe = "M15"
)

// IntentType is a brain's proposed action.
type IntentType string

const (
	IntentOpenLong  IntentType = "OPEN_LONG"
	IntentOpenShort IntentType = "OPEN_SHORT"
	IntentClose     IntentType = "CLOSE"
	IntentScaleIn   IntentType = "SCALE_IN"
	IntentScaleOut  IntentType = "SCALE_OUT"
	IntentHedge     IntentType = "HEDGE"
)

// Verdict is the Portfolio Manager's decision on one intent.
type Verdict string

const (
	VerdictAllow Verdict = "ALLOW"
	VerdictDeny  Verdict = "DENY"
	VerdictQueue Verdict = "QUEUE"
	VerdictModify Verdict = "MODIFY"
)

// CommandType is the closed set of executor commands the mapper may emit.
type CommandType string

const (
	CommandArm              CommandType = "ARM"
	CommandDisarm            CommandType = "DISARM"
	CommandSetStrategy      CommandType = "SET_STRATEGY"
	CommandSetParams        CommandType = "SET_PARAMS"
	CommandSetRisk          CommandType = "SET_RISK"
	CommandSetSymbolsActive CommandType = "SET_SYMBOLS_ACTIVE"
	CommandCloseDay         CommandType = "CLOSE_DAY"
)

// ExecutorEventType is the closed set of asynchronous lifecycle events an
// executor port may raise.
type ExecutorEventType string

const (
	ExecOrderFilled    ExecutorEventType = "ORDER_FILLED"
	ExecSLHit          ExecutorEventType = "SL_HIT"
	ExecTPHit          ExecutorEventType = "TP_HIT"
	ExecPositionOpened ExecutorEventType = "POSITION_OPENED"
	ExecPositionClosed ExecutorEventType = "POSITION_CLOSED"
	ExecPositionUpdated ExecutorEventType = "POSITION_UPDATED"
	ExecPnLUpdate      ExecutorEventType = "PNL_UPDATE"
	ExecDaySummary     ExecutorEventType = "DAY_SUMMARY"
	ExecInfo           ExecutorEventType = "INFO"
	ExecError          ExecutorEventType = "ERROR"
)

// Severity is a ledger event's severity.
type Severity string

const (
	SeverityInfo  Severity = "INFO"
	SeverityWarn  Severity = "WARN"
	SeverityError Severity = "ERROR"
)

// Component tags the ledger-event originator.
type Component string

const (
	ComponentMCL    Component = "MCL"
	ComponentA2     Component = "A2"
	ComponentB3     Component = "B3"
	ComponentC3     Component = "C3"
	ComponentD2     Component = "D2"
	ComponentPM     Component = "PM"
	ComponentEHM    Component = "EHM"
	ComponentSystem Component = "SYSTEM"
)

// EventType is the closed set of ledger event-type tags.
type EventType string

const (
	EventMCLSnapshot       EventType = "MCL_SNAPSHOT"
	EventBrainIntent       EventType = "BRAIN_INTENT"
	EventBrainSkip         EventType = "BRAIN_SKIP"
	EventPMDecision        EventType = "PM_DECISION"
	EventEHMAction         EventType = "EHM_ACTION"
	EventExecStateChange   EventType = "EXEC_STATE_CHANGE"
	EventProvStateChange   EventType = "PROV_STATE_CHANGE"
	EventExecutorCommand   EventType = "EXECUTOR_COMMAND"
	EventExecutorEvent     EventType = "EXECUTOR_EVENT"
	EventExecSimulatedFill EventType = "EXEC_SIMULATED_FILL"
	EventExecPositionOpened EventType = "EXEC_POSITION_OPENED"
	EventExecPositionClosed EventType = "EXEC_POSITION_CLOSED"
	EventExecPositionUpdated EventType = "EXEC_POSITION_UPDATED"
	EventExecPnLUpdate     EventType = "EXEC_PNL_UPDATE"
	EventExecDaySummary    EventType = "EXEC_DAY_SUMMARY"
	EventConfigSnapshot    EventType = "CONFIG_SNAPSHOT"
	EventAuditLog          EventType = "AUDIT_LOG"
)

// ReasonCode is a string drawn from the closed, versioned reason-code
// catalogue. New codes may be added over time; existing codes are never
// repurposed.
type ReasonCode string

const (
	ReasonMCLNeutralBaseline ReasonCode = "MCL_NEUTRAL_BASELINE"
	ReasonMCLStructureShift  ReasonCode = "MCL_STRUCTURE_SHIFT"
	ReasonMCLVolatilityShift ReasonCode = "MCL_VOLATILITY_SHIFT"
	ReasonMCLLiquidityShift  ReasonCode = "MCL_LIQUIDITY_SHIFT"
	ReasonMCLSessionShift    ReasonCode = "MCL_SESSION_SHIFT"
	ReasonMCLEventProximity  ReasonCode = "MCL_EVENT_PROXIMITY"
	ReasonMCLMissingMetric   ReasonCode = "MCL_MISSING_METRIC"

	ReasonBrainSkipNoSetup   ReasonCode = "BRAIN_SKIP_NO_SETUP"
	ReasonBrainSkipLowConfidence ReasonCode = "BRAIN_SKIP_LOW_CONFIDENCE"

	ReasonPMAllow              ReasonCode = "PM_ALLOW"
	ReasonPMGlobalRiskOff      ReasonCode = "PM_GLOBAL_RISK_OFF"
	ReasonPMCooldownActive     ReasonCode = "PM_COOLDOWN_ACTIVE"
	ReasonPMCorrelationBlock   ReasonCode = "PM_CORRELATION_BLOCK"
	ReasonPMMaxPositions       ReasonCode = "PM_MAX_POSITIONS"
	ReasonPMMaxDailyLoss       ReasonCode = "PM_MAX_DAILY_LOSS"
	ReasonPMMaxDrawdown        ReasonCode = "PM_MAX_DRAWDOWN"
	ReasonPMSymbolCapModify    ReasonCode = "PM_SYMBOL_CAP_MODIFY"
	ReasonPMSymbolCapDeny      ReasonCode = "PM_SYMBOL_CAP_DENY"
	ReasonPMCurrencyCapModify  ReasonCode = "PM_CURRENCY_CAP_MODIFY"
	ReasonPMCurrencyCapDeny    ReasonCode = "PM_CURRENCY_CAP_DENY"
	ReasonPMFitModify          ReasonCode = "PM_FIT_MODIFY"
	ReasonPMQueueExecBroken    ReasonCode = "PM_QUEUE_EXEC_BROKEN"
	ReasonPMInternalError      ReasonCode = "PM_INTERNAL_ERROR"

	ReasonEHMExitNow ReasonCode = "EHM_EXIT_NOW"

	ReasonExecOrderTimeout ReasonCode = "EXEC_ORDER_TIMEOUT"
	ReasonExecBroken       ReasonCode = "EXEC_BROKEN"
	ReasonExecOrderFailed  ReasonCode = "EXEC_ORDER_FAILED"

	ReasonProvDown     ReasonCode = "PROV_DOWN"
	ReasonProvDegraded ReasonCode = "PROV_DEGRADED"
	ReasonProvClosed   ReasonCode = "PROV_MARKET_CLOSED"
	ReasonProvOK       ReasonCode = "PROV_OK"

	ReasonAuditArm        ReasonCode = "AUDIT_ARM"
	ReasonAuditDisarm     ReasonCode = "AUDIT_DISARM"
	ReasonAuditKill       ReasonCode = "AUDIT_KILL"
	ReasonAuditGateChange ReasonCode = "AUDIT_GATE_CHANGE"

	ReasonGatePrereqMissingMCLSnapshot   ReasonCode = "GATE_PREREQ_MISSING_MCL_SNAPSHOT"
	ReasonGatePrereqMissingBrainIntent   ReasonCode = "GATE_PREREQ_MISSING_BRAIN_INTENT"
	ReasonGatePrereqMissingPMDecision    ReasonCode = "GATE_PREREQ_MISSING_PM_DECISION"
	ReasonGatePrereqMissingLedger        ReasonCode = "GATE_PREREQ_MISSING_LEDGER"
	ReasonGatePrereqMissingExecutor      ReasonCode = "GATE_PREREQ_MISSING_EXECUTOR"
	ReasonGatePrereqMissingRole          ReasonCode = "GATE_PREREQ_MISSING_ROLE"
	ReasonGateStateViolation             ReasonCode = "GATE_STATE_VIOLATION"

	ReasonMockSimulated ReasonCode = "MOCK_SIMULATED"
)
