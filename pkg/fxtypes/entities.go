package fxtypes

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one immutable OHLCV observation.
type Bar struct {
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
	Timestamp time.Time       `json:"timestamp"`
}

// BarSeries holds the four aligned timeframe sequences for one symbol.
type BarSeries struct {
	Symbol    string             `json:"symbol"`
	D1        []Bar              `json:"d1"`
	H4        []Bar              `json:"h4"`
	H1        []Bar              `json:"h1"`
	M15       []Bar              `json:"m15"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// Why carries the mandatory reason code + human message attached to every
// emitted event.
type Why struct {
	ReasonCode ReasonCode `json:"reason_code"`
	Message    string     `json:"message"`
}

// SnapshotMetrics are the continuous measurements behind a classification.
type SnapshotMetrics struct {
	ATR             decimal.Decimal `json:"atr"`
	SpreadBps       decimal.Decimal `json:"spread_bps"`
	VolumeRatio     decimal.Decimal `json:"volume_ratio"`
	CorrelationIndex decimal.Decimal `json:"correlation_index"`
	SessionOverlap  bool            `json:"session_overlap"`
	RangeExpansion  decimal.Decimal `json:"range_expansion"`
}

// MarketSnapshot is the Context Engine's output for one symbol at one
// instant.
type MarketSnapshot struct {
	Symbol          string          `json:"symbol"`
	Instant         time.Time       `json:"instant"`
	Structure       Structure       `json:"structure"`
	Volatility      Volatility      `json:"volatility"`
	LiquidityPhase  LiquidityPhase  `json:"liquidity_phase"`
	Session         Session         `json:"session"`
	EventProximity  EventProximity  `json:"event_proximity"`
	Metrics         SnapshotMetrics `json:"metrics"`
	ExecutionHealth ExecutionHealth `json:"execution_health"`
	GlobalMode      GlobalMode      `json:"global_mode"`
	Why             Why             `json:"why"`
}

// TradePlan is a brain's proposed execution detail.
type TradePlan struct {
	Entry     decimal.Decimal `json:"entry"`
	Stop      decimal.Decimal `json:"stop"`
	Target    decimal.Decimal `json:"target"`
	Timeframe Timeframe       `json:"timeframe"`
}

// IntentConstraints bound how a brain's proposal may be executed.
type IntentConstraints struct {
	MaxSlippageBps  decimal.Decimal `json:"max_slippage_bps"`
	ValidUntil      time.Time       `json:"valid_until"`
	MinRewardRisk   decimal.Decimal `json:"min_reward_risk"`
}

// Intent is a brain's proposal to trade a symbol.
type Intent struct {
	IntentID        string            `json:"intent_id"`
	Symbol          string            `json:"symbol"`
	BrainID         string            `json:"brain_id"`
	Type            IntentType        `json:"type"`
	ProposedRiskPct decimal.Decimal   `json:"proposed_risk_pct"`
	Plan            TradePlan         `json:"plan"`
	Constraints     IntentConstraints `json:"constraints"`
	Why             Why               `json:"why"`
}

// RiskAdjustment records why/how the PM scaled a proposed risk.
type RiskAdjustment struct {
	OriginalPct decimal.Decimal `json:"original_pct"`
	AdjustedPct decimal.Decimal `json:"adjusted_pct"`
	Reason      ReasonCode      `json:"reason"`
}

// Decision is the Portfolio Manager's verdict over one intent.
type Decision struct {
	IntentID       string          `json:"intent_id"`
	Verdict        Verdict         `json:"verdict"`
	Adjustment     *RiskAdjustment `json:"adjustment,omitempty"`
	RiskStateAtTime PortfolioState `json:"risk_state_at_time"`
	Why            Why             `json:"why"`
}

// OpenPosition is a live position the PM's exposure math accounts for.
type OpenPosition struct {
	Symbol   string          `json:"symbol"`
	Currency string          `json:"currency"`
	RiskPct  decimal.Decimal `json:"risk_pct"`
	Side     IntentType      `json:"side"`
}

// Cooldown blocks a (brain, symbol) pair from opening/scaling until Until.
type Cooldown struct {
	BrainID string    `json:"brain_id"`
	Symbol  string    `json:"symbol"`
	Until   time.Time `json:"until"`
}

// PortfolioState is the PM's evolving in-tick state.
type PortfolioState struct {
	DrawdownPct        decimal.Decimal         `json:"drawdown_pct"`
	ExposurePct        decimal.Decimal         `json:"exposure_pct"`
	OpenPositionsCount int                     `json:"open_positions_count"`
	DailyLossPct       decimal.Decimal         `json:"daily_loss_pct"`
	AvailableRiskPct   decimal.Decimal         `json:"available_risk_pct"`
	OpenPositions      []OpenPosition          `json:"open_positions"`
	Limits             RiskLimits              `json:"active_risk_limits"`
	GlobalMode         GlobalMode              `json:"global_mode"`
	Cooldowns          []Cooldown              `json:"active_cooldowns"`
	ComponentHealth    map[string]ExecutionHealth `json:"component_health,omitempty"`
}

// RiskLimits bounds the Portfolio Manager's arithmetic.
type RiskLimits struct {
	MaxDrawdown             decimal.Decimal `json:"max_drawdown"`
	MaxExposure             decimal.Decimal `json:"max_exposure"`
	MaxDailyLoss            decimal.Decimal `json:"max_daily_loss"`
	MaxPositions            int             `json:"max_positions"`
	MaxExposurePerSymbol    decimal.Decimal `json:"max_exposure_per_symbol"`
	MaxExposurePerCurrency  decimal.Decimal `json:"max_exposure_per_currency"`
	MaxCorrelatedExposure   decimal.Decimal `json:"max_correlated_exposure"`
	MinResidualRiskPct      decimal.Decimal `json:"min_residual_risk_pct"`
}

// ExecutorCommand is one typed instruction sent to the executor port.
type ExecutorCommand struct {
	Type          CommandType    `json:"type"`
	Payload       map[string]any `json:"payload"`
	CorrelationID string         `json:"correlation_id"`
}

// ExecutorEvent is an asynchronous lifecycle notification from the executor
// port.
type ExecutorEvent struct {
	Type          ExecutorEventType `json:"type"`
	Symbol        string            `json:"symbol"`
	Strategy      string            `json:"strategy"`
	Details       map[string]any    `json:"details"`
	Timestamp     time.Time         `json:"timestamp"`
	CorrelationID string            `json:"correlation_id"`
}

// LedgerEvent is the sole persisted record, also the shape published to the
// live stream.
type LedgerEvent struct {
	EventID       string         `json:"event_id"`
	CorrelationID string         `json:"correlation_id"`
	Timestamp     time.Time      `json:"timestamp"`
	Severity      Severity       `json:"severity"`
	EventType     EventType      `json:"event_type"`
	Component     Component      `json:"component"`
	Symbol        *string        `json:"symbol"`
	BrainID       *string        `json:"brain_id"`
	ReasonCode    *ReasonCode    `json:"reason_code"`
	Payload       map[string]any `json:"payload"`
}

// AuditLog records an operator action. Mirrored as a ledger event of type
// AUDIT_LOG.
type AuditLog struct {
	AuditID       string         `json:"audit_id"`
	Timestamp     time.Time      `json:"timestamp"`
	ActorUserID   string         `json:"actor_user_id"`
	ActorRole     string         `json:"actor_role"`
	Action        string         `json:"action"`
	Resource      string         `json:"resource"`
	Reason        string         `json:"reason"`
	Before        map[string]any `json:"before,omitempty"`
	After         map[string]any `json:"after,omitempty"`
	CorrelationID string         `json:"correlation_id"`
}

// ReplayStatus is a replay day's completeness classification.
type ReplayStatus string

const (
	ReplayComplete ReplayStatus = "complete"
	ReplayPartial  ReplayStatus = "partial"
)

// ReplayDay is derived from one day's ledger events.
type ReplayDay struct {
	Date    string         `json:"date"`
	Status  ReplayStatus   `json:"status"`
	Summary map[string]any `json:"summary"`
}

// ActorContext is the already-authenticated/authorized identity the HTTP
// boundary resolves before calling into the core. The core never resolves
// auth itself.
type ActorContext struct {
	UserID string
	Role   string
}

const RoleAdmin = "Admin"
