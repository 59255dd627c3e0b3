// Package mcl implements the Context Engine: a pure function from bars plus
// precomputed metrics to a single MarketSnapshot, classifying structure,
// volatility, liquidity phase and session by fixed rule rather than a
// trained model.
package mcl

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/fx-decision-engine/pkg/fxtypes"
)

// Input bundles everything the classifier needs. Bars are assumed sorted
// oldest-first, as produced by marketdata.Port.
type Input struct {
	Symbol          string
	H1              []fxtypes.Bar
	M15             []fxtypes.Bar
	ATR             *decimal.Decimal // nil => missing, treated as neutral
	ATRReference    *decimal.Decimal
	EventProximity  fxtypes.EventProximity
	ExecutionHealth fxtypes.ExecutionHealth
	GlobalMode      fxtypes.GlobalMode
	Instant         time.Time
}

// change is one non-neutral state found by Classify. Changes are collected
// in a fixed order (structure, volatility, liquidity, session, event) and
// the first one supplies the snapshot's reason code.
type change struct {
	code fxtypes.ReasonCode
	msg  string
}

// Classify is the Context Engine's pure function. It never panics: a
// missing metric degrades to a neutral value and is recorded in Why.
func Classify(in Input) fxtypes.MarketSnapshot {
	var changes []change
	missingMetric := false

	atr := decimal.Zero
	if in.ATR != nil {
		atr = *in.ATR
	} else {
		missingMetric = true
	}

	structure, structChanged := classifyStructure(in.H1, atr)
	if structChanged {
		changes = append(changes, change{fxtypes.ReasonMCLStructureShift, "structure shifted from neutral RANGE"})
	}

	atrRef := decimal.NewFromFloat(1.0)
	if in.ATRReference != nil && !in.ATRReference.IsZero() {
		atrRef = *in.ATRReference
	} else {
		missingMetric = true
	}
	volatility, volChanged := classifyVolatility(atr, atrRef)
	if volChanged {
		changes = append(changes, change{fxtypes.ReasonMCLVolatilityShift, "volatility ratio moved off NORMAL"})
	}

	liquidity, liqChanged := classifyLiquidity(in.M15)
	if liqChanged {
		changes = append(changes, change{fxtypes.ReasonMCLLiquidityShift, "liquidity phase left CLEAN"})
	}

	session, sessChanged := classifySession(in.Instant)
	if sessChanged {
		changes = append(changes, change{fxtypes.ReasonMCLSessionShift, "session is not ASIA baseline"})
	}

	if in.EventProximity != fxtypes.EventProximityNone {
		changes = append(changes, change{fxtypes.ReasonMCLEventProximity, "non-neutral event proximity"})
	}

	why := fxtypes.Why{ReasonCode: fxtypes.ReasonMCLNeutralBaseline, Message: "no deviation from neutral baseline"}
	if missingMetric {
		why = fxtypes.Why{ReasonCode: fxtypes.ReasonMCLMissingMetric, Message: "one or more metrics missing, treated as neutral"}
	} else if len(changes) > 0 {
		first := changes[0]
		why = fxtypes.Why{ReasonCode: first.code, Message: first.msg}
	}

	execHealth := in.ExecutionHealth
	if execHealth == "" {
		execHealth = fxtypes.ExecutionHealthOK
	}
	globalMode := in.GlobalMode
	if globalMode == "" {
		globalMode = fxtypes.GlobalModeNormal
	}

	return fxtypes.MarketSnapshot{
		Symbol:         in.Symbol,
		Instant:        in.Instant,
		Structure:      structure,
		Volatility:     volatility,
		LiquidityPhase: liquidity,
		Session:        session,
		EventProximity: in.EventProximity,
		Metrics: fxtypes.SnapshotMetrics{
			ATR:            atr,
			SpreadBps:      decimal.Zero,
			VolumeRatio:    decimal.NewFromInt(1),
			CorrelationIndex: decimal.Zero,
			SessionOverlap: sessionOverlap(in.Instant),
			RangeExpansion: decimal.Zero,
		},
		ExecutionHealth: execHealth,
		GlobalMode:      globalMode,
		Why:             why,
	}
}

// classifyStructure looks at the last three H1 bars. RANGE holds when the
// last close sits within +/-0.2*ATR of the three-bar mean close.
func classifyStructure(h1 []fxtypes.Bar, atr decimal.Decimal) (fxtypes.Structure, bool) {
	if len(h1) < 3 {
		return fxtypes.StructureRange, false
	}
	last3 := h1[len(h1)-3:]

	risingCloses := last3[0].Close.LessThan(last3[1].Close) && last3[1].Close.LessThan(last3[2].Close)
	risingLows := last3[0].Low.LessThan(last3[1].Low) && last3[1].Low.LessThan(last3[2].Low)
	fallingCloses := last3[0].Close.GreaterThan(last3[1].Close) && last3[1].Close.GreaterThan(last3[2].Close)
	fallingLows := last3[0].Low.GreaterThan(last3[1].Low) && last3[1].Low.GreaterThan(last3[2].Low)

	if (risingCloses && risingLows) || (fallingCloses && fallingLows) {
		return fxtypes.StructureTrend, true
	}

	mean := last3[0].Close.Add(last3[1].Close).Add(last3[2].Close).Div(decimal.NewFromInt(3))
	lastClose := last3[2].Close
	band := atr.Mul(decimal.NewFromFloat(0.2))
	diff := lastClose.Sub(mean).Abs()
	if diff.LessThanOrEqual(band) {
		return fxtypes.StructureRange, false
	}
	return fxtypes.StructureTransition, true
}

func classifyVolatility(atr, ref decimal.Decimal) (fxtypes.Volatility, bool) {
	if ref.IsZero() {
		return fxtypes.VolatilityNormal, false
	}
	ratio := atr.Div(ref)
	switch {
	case ratio.LessThan(decimal.NewFromFloat(0.7)):
		return fxtypes.VolatilityLow, true
	case ratio.GreaterThan(decimal.NewFromFloat(1.5)):
		return fxtypes.VolatilityHigh, true
	default:
		return fxtypes.VolatilityNormal, false
	}
}

func classifyLiquidity(m15 []fxtypes.Bar) (fxtypes.LiquidityPhase, bool) {
	if len(m15) == 0 {
		return fxtypes.LiquidityClean, false
	}
	last := m15[len(m15)-1]
	fullRange := last.High.Sub(last.Low)
	if fullRange.IsZero() {
		return fxtypes.LiquidityClean, false
	}
	body := last.Close.Sub(last.Open).Abs()
	bodyRatio := body.Div(fullRange)

	upperWick := last.High.Sub(decimal.Max(last.Open, last.Close))
	lowerWick := decimal.Min(last.Open, last.Close).Sub(last.Low)
	wickSkew := upperWick.Sub(lowerWick).Abs().GreaterThan(fullRange.Mul(decimal.NewFromFloat(0.3)))

	if bodyRatio.LessThan(decimal.NewFromFloat(0.3)) && wickSkew {
		return fxtypes.LiquidityRaid, true
	}

	if len(m15) >= 5 {
		var sumRange decimal.Decimal
		for _, b := range m15[len(m15)-5:] {
			sumRange = sumRange.Add(b.High.Sub(b.Low))
		}
		avgRange := sumRange.Div(decimal.NewFromInt(5))
		if fullRange.LessThan(avgRange.Mul(decimal.NewFromFloat(0.5))) {
			return fxtypes.LiquidityBuildup, true
		}
	}
	return fxtypes.LiquidityClean, false
}

// classifySession returns the active session by UTC hour, NY > LONDON > ASIA
// on overlap, with ASIA treated as the neutral baseline per the reason-code
// rule.
func classifySession(instant time.Time) (fxtypes.Session, bool) {
	hour := instant.UTC().Hour()
	inNY := hour >= 13 && hour < 21
	inLondon := hour >= 8 && hour < 17
	inAsia := hour >= 0 && hour < 9

	switch {
	case inNY:
		return fxtypes.SessionNY, true
	case inLondon:
		return fxtypes.SessionLondon, true
	case inAsia:
		return fxtypes.SessionAsia, false
	default:
		return fxtypes.SessionAsia, false
	}
}

func sessionOverlap(instant time.Time) bool {
	hour := instant.UTC().Hour()
	londonNY := hour >= 13 && hour < 17
	asiaLondon := hour >= 8 && hour < 9
	return londonNY || asiaLondon
}
