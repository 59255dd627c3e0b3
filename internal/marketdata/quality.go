package marketdata

import (
	"time"

	"github.com/atlas-desktop/fx-decision-engine/pkg/fxtypes"
)

// QualityResult is the Market-Data Port's per-series classification, a
// fixed four-state outcome (OK, DEGRADED, DOWN, MARKET_CLOSED) rather than
// a continuous score.
type QualityResult struct {
	Status        fxtypes.DataQualityStatus
	Reason        fxtypes.ReasonCode
	Gaps          int
	Stale         bool
	MarketClosed  bool
	VolumeMissing bool
}

func timeframeInterval(tf fxtypes.Timeframe) time.Duration {
	switch tf {
	case fxtypes.TimeframeD1:
		return 24 * time.Hour
	case fxtypes.TimeframeH4:
		return 4 * time.Hour
	case fxtypes.TimeframeH1:
		return time.Hour
	case fxtypes.TimeframeM15:
		return 15 * time.Minute
	default:
		return time.Hour
	}
}

// isFXWeekend reports the MARKET_CLOSED window: Friday >= 22:00 UTC
// through Sunday < 21:00 UTC.
func isFXWeekend(now time.Time) bool {
	now = now.UTC()
	switch now.Weekday() {
	case time.Friday:
		return now.Hour() >= 22
	case time.Saturday:
		return true
	case time.Sunday:
		return now.Hour() < 21
	default:
		return false
	}
}

// DataQuality classifies a single series for one symbol/timeframe against
// the current wall clock.
func DataQuality(series []fxtypes.Bar, timeframe fxtypes.Timeframe, symbol string, now time.Time) QualityResult {
	if isFXWeekend(now) {
		return QualityResult{Status: fxtypes.DataQualityMarketClosed, Reason: fxtypes.ReasonProvClosed, MarketClosed: true}
	}
	if len(series) == 0 {
		return QualityResult{Status: fxtypes.DataQualityDown, Reason: fxtypes.ReasonProvDown}
	}

	interval := timeframeInterval(timeframe)
	last := series[len(series)-1]
	age := now.Sub(last.Timestamp)

	gaps := 0
	for i := 1; i < len(series); i++ {
		gap := series[i].Timestamp.Sub(series[i-1].Timestamp)
		if gap > 3*interval {
			gaps++
		}
	}

	volumeMissing := false
	for _, b := range series {
		if b.Volume.IsZero() {
			volumeMissing = true
			break
		}
	}

	stale := age > 2*interval
	if stale || gaps > 0 {
		return QualityResult{
			Status:        fxtypes.DataQualityDegraded,
			Reason:        fxtypes.ReasonProvDegraded,
			Gaps:          gaps,
			Stale:         stale,
			VolumeMissing: volumeMissing,
		}
	}

	return QualityResult{Status: fxtypes.DataQualityOK, Reason: fxtypes.ReasonProvOK, VolumeMissing: volumeMissing}
}
