// internal/analysis/safety_stock.go
package analysis

import (
	"math"
	"time"

	"github.com/hospitalops/parlogic/internal/domain"
)

// zScores maps supported service levels to their normal-distribution
// z-scores. The table is deliberately finite: any other service level falls
// back to the 95% score rather than failing, matching reference numerics
// exactly instead of computing a general inverse normal.
var zScores = map[float64]float64{
	0.90:  1.28,
	0.95:  1.645,
	0.98:  2.054,
	0.99:  2.326,
	0.999: 3.090,
}

// fallbackZScore is used for any service level absent from the table.
const fallbackZScore = 1.645

// ZScore resolves a service level to its z-score, applying the documented
// fallback for unmatched values.
func ZScore(serviceLevel float64) float64 {
	if z, ok := zScores[serviceLevel]; ok {
		return z
	}
	return fallbackZScore
}

// SafetyStockModel sizes buffer stock from demand variability, lead time,
// review period and target service level.
type SafetyStockModel struct{}

// Compute returns the safety stock quantity:
//
//	safety = z x dailyStd x sqrt(leadTime + reviewPeriod)
//
// Daily standard deviation scales the monthly figure by sqrt(30) regardless
// of actual month length. When the item is seasonal and currentMonth equals
// its peak month, dailyStd is inflated by (1 + strength); currentMonth is an
// explicit parameter so the evaluation month is injected rather than read
// from a clock. The result is never negative.
func (SafetyStockModel) Compute(
	stats domain.UsageRangeStats,
	seasonality domain.SeasonalityProfile,
	leadTimeDays, reviewPeriodDays int,
	serviceLevel float64,
	currentMonth time.Month,
) float64 {
	dailyStd := stats.StdDev / math.Sqrt(30)

	if seasonality.SeasonalPattern && int(currentMonth) == seasonality.PeakMonth {
		dailyStd *= 1 + seasonality.SeasonalityStrength
	}

	safety := ZScore(serviceLevel) * dailyStd * math.Sqrt(float64(leadTimeDays+reviewPeriodDays))
	if safety < 0 {
		return 0
	}
	return safety
}
