// internal/analysis/par_engine.go
package analysis

import (
	"fmt"
	"time"

	"github.com/hospitalops/parlogic/internal/domain"
)

// DefaultLeadTimeDays is assumed for any item without a configured lead time.
const DefaultLeadTimeDays = 14

// monthlyToDailyDivisor converts an average monthly usage to a daily figure.
// Fixed at 30 regardless of actual month length.
const monthlyToDailyDivisor = 30

// PARLevelEngine derives reorder points and min/max PAR levels from usage
// statistics. It owns the lead-time configuration; the analyzer and model
// are collaborators.
type PARLevelEngine struct {
	analyzer         *UsageAnalyzer
	model            SafetyStockModel
	leadTimes        map[string]int
	serviceLevel     float64
	reviewPeriodDays int
}

// NewPARLevelEngine builds an engine over the given analyzer.
func NewPARLevelEngine(analyzer *UsageAnalyzer, serviceLevel float64, reviewPeriodDays int) *PARLevelEngine {
	return &PARLevelEngine{
		analyzer:         analyzer,
		leadTimes:        make(map[string]int),
		serviceLevel:     serviceLevel,
		reviewPeriodDays: reviewPeriodDays,
	}
}

// SetLeadTime upserts the lead time for an item. Days must be positive.
func (e *PARLevelEngine) SetLeadTime(itemID string, days int) error {
	if itemID == "" {
		return &domain.InvalidArgumentError{Reason: "item_id must not be empty"}
	}
	if days <= 0 {
		return &domain.InvalidArgumentError{Reason: fmt.Sprintf("lead time must be a positive number of days, got %d", days)}
	}

	e.leadTimes[itemID] = days

	return nil
}

// LeadTime returns the configured lead time for an item, or the default.
func (e *PARLevelEngine) LeadTime(itemID string) int {
	if days, ok := e.leadTimes[itemID]; ok {
		return days
	}
	return DefaultLeadTimeDays
}

// ReplaceLeadTimes swaps the whole lead-time map. A nil map clears it.
func (e *PARLevelEngine) ReplaceLeadTimes(leadTimes map[string]int) error {
	replacement := make(map[string]int, len(leadTimes))
	for item, days := range leadTimes {
		if days <= 0 {
			return &domain.InvalidArgumentError{Reason: fmt.Sprintf("lead time for %q must be a positive number of days, got %d", item, days)}
		}
		replacement[item] = days
	}

	e.leadTimes = replacement

	return nil
}

// CalculatePARLevels computes the replenishment band per item:
//
//	reorderPoint = avgDailyUsage x leadTime + safetyStock
//	minPAR       = reorderPoint
//	maxPAR       = reorderPoint + avgDailyUsage x reviewPeriod
//
// currentMonth feeds the safety-stock seasonality adjustment. A specific
// itemID with no usage history is an UnknownItemError.
func (e *PARLevelEngine) CalculatePARLevels(itemID string, currentMonth time.Month) (map[string]domain.PARLevelResult, error) {
	ranges, err := e.analyzer.CalculateUsageRange(itemID)
	if err != nil {
		return nil, err
	}
	if itemID != "" {
		if _, ok := ranges[itemID]; !ok {
			return nil, &domain.UnknownItemError{ItemID: itemID}
		}
	}

	seasonality, err := e.analyzer.DetectSeasonality(itemID)
	if err != nil {
		return nil, err
	}

	levels := make(map[string]domain.PARLevelResult, len(ranges))
	for item, stats := range ranges {
		leadTime := e.LeadTime(item)
		avgDaily := stats.AvgMonthly / monthlyToDailyDivisor

		safety := e.model.Compute(stats, seasonality[item], leadTime, e.reviewPeriodDays, e.serviceLevel, currentMonth)

		reorderPoint := avgDaily*float64(leadTime) + safety

		levels[item] = domain.PARLevelResult{
			ItemID:           item,
			MinPAR:           reorderPoint,
			MaxPAR:           reorderPoint + avgDaily*float64(e.reviewPeriodDays),
			ReorderPoint:     reorderPoint,
			SafetyStock:      safety,
			AvgDailyUsage:    avgDaily,
			LeadTimeDays:     leadTime,
			ReviewPeriodDays: e.reviewPeriodDays,
		}
	}

	return levels, nil
}
