// internal/analysis/engine.go
package analysis

import (
	"fmt"
	"sync"
	"time"

	"github.com/hospitalops/parlogic/internal/domain"
)

// Engine is the configured inventory-policy instance. It owns the only two
// mutable pieces of state, the record set and the lead-time map, behind a
// single RWMutex: Configure, SetData and SetLeadTime are writers, every
// query is a reader. All derived values are recomputed per call from a
// snapshot; nothing is cached inside the engine.
//
// Date-range scoping: queries always compute over the full ingested history
// unless the filter carries an explicit start/end date, in which case the
// snapshot is narrowed before analysis runs.
type Engine struct {
	mu sync.RWMutex

	records    []domain.TransactionRecord
	configured bool
	leadTimes  map[string]int

	serviceLevel     float64
	reviewPeriodDays int
}

// NewEngine returns an engine with the given service level and review
// period and no data set.
func NewEngine(serviceLevel float64, reviewPeriodDays int) *Engine {
	return &Engine{
		leadTimes:        make(map[string]int),
		serviceLevel:     serviceLevel,
		reviewPeriodDays: reviewPeriodDays,
	}
}

// Configure replaces the record set, lead-time map, service level and
// review period in one step.
func (e *Engine) Configure(records []domain.TransactionRecord, leadTimes map[string]int, serviceLevel float64, reviewPeriodDays int) error {
	if reviewPeriodDays < 0 {
		return &domain.InvalidArgumentError{Reason: "review period must not be negative"}
	}

	validator := NewUsageAnalyzer()
	if err := validator.SetData(records); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	par := NewPARLevelEngine(nil, serviceLevel, reviewPeriodDays)
	if err := par.ReplaceLeadTimes(leadTimes); err != nil {
		return err
	}

	e.records = make([]domain.TransactionRecord, len(records))
	copy(e.records, records)
	e.configured = true
	e.leadTimes = par.leadTimes
	e.serviceLevel = serviceLevel
	e.reviewPeriodDays = reviewPeriodDays

	return nil
}

// SetData replaces only the record set.
func (e *Engine) SetData(records []domain.TransactionRecord) error {
	validator := NewUsageAnalyzer()
	if err := validator.SetData(records); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.records = make([]domain.TransactionRecord, len(records))
	copy(e.records, records)
	e.configured = true

	return nil
}

// SetLeadTime upserts the lead time for one item.
func (e *Engine) SetLeadTime(itemID string, days int) error {
	if itemID == "" {
		return &domain.InvalidArgumentError{Reason: "item_id must not be empty"}
	}
	if days <= 0 {
		return &domain.InvalidArgumentError{Reason: fmt.Sprintf("lead time must be a positive number of days, got %d", days)}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.leadTimes[itemID] = days

	return nil
}

// MonthlyUsage returns per-(month, item) aggregates for the filter.
func (e *Engine) MonthlyUsage(f domain.AnalysisFilter) ([]domain.MonthlyAggregate, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	analyzer, err := e.snapshotAnalyzer(f)
	if err != nil {
		return nil, err
	}

	return analyzer.CalculateMonthlyUsage(f.ItemID)
}

// UsageRange returns per-item monthly-total range statistics for the filter.
func (e *Engine) UsageRange(f domain.AnalysisFilter) (map[string]domain.UsageRangeStats, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	analyzer, err := e.snapshotAnalyzer(f)
	if err != nil {
		return nil, err
	}

	return analyzer.CalculateUsageRange(f.ItemID)
}

// Seasonality returns per-item seasonality profiles for the filter.
func (e *Engine) Seasonality(f domain.AnalysisFilter) (map[string]domain.SeasonalityProfile, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	analyzer, err := e.snapshotAnalyzer(f)
	if err != nil {
		return nil, err
	}

	return analyzer.DetectSeasonality(f.ItemID)
}

// PARLevels returns per-item PAR levels for the filter, evaluated in
// currentMonth.
func (e *Engine) PARLevels(f domain.AnalysisFilter, currentMonth time.Month) (map[string]domain.PARLevelResult, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	par, err := e.snapshotPAREngine(f)
	if err != nil {
		return nil, err
	}

	return par.CalculatePARLevels(f.ItemID, currentMonth)
}

// Recommendations compares current stock against PAR levels for the filter,
// evaluated in currentMonth.
func (e *Engine) Recommendations(f domain.AnalysisFilter, currentStock map[string]float64, currentMonth time.Month) (map[string]domain.RecommendationResult, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	par, err := e.snapshotPAREngine(f)
	if err != nil {
		return nil, err
	}

	return NewRecommendationEngine(par).GetRecommendations(f.ItemID, currentStock, currentMonth)
}

// Items returns the distinct item ids present in the record set, unordered.
func (e *Engine) Items() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, r := range e.records {
		seen[r.ItemID] = struct{}{}
	}

	items := make([]string, 0, len(seen))
	for item := range seen {
		items = append(items, item)
	}

	return items
}

// snapshotAnalyzer builds a throwaway analyzer over the date-filtered
// record snapshot. Caller holds at least a read lock.
func (e *Engine) snapshotAnalyzer(f domain.AnalysisFilter) (*UsageAnalyzer, error) {
	if !e.configured {
		return nil, &domain.NotConfiguredError{}
	}

	records := e.records
	if !f.StartDate.IsZero() || !f.EndDate.IsZero() {
		dateOnly := domain.AnalysisFilter{StartDate: f.StartDate, EndDate: f.EndDate}
		filtered := make([]domain.TransactionRecord, 0, len(records))
		for _, r := range records {
			if dateOnly.Matches(r) {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	analyzer := &UsageAnalyzer{records: records, configured: true}

	return analyzer, nil
}

func (e *Engine) snapshotPAREngine(f domain.AnalysisFilter) (*PARLevelEngine, error) {
	analyzer, err := e.snapshotAnalyzer(f)
	if err != nil {
		return nil, err
	}

	par := NewPARLevelEngine(analyzer, e.serviceLevel, e.reviewPeriodDays)
	par.leadTimes = e.leadTimes

	return par, nil
}
