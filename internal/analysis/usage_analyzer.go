// internal/analysis/usage_analyzer.go
package analysis

import (
	"math"
	"sort"
	"time"

	"github.com/hospitalops/parlogic/internal/domain"
)

// UsageAnalyzer computes monthly aggregates, range statistics and
// seasonality profiles from a set of usage transactions. It owns the record
// set; callers replace it wholesale via SetData. The analyzer performs no
// internal locking, callers serialize SetData against the calculate methods.
type UsageAnalyzer struct {
	records    []domain.TransactionRecord
	configured bool
}

// NewUsageAnalyzer returns an analyzer with no data set.
func NewUsageAnalyzer() *UsageAnalyzer {
	return &UsageAnalyzer{}
}

// SetData replaces the record set. Every record must carry an item id, a
// real calendar date and a finite quantity; validation happens once here so
// the calculate methods can assume a well-typed record set.
func (a *UsageAnalyzer) SetData(records []domain.TransactionRecord) error {
	for _, r := range records {
		if r.ItemID == "" {
			return &domain.SchemaError{Missing: []string{"item_id"}}
		}
		if r.Date.IsZero() {
			return &domain.TypeCoercionError{Field: "date", Value: ""}
		}
		if math.IsNaN(r.Quantity) || math.IsInf(r.Quantity, 0) {
			return &domain.TypeCoercionError{Field: "quantity", Value: "non-finite"}
		}
	}

	a.records = make([]domain.TransactionRecord, len(records))
	copy(a.records, records)
	a.configured = true

	return nil
}

// Configured reports whether data has ever been set.
func (a *UsageAnalyzer) Configured() bool { return a.configured }

// CalculateMonthlyUsage groups transactions by (calendar month, item) and
// returns per-group usage statistics, ordered by month then item. Average
// daily usage divides by the actual number of days in that month. An empty
// record set yields an empty slice, not an error.
func (a *UsageAnalyzer) CalculateMonthlyUsage(itemID string) ([]domain.MonthlyAggregate, error) {
	if !a.configured {
		return nil, &domain.NotConfiguredError{}
	}

	type key struct {
		month time.Time
		item  string
	}
	groups := make(map[key][]float64)
	for _, r := range a.records {
		if itemID != "" && r.ItemID != itemID {
			continue
		}
		k := key{month: monthStart(r.Date), item: r.ItemID}
		groups[k] = append(groups[k], r.Quantity)
	}

	aggregates := make([]domain.MonthlyAggregate, 0, len(groups))
	for k, quantities := range groups {
		total, minQ, maxQ := 0.0, quantities[0], quantities[0]
		for _, q := range quantities {
			total += q
			minQ = math.Min(minQ, q)
			maxQ = math.Max(maxQ, q)
		}

		aggregates = append(aggregates, domain.MonthlyAggregate{
			Month:         k.month,
			ItemID:        k.item,
			TotalUsage:    total,
			AvgDailyUsage: total / float64(daysInMonth(k.month)),
			MinUsage:      minQ,
			MaxUsage:      maxQ,
			StdDev:        sampleStdDev(quantities),
		})
	}

	sort.Slice(aggregates, func(i, j int) bool {
		if !aggregates[i].Month.Equal(aggregates[j].Month) {
			return aggregates[i].Month.Before(aggregates[j].Month)
		}
		return aggregates[i].ItemID < aggregates[j].ItemID
	})

	return aggregates, nil
}

// CalculateUsageRange reduces each item's history to one total per calendar
// month, then computes min/max/mean/std across those monthly totals.
func (a *UsageAnalyzer) CalculateUsageRange(itemID string) (map[string]domain.UsageRangeStats, error) {
	if !a.configured {
		return nil, &domain.NotConfiguredError{}
	}

	monthlyTotals := make(map[string]map[time.Time]float64)
	for _, r := range a.records {
		if itemID != "" && r.ItemID != itemID {
			continue
		}
		if monthlyTotals[r.ItemID] == nil {
			monthlyTotals[r.ItemID] = make(map[time.Time]float64)
		}
		monthlyTotals[r.ItemID][monthStart(r.Date)] += r.Quantity
	}

	ranges := make(map[string]domain.UsageRangeStats, len(monthlyTotals))
	for item, byMonth := range monthlyTotals {
		totals := make([]float64, 0, len(byMonth))
		for _, t := range byMonth {
			totals = append(totals, t)
		}

		sum, minT, maxT := 0.0, totals[0], totals[0]
		for _, t := range totals {
			sum += t
			minT = math.Min(minT, t)
			maxT = math.Max(maxT, t)
		}

		ranges[item] = domain.UsageRangeStats{
			ItemID:     item,
			MinMonthly: minT,
			MaxMonthly: maxT,
			AvgMonthly: sum / float64(len(totals)),
			StdDev:     sampleStdDev(totals),
		}
	}

	return ranges, nil
}

// DetectSeasonality averages each item's quantities by month-of-year across
// all ingested years and derives a normalized amplitude:
// strength = (max-min)/(max+min), zero when max+min is zero. A pattern is
// reported when strength exceeds 0.20. Ties at either extremum resolve to
// the lowest month number.
func (a *UsageAnalyzer) DetectSeasonality(itemID string) (map[string]domain.SeasonalityProfile, error) {
	if !a.configured {
		return nil, &domain.NotConfiguredError{}
	}

	type monthAcc struct {
		sum   float64
		count int
	}
	byItem := make(map[string]map[int]*monthAcc)
	for _, r := range a.records {
		if itemID != "" && r.ItemID != itemID {
			continue
		}
		if byItem[r.ItemID] == nil {
			byItem[r.ItemID] = make(map[int]*monthAcc)
		}
		m := int(r.Date.Month())
		if byItem[r.ItemID][m] == nil {
			byItem[r.ItemID][m] = &monthAcc{}
		}
		byItem[r.ItemID][m].sum += r.Quantity
		byItem[r.ItemID][m].count++
	}

	profiles := make(map[string]domain.SeasonalityProfile, len(byItem))
	for item, months := range byItem {
		peakMonth, troughMonth := 0, 0
		peakVal, troughVal := math.Inf(-1), math.Inf(1)
		for m := 1; m <= 12; m++ {
			acc, ok := months[m]
			if !ok {
				continue
			}
			avg := acc.sum / float64(acc.count)
			if avg > peakVal {
				peakVal, peakMonth = avg, m
			}
			if avg < troughVal {
				troughVal, troughMonth = avg, m
			}
		}

		strength := 0.0
		if peakVal+troughVal > 0 {
			strength = (peakVal - troughVal) / (peakVal + troughVal)
		}

		profiles[item] = domain.SeasonalityProfile{
			ItemID:              item,
			SeasonalPattern:     strength > seasonalityThreshold,
			PeakMonth:           peakMonth,
			TroughMonth:         troughMonth,
			SeasonalityStrength: strength,
		}
	}

	return profiles, nil
}

// seasonalityThreshold is the fixed strength above which month-of-year
// variation counts as a seasonal pattern.
const seasonalityThreshold = 0.20

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(month time.Time) int {
	return time.Date(month.Year(), month.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// sampleStdDev returns the sample standard deviation, zero when fewer than
// two values are present.
func sampleStdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}

	return math.Sqrt(sq / float64(n-1))
}
