package analysis

import (
	"testing"
	"time"

	"github.com/hospitalops/parlogic/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func txn(item string, year int, month time.Month, day int, qty float64) domain.TransactionRecord {
	return domain.TransactionRecord{
		ItemID:   item,
		Date:     time.Date(year, month, day, 0, 0, 0, 0, time.UTC),
		Quantity: qty,
	}
}

// seasonalYear returns one transaction per month of 2023 for the item,
// peaking in December and bottoming out in July.
func seasonalYear(item string) []domain.TransactionRecord {
	quantities := map[time.Month]float64{
		time.January: 1500, time.February: 1400, time.March: 1200,
		time.April: 1000, time.May: 800, time.June: 600,
		time.July: 400, time.August: 500, time.September: 700,
		time.October: 900, time.November: 1200, time.December: 1600,
	}

	records := make([]domain.TransactionRecord, 0, 12)
	for m := time.January; m <= time.December; m++ {
		records = append(records, txn(item, 2023, m, 15, quantities[m]))
	}
	return records
}

func TestCalculateMonthlyUsage(t *testing.T) {
	analyzer := NewUsageAnalyzer()
	require.NoError(t, analyzer.SetData([]domain.TransactionRecord{
		txn("SUP001", 2023, time.January, 5, 10),
		txn("SUP001", 2023, time.January, 20, 20),
		txn("SUP001", 2023, time.February, 14, 28),
		txn("SUP002", 2023, time.January, 8, 100),
	}))

	aggregates, err := analyzer.CalculateMonthlyUsage("SUP001")
	require.NoError(t, err)
	require.Len(t, aggregates, 2)

	jan := aggregates[0]
	assert.Equal(t, "SUP001", jan.ItemID)
	assert.Equal(t, time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC), jan.Month)
	assert.InDelta(t, 30.0, jan.TotalUsage, 1e-9)
	assert.InDelta(t, 30.0/31.0, jan.AvgDailyUsage, 1e-9)
	assert.InDelta(t, 10.0, jan.MinUsage, 1e-9)
	assert.InDelta(t, 20.0, jan.MaxUsage, 1e-9)
	assert.InDelta(t, 7.0710678, jan.StdDev, 1e-6)

	// February 2023 has 28 days
	feb := aggregates[1]
	assert.InDelta(t, 1.0, feb.AvgDailyUsage, 1e-9)
	assert.Zero(t, feb.StdDev)
}

func TestCalculateMonthlyUsageEmptyRecordSet(t *testing.T) {
	analyzer := NewUsageAnalyzer()
	require.NoError(t, analyzer.SetData(nil))

	aggregates, err := analyzer.CalculateMonthlyUsage("")
	require.NoError(t, err)
	assert.Empty(t, aggregates)
}

func TestCalculateMonthlyUsageNotConfigured(t *testing.T) {
	analyzer := NewUsageAnalyzer()

	_, err := analyzer.CalculateMonthlyUsage("")
	var notConfigured *domain.NotConfiguredError
	require.ErrorAs(t, err, &notConfigured)
}

func TestSetDataValidation(t *testing.T) {
	analyzer := NewUsageAnalyzer()

	err := analyzer.SetData([]domain.TransactionRecord{{Date: time.Now(), Quantity: 1}})
	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)

	err = analyzer.SetData([]domain.TransactionRecord{{ItemID: "SUP001", Quantity: 1}})
	var coercionErr *domain.TypeCoercionError
	require.ErrorAs(t, err, &coercionErr)
}

func TestCalculateUsageRange(t *testing.T) {
	analyzer := NewUsageAnalyzer()
	require.NoError(t, analyzer.SetData([]domain.TransactionRecord{
		txn("SUP001", 2023, time.January, 5, 60),
		txn("SUP001", 2023, time.January, 25, 40),
		txn("SUP001", 2023, time.February, 10, 200),
		txn("SUP001", 2023, time.March, 10, 300),
	}))

	ranges, err := analyzer.CalculateUsageRange("SUP001")
	require.NoError(t, err)
	require.Contains(t, ranges, "SUP001")

	stats := ranges["SUP001"]
	assert.InDelta(t, 100.0, stats.MinMonthly, 1e-9)
	assert.InDelta(t, 300.0, stats.MaxMonthly, 1e-9)
	assert.InDelta(t, 200.0, stats.AvgMonthly, 1e-9)
	assert.InDelta(t, 100.0, stats.StdDev, 1e-9)
}

func TestDetectSeasonality(t *testing.T) {
	analyzer := NewUsageAnalyzer()
	require.NoError(t, analyzer.SetData(seasonalYear("SUP001")))

	profiles, err := analyzer.DetectSeasonality("SUP001")
	require.NoError(t, err)
	require.Contains(t, profiles, "SUP001")

	profile := profiles["SUP001"]
	assert.True(t, profile.SeasonalPattern)
	assert.Equal(t, 12, profile.PeakMonth)
	assert.Equal(t, 7, profile.TroughMonth)
	assert.InDelta(t, (1600.0-400.0)/(1600.0+400.0), profile.SeasonalityStrength, 1e-9)
}

func TestDetectSeasonalityTieBreaksToLowestMonth(t *testing.T) {
	analyzer := NewUsageAnalyzer()
	require.NoError(t, analyzer.SetData([]domain.TransactionRecord{
		txn("SUP001", 2023, time.January, 10, 50),
		txn("SUP001", 2023, time.March, 10, 50),
		txn("SUP001", 2023, time.July, 10, 10),
		txn("SUP001", 2023, time.September, 10, 10),
	}))

	profiles, err := analyzer.DetectSeasonality("SUP001")
	require.NoError(t, err)

	profile := profiles["SUP001"]
	assert.Equal(t, 1, profile.PeakMonth)
	assert.Equal(t, 7, profile.TroughMonth)
}

func TestDetectSeasonalityZeroUsage(t *testing.T) {
	analyzer := NewUsageAnalyzer()
	require.NoError(t, analyzer.SetData([]domain.TransactionRecord{
		txn("SUP001", 2023, time.January, 10, 0),
		txn("SUP001", 2023, time.June, 10, 0),
	}))

	profiles, err := analyzer.DetectSeasonality("SUP001")
	require.NoError(t, err)

	profile := profiles["SUP001"]
	assert.False(t, profile.SeasonalPattern)
	assert.Zero(t, profile.SeasonalityStrength)
}

func TestDetectSeasonalityAveragesAcrossYears(t *testing.T) {
	analyzer := NewUsageAnalyzer()
	require.NoError(t, analyzer.SetData([]domain.TransactionRecord{
		txn("SUP001", 2022, time.January, 10, 100),
		txn("SUP001", 2023, time.January, 10, 300),
		txn("SUP001", 2022, time.June, 10, 50),
		txn("SUP001", 2023, time.June, 10, 50),
	}))

	profiles, err := analyzer.DetectSeasonality("SUP001")
	require.NoError(t, err)

	// January averages to 200 across the two years
	profile := profiles["SUP001"]
	assert.Equal(t, 1, profile.PeakMonth)
	assert.InDelta(t, (200.0-50.0)/(200.0+50.0), profile.SeasonalityStrength, 1e-9)
}
