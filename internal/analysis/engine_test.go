package analysis

import (
	"sync"
	"testing"
	"time"

	"github.com/hospitalops/parlogic/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineNotConfigured(t *testing.T) {
	engine := NewEngine(0.95, 7)

	var notConfigured *domain.NotConfiguredError
	_, err := engine.MonthlyUsage(domain.AnalysisFilter{})
	require.ErrorAs(t, err, &notConfigured)
	_, err = engine.PARLevels(domain.AnalysisFilter{}, time.April)
	require.ErrorAs(t, err, &notConfigured)
}

func TestEngineConfigure(t *testing.T) {
	engine := NewEngine(0.90, 14)
	err := engine.Configure(steadyYear("SUP001", 900), map[string]int{"SUP001": 10}, 0.95, 7)
	require.NoError(t, err)

	levels, err := engine.PARLevels(domain.AnalysisFilter{}, time.April)
	require.NoError(t, err)

	l := levels["SUP001"]
	assert.Equal(t, 10, l.LeadTimeDays)
	assert.Equal(t, 7, l.ReviewPeriodDays)
	assert.InDelta(t, 300.0, l.ReorderPoint, 1e-9)
}

func TestEngineConfigureRejectsBadLeadTimes(t *testing.T) {
	engine := NewEngine(0.95, 7)

	var invalid *domain.InvalidArgumentError
	err := engine.Configure(steadyYear("SUP001", 900), map[string]int{"SUP001": -1}, 0.95, 7)
	require.ErrorAs(t, err, &invalid)
}

func TestEngineSetLeadTime(t *testing.T) {
	engine := NewEngine(0.95, 7)
	require.NoError(t, engine.SetData(steadyYear("SUP001", 900)))

	var invalid *domain.InvalidArgumentError
	require.ErrorAs(t, engine.SetLeadTime("SUP001", 0), &invalid)
	require.NoError(t, engine.SetLeadTime("SUP001", 10))

	levels, err := engine.PARLevels(domain.AnalysisFilter{ItemID: "SUP001"}, time.April)
	require.NoError(t, err)
	assert.Equal(t, 10, levels["SUP001"].LeadTimeDays)
}

func TestEngineDateRangeFilter(t *testing.T) {
	engine := NewEngine(0.95, 7)
	records := append(steadyYear("SUP001", 900), func() []domain.TransactionRecord {
		extra := make([]domain.TransactionRecord, 0, 12)
		for m := time.January; m <= time.December; m++ {
			extra = append(extra, txn("SUP001", 2022, m, 15, 300))
		}
		return extra
	}()...)
	require.NoError(t, engine.SetData(records))

	full, err := engine.UsageRange(domain.AnalysisFilter{})
	require.NoError(t, err)
	assert.InDelta(t, 600.0, full["SUP001"].AvgMonthly, 1e-9)

	recent, err := engine.UsageRange(domain.AnalysisFilter{
		StartDate: time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.InDelta(t, 900.0, recent["SUP001"].AvgMonthly, 1e-9)

	early, err := engine.UsageRange(domain.AnalysisFilter{
		EndDate: time.Date(2022, time.December, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.InDelta(t, 300.0, early["SUP001"].AvgMonthly, 1e-9)
}

func TestEngineItems(t *testing.T) {
	engine := NewEngine(0.95, 7)
	require.NoError(t, engine.SetData([]domain.TransactionRecord{
		txn("SUP002", 2023, time.January, 5, 10),
		txn("SUP001", 2023, time.January, 5, 10),
		txn("SUP001", 2023, time.February, 5, 10),
	}))

	assert.ElementsMatch(t, []string{"SUP001", "SUP002"}, engine.Items())
}

func TestEngineConcurrentReaders(t *testing.T) {
	engine := NewEngine(0.95, 7)
	require.NoError(t, engine.SetData(steadyYear("SUP001", 900)))
	require.NoError(t, engine.SetLeadTime("SUP001", 10))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Recommendations(domain.AnalysisFilter{},
				map[string]float64{"SUP001": 250}, time.April)
			assert.NoError(t, err)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, engine.SetData(steadyYear("SUP001", 600)))
	}()
	wg.Wait()
}
