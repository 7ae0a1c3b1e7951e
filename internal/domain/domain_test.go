package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStockStatus(t *testing.T) {
	assert.Equal(t, "Below minimum", StatusBelowMin.Label())
	assert.Equal(t, "Optimal", StatusOptimal.Label())
	assert.Equal(t, "Above maximum", StatusAboveMax.Label())
	assert.Equal(t, "Unknown", StockStatus("BROKEN").Label())

	status, ok := ParseStockStatus(" below_min ")
	assert.True(t, ok)
	assert.Equal(t, StatusBelowMin, status)

	status, ok = ParseStockStatus("Above Maximum")
	assert.True(t, ok)
	assert.Equal(t, StatusAboveMax, status)

	_, ok = ParseStockStatus("garbage")
	assert.False(t, ok)
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "missing required columns: item_id, timestamp",
		(&SchemaError{Missing: []string{"item_id", "timestamp"}}).Error())
	assert.Equal(t, "no data has been set; call SetData first",
		(&NotConfiguredError{}).Error())
	assert.Equal(t, `no usage data for item "SUP999"`,
		(&UnknownItemError{ItemID: "SUP999"}).Error())
	assert.Equal(t, "lead time must be positive",
		(&InvalidArgumentError{Reason: "lead time must be positive"}).Error())
}

func TestAnalysisFilterMatches(t *testing.T) {
	record := TransactionRecord{
		ItemID:   "SUP001",
		Date:     time.Date(2023, time.June, 15, 0, 0, 0, 0, time.UTC),
		Quantity: 10,
	}

	assert.True(t, AnalysisFilter{}.Matches(record))
	assert.True(t, AnalysisFilter{ItemID: "SUP001"}.Matches(record))
	assert.False(t, AnalysisFilter{ItemID: "SUP002"}.Matches(record))

	assert.True(t, AnalysisFilter{
		StartDate: time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2023, time.June, 30, 0, 0, 0, 0, time.UTC),
	}.Matches(record))
	assert.False(t, AnalysisFilter{
		StartDate: time.Date(2023, time.July, 1, 0, 0, 0, 0, time.UTC),
	}.Matches(record))
	assert.False(t, AnalysisFilter{
		EndDate: time.Date(2023, time.May, 31, 0, 0, 0, 0, time.UTC),
	}.Matches(record))
}
