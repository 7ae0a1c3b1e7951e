// internal/domain/models.go
package domain

import "time"

// TransactionRecord is a single usage transaction. Records are immutable
// once ingested; the analysis layer only ever reads them.
type TransactionRecord struct {
	ItemID   string    `json:"item_id"`
	Date     time.Time `json:"date"`
	Quantity float64   `json:"quantity"`
}

// MonthlyAggregate holds usage statistics for one item in one calendar month.
// AvgDailyUsage divides by the actual number of days in that month.
type MonthlyAggregate struct {
	Month         time.Time `json:"month"`
	ItemID        string    `json:"item_id"`
	TotalUsage    float64   `json:"total_usage"`
	AvgDailyUsage float64   `json:"avg_daily_usage"`
	MinUsage      float64   `json:"min_usage"`
	MaxUsage      float64   `json:"max_usage"`
	StdDev        float64   `json:"std_dev"`
}

// UsageRangeStats summarizes the spread of an item's monthly totals.
type UsageRangeStats struct {
	ItemID     string  `json:"item_id"`
	MinMonthly float64 `json:"min_monthly"`
	MaxMonthly float64 `json:"max_monthly"`
	AvgMonthly float64 `json:"avg_monthly"`
	StdDev     float64 `json:"std_dev"`
}

// SeasonalityProfile describes month-of-year demand variation for an item.
// PeakMonth and TroughMonth are calendar month numbers (1-12); ties resolve
// to the lowest month number.
type SeasonalityProfile struct {
	ItemID              string  `json:"item_id"`
	SeasonalPattern     bool    `json:"seasonal_pattern"`
	PeakMonth           int     `json:"peak_month"`
	TroughMonth         int     `json:"trough_month"`
	SeasonalityStrength float64 `json:"seasonality_strength"`
}

// PARLevelResult holds the replenishment band for an item.
// MinPAR always equals ReorderPoint.
type PARLevelResult struct {
	ItemID           string  `json:"item_id"`
	MinPAR           float64 `json:"min_par"`
	MaxPAR           float64 `json:"max_par"`
	ReorderPoint     float64 `json:"reorder_point"`
	SafetyStock      float64 `json:"safety_stock"`
	AvgDailyUsage    float64 `json:"avg_daily_usage"`
	LeadTimeDays     int     `json:"lead_time_days"`
	ReviewPeriodDays int     `json:"review_period_days"`
}

// RecommendationResult compares current stock against an item's PAR band.
type RecommendationResult struct {
	ItemID         string      `json:"item_id"`
	MinPAR         float64     `json:"min_par"`
	MaxPAR         float64     `json:"max_par"`
	ReorderPoint   float64     `json:"reorder_point"`
	SafetyStock    float64     `json:"safety_stock"`
	AvgDailyUsage  float64     `json:"avg_daily_usage"`
	CurrentStock   float64     `json:"current_stock"`
	NeedsReorder   bool        `json:"needs_reorder"`
	ReorderAmount  float64     `json:"reorder_amount"`
	Status         StockStatus `json:"status"`
	Recommendation string      `json:"recommendation"`
}

// AnalysisFilter narrows analysis queries to one item and/or a date window.
// Zero values mean "all items" and "full history" respectively.
type AnalysisFilter struct {
	ItemID    string    `json:"item_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// Matches reports whether a record passes the filter.
func (f AnalysisFilter) Matches(r TransactionRecord) bool {
	if f.ItemID != "" && r.ItemID != f.ItemID {
		return false
	}
	if !f.StartDate.IsZero() && r.Date.Before(f.StartDate) {
		return false
	}
	if !f.EndDate.IsZero() && r.Date.After(f.EndDate) {
		return false
	}
	return true
}

// UploadedFile represents an uploaded data file queued for ingestion.
type UploadedFile struct {
	Filename string
	Path     string
	Size     int64
}

// UploadResult summarizes a completed ingestion run.
type UploadResult struct {
	Files       int       `json:"files"`
	Records     int       `json:"records"`
	Items       int       `json:"items"`
	ProcessedAt time.Time `json:"processed_at"`
}
