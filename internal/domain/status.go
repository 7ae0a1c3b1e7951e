package domain

import "strings"

// StockStatus classifies current stock against an item's PAR band.
type StockStatus string

const (
	StatusBelowMin StockStatus = "BELOW_MIN"
	StatusOptimal  StockStatus = "OPTIMAL"
	StatusAboveMax StockStatus = "ABOVE_MAX"
)

var stockStatusLabels = map[StockStatus]string{
	StatusBelowMin: "Below minimum",
	StatusOptimal:  "Optimal",
	StatusAboveMax: "Above maximum",
}

// Label returns a human-readable label for the status.
func (s StockStatus) Label() string {
	if label, ok := stockStatusLabels[s]; ok {
		return label
	}

	return "Unknown"
}

// ParseStockStatus returns the status for a given label or code
// (case-insensitive).
func ParseStockStatus(value string) (StockStatus, bool) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "BELOW_MIN", "BELOW MINIMUM":
		return StatusBelowMin, true
	case "OPTIMAL":
		return StatusOptimal, true
	case "ABOVE_MAX", "ABOVE MAXIMUM":
		return StatusAboveMax, true
	}

	return "", false
}
