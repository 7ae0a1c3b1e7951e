// internal/ingestion/supply.go
package ingestion

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/hospitalops/parlogic/internal/domain"
)

// The flexible supply-history schema used by external purchase-order
// exports. Required columns must be present; optional columns are mapped
// when found and ignored otherwise. Rows whose required values cannot be
// coerced are dropped rather than failing the whole file.

var supplyRequiredColumns = []string{"item_id", "item_name", "quantity", "date", "unit_price"}

var supplyOptionalColumns = []string{"category", "supplier", "department", "location", "min_stock", "max_stock"}

// SupplyRecord is one parsed supply-history row.
type SupplyRecord struct {
	ItemID     string    `json:"item_id"`
	ItemName   string    `json:"item_name"`
	Quantity   float64   `json:"quantity"`
	Date       time.Time `json:"date"`
	UnitPrice  float64   `json:"unit_price"`
	Category   string    `json:"category,omitempty"`
	Supplier   string    `json:"supplier,omitempty"`
	Department string    `json:"department,omitempty"`
	Location   string    `json:"location,omitempty"`
}

// SupplyDataset is the result of parsing a supply-history file.
type SupplyDataset struct {
	Records         []SupplyRecord `json:"records"`
	RowCount        int            `json:"row_count"`
	DroppedRows     int            `json:"dropped_rows"`
	Columns         []string       `json:"columns"`
	MissingOptional []string       `json:"missing_optional"`
}

// ValidationIssue flags suspicious values found during validation.
type ValidationIssue struct {
	Type    string `json:"type"`
	Count   int    `json:"count"`
	Message string `json:"message"`
}

// ParseSupplyCSV reads a flexible-schema supply-history CSV. Header names
// are lowercased and trimmed before matching. Missing required columns are
// a SchemaError.
func ParseSupplyCSV(r io.Reader) (*SupplyDataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &domain.SchemaError{Missing: supplyRequiredColumns}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	index, missing := columnIndex(header, supplyRequiredColumns)
	if len(missing) > 0 {
		return nil, &domain.SchemaError{Missing: missing}
	}

	columns := make([]string, 0, len(header))
	for _, name := range header {
		columns = append(columns, strings.ToLower(strings.TrimSpace(name)))
	}

	var missingOptional []string
	for _, name := range supplyOptionalColumns {
		if _, ok := index[name]; !ok {
			missingOptional = append(missingOptional, name)
		}
	}

	dataset := &SupplyDataset{Columns: columns, MissingOptional: missingOptional}

	optional := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		dataset.RowCount++

		itemID := strings.TrimSpace(row[index["item_id"]])
		itemName := strings.TrimSpace(row[index["item_name"]])
		if itemID == "" || itemName == "" {
			dataset.DroppedRows++
			continue
		}

		quantity, qErr := strconv.ParseFloat(strings.TrimSpace(row[index["quantity"]]), 64)
		unitPrice, pErr := strconv.ParseFloat(strings.TrimSpace(row[index["unit_price"]]), 64)
		date, dErr := parseDate(row[index["date"]])
		if qErr != nil || pErr != nil || dErr != nil {
			dataset.DroppedRows++
			continue
		}

		dataset.Records = append(dataset.Records, SupplyRecord{
			ItemID:     itemID,
			ItemName:   itemName,
			Quantity:   quantity,
			Date:       date,
			UnitPrice:  unitPrice,
			Category:   optional(row, "category"),
			Supplier:   optional(row, "supplier"),
			Department: optional(row, "department"),
			Location:   optional(row, "location"),
		})
	}

	return dataset, nil
}

// Transactions normalizes the dataset to the single record shape the engine
// understands.
func (d *SupplyDataset) Transactions() []domain.TransactionRecord {
	records := make([]domain.TransactionRecord, 0, len(d.Records))
	for _, r := range d.Records {
		records = append(records, domain.TransactionRecord{
			ItemID:   r.ItemID,
			Date:     r.Date,
			Quantity: r.Quantity,
		})
	}

	return records
}

// Validate scans the dataset for suspicious values. The reference date is
// injected so future-date detection is reproducible in tests.
func (d *SupplyDataset) Validate(referenceDate time.Time) []ValidationIssue {
	var negativeQty, futureDates, invalidPrices int
	for _, r := range d.Records {
		if r.Quantity < 0 {
			negativeQty++
		}
		if r.Date.After(referenceDate) {
			futureDates++
		}
		if r.UnitPrice <= 0 {
			invalidPrices++
		}
	}

	var issues []ValidationIssue
	if negativeQty > 0 {
		issues = append(issues, ValidationIssue{
			Type:    "negative_quantity",
			Count:   negativeQty,
			Message: fmt.Sprintf("Found %d rows with negative quantities", negativeQty),
		})
	}
	if futureDates > 0 {
		issues = append(issues, ValidationIssue{
			Type:    "future_date",
			Count:   futureDates,
			Message: fmt.Sprintf("Found %d rows with future dates", futureDates),
		})
	}
	if invalidPrices > 0 {
		issues = append(issues, ValidationIssue{
			Type:    "invalid_price",
			Count:   invalidPrices,
			Message: fmt.Sprintf("Found %d rows with zero or negative prices", invalidPrices),
		})
	}

	return issues
}
