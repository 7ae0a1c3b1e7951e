// internal/ingestion/transactions.go
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

// The strict transaction schema: every column is required, transaction
// types come from a closed set and zero quantities are rejected. Rows
// normalize to domain.TransactionRecord before reaching the engine.

var transactionColumns = []string{"item_id", "timestamp", "quantity", "transaction_type"}

var validTransactionTypes = map[string]bool{
	"issue":      true,
	"receipt":    true,
	"adjustment": true,
}

// dateLayouts are tried in order when coercing date values.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
}

// ParseTransactionsCSV reads a strict-schema transaction CSV and returns
// normalized records. Missing columns are a SchemaError; unparsable dates
// or quantities are a TypeCoercionError; invalid transaction types and zero
// quantities are an InvalidArgumentError.
func ParseTransactionsCSV(r io.Reader) ([]domain.TransactionRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &domain.SchemaError{Missing: transactionColumns}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	index, missing := columnIndex(header, transactionColumns)
	if len(missing) > 0 {
		return nil, &domain.SchemaError{Missing: missing}
	}

	var records []domain.TransactionRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}

		itemID := strings.TrimSpace(row[index["item_id"]])
		if itemID == "" {
			return nil, &domain.SchemaError{Missing: []string{"item_id"}}
		}

		date, err := parseDate(row[index["timestamp"]])
		if err != nil {
			return nil, &domain.TypeCoercionError{Field: "timestamp", Value: row[index["timestamp"]], Err: err}
		}

		quantity, err := strconv.ParseFloat(strings.TrimSpace(row[index["quantity"]]), 64)
		if err != nil {
			return nil, &domain.TypeCoercionError{Field: "quantity", Value: row[index["quantity"]], Err: err}
		}
		if quantity == 0 {
			return nil, &domain.InvalidArgumentError{Reason: "quantity cannot be zero"}
		}

		txType := strings.ToLower(strings.TrimSpace(row[index["transaction_type"]]))
		if !validTransactionTypes[txType] {
			return nil, &domain.InvalidArgumentError{Reason: fmt.Sprintf("invalid transaction type: %s", txType)}
		}

		records = append(records, domain.TransactionRecord{
			ItemID:   itemID,
			Date:     date,
			Quantity: quantity,
		})
	}

	return records, nil
}

// columnIndex maps lowercased, trimmed header names to positions and
// reports which required columns are absent.
func columnIndex(header, required []string) (map[string]int, []string) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var missing []string
	for _, name := range required {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}

	return index, missing
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date format: %q", value)
}
