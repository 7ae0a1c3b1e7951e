// cmd/parlogic/main.go
//
// parlogic is the offline CLI: point it at a usage-history CSV (or XLSX)
// and it prints monthly usage, range statistics, seasonality, PAR levels or
// stock recommendations as JSON, without running a server.
package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hospitalops/parlogic/internal/analysis"
	"github.com/hospitalops/parlogic/internal/domain"
	"github.com/hospitalops/parlogic/internal/ingestion"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func newFileFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "file",
		Usage:    "Usage history CSV or XLSX file",
		Required: true,
		EnvVars:  []string{"PARLOGIC_DATA_FILE"},
	}
}

func newSchemaFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "schema",
		Usage: "Ingestion schema: transactions or supply",
		Value: "transactions",
	}
}

func newItemFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "item",
		Usage: "Restrict output to one item id",
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "parlogic",
		Usage: "Analyze usage history and compute PAR levels offline",
		Commands: []*cli.Command{
			{
				Name:  "analyze",
				Usage: "Print monthly usage, range statistics and seasonality",
				Flags: []cli.Flag{newFileFlag(), newSchemaFlag(), newItemFlag()},
				Action: runAnalyze,
			},
			{
				Name:  "recommend",
				Usage: "Print PAR levels and reorder recommendations",
				Flags: []cli.Flag{
					newFileFlag(),
					newSchemaFlag(),
					newItemFlag(),
					&cli.StringFlag{
						Name:  "stock-file",
						Usage: "CSV of current stock levels (item_id,quantity)",
					},
					&cli.Float64Flag{
						Name:  "service-level",
						Usage: "Target service level",
						Value: 0.95,
					},
					&cli.IntFlag{
						Name:  "review-period",
						Usage: "Review period in days",
						Value: 7,
					},
					&cli.StringSliceFlag{
						Name:  "lead-time",
						Usage: "Per-item lead time as item=days (repeatable)",
					},
				},
				Action: runRecommend,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadRecords(c *cli.Context) ([]domain.TransactionRecord, error) {
	path := c.String("file")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		reader, err = ingestion.XLSXToCSV(f)
		if err != nil {
			return nil, err
		}
	}

	if c.String("schema") == "supply" {
		dataset, err := ingestion.ParseSupplyCSV(reader)
		if err != nil {
			return nil, err
		}
		for _, issue := range dataset.Validate(time.Now()) {
			log.Printf("warning: %s", issue.Message)
		}
		return dataset.Transactions(), nil
	}

	return ingestion.ParseTransactionsCSV(reader)
}

func runAnalyze(c *cli.Context) error {
	records, err := loadRecords(c)
	if err != nil {
		return err
	}

	analyzer := analysis.NewUsageAnalyzer()
	if err := analyzer.SetData(records); err != nil {
		return err
	}

	item := c.String("item")
	monthly, err := analyzer.CalculateMonthlyUsage(item)
	if err != nil {
		return err
	}
	ranges, err := analyzer.CalculateUsageRange(item)
	if err != nil {
		return err
	}
	seasonality, err := analyzer.DetectSeasonality(item)
	if err != nil {
		return err
	}

	return printJSON(map[string]any{
		"monthly_usage": monthly,
		"usage_range":   ranges,
		"seasonality":   seasonality,
	})
}

func runRecommend(c *cli.Context) error {
	records, err := loadRecords(c)
	if err != nil {
		return err
	}

	leadTimes := make(map[string]int)
	for _, entry := range c.StringSlice("lead-time") {
		item, days, err := parseLeadTime(entry)
		if err != nil {
			return err
		}
		leadTimes[item] = days
	}

	engine := analysis.NewEngine(c.Float64("service-level"), c.Int("review-period"))
	if err := engine.Configure(records, leadTimes, c.Float64("service-level"), c.Int("review-period")); err != nil {
		return err
	}

	stock := make(map[string]float64)
	if stockFile := c.String("stock-file"); stockFile != "" {
		stock, err = loadStockLevels(stockFile)
		if err != nil {
			return err
		}
	}

	filter := domain.AnalysisFilter{ItemID: c.String("item")}
	month := time.Now().Month()

	levels, err := engine.PARLevels(filter, month)
	if err != nil {
		return err
	}
	recommendations, err := engine.Recommendations(filter, stock, month)
	if err != nil {
		return err
	}

	return printJSON(map[string]any{
		"par_levels":      levels,
		"recommendations": recommendations,
	})
}

func parseLeadTime(entry string) (string, int, error) {
	parts := strings.SplitN(entry, "=", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("invalid lead-time entry %q, want item=days", entry)
	}
	days, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", 0, fmt.Errorf("invalid lead-time days in %q: %w", entry, err)
	}
	return strings.TrimSpace(parts[0]), days, nil
}

// loadStockLevels reads a two-column CSV of item_id,quantity. A header row
// is skipped when its quantity column is not numeric.
func loadStockLevels(path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	stock := make(map[string]float64)
	first := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) < 2 {
			return nil, fmt.Errorf("stock file rows need item_id and quantity, got %v", row)
		}

		qty, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			if first {
				first = false
				continue
			}
			return nil, fmt.Errorf("invalid stock quantity %q for item %s", row[1], row[0])
		}
		first = false
		stock[strings.TrimSpace(row[0])] = qty
	}

	return stock, nil
}

func printJSON(payload any) error {
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
