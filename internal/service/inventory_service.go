// internal/service/inventory_service.go
package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hospitalops/parlogic/internal/analysis"
	"github.com/hospitalops/parlogic/internal/cache"
	"github.com/hospitalops/parlogic/internal/domain"
	"github.com/hospitalops/parlogic/internal/ingestion"
	"github.com/hospitalops/parlogic/internal/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// Schema names accepted by IngestFiles.
const (
	SchemaTransactions = "transactions"
	SchemaSupply       = "supply"
)

// maxConcurrentParses bounds how many uploaded files are parsed at once.
const maxConcurrentParses = 4

// InventoryService fronts the engine for the HTTP layers: it parses
// uploads, swaps the record set, answers analysis queries and keeps the
// optional cache and archive collaborators out of the engine's way.
type InventoryService struct {
	engine  *analysis.Engine
	cache   cache.RecommendationCache
	archive storage.ObjectStorage
	now     func() time.Time
}

// NewInventoryService wires the service. cacheImpl may be nil (noop is
// substituted) and archive may be nil (archiving disabled).
func NewInventoryService(engine *analysis.Engine, cacheImpl cache.RecommendationCache, archive storage.ObjectStorage) *InventoryService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopRecommendationCache()
	}
	return &InventoryService{
		engine:  engine,
		cache:   cacheImpl,
		archive: archive,
		now:     time.Now,
	}
}

// IngestFiles parses the uploaded files under the given schema with bounded
// concurrency, replaces the engine's record set with the combined result
// and invalidates cached recommendations. Supply-schema validation issues
// are reported alongside the result; they do not fail the upload.
func (s *InventoryService) IngestFiles(ctx context.Context, files []domain.UploadedFile, schema string) (*domain.UploadResult, []ingestion.ValidationIssue, error) {
	if len(files) == 0 {
		return nil, nil, &domain.InvalidArgumentError{Reason: "no files provided"}
	}
	if schema == "" {
		schema = SchemaTransactions
	}
	if schema != SchemaTransactions && schema != SchemaSupply {
		return nil, nil, &domain.InvalidArgumentError{Reason: fmt.Sprintf("unknown schema: %s", schema)}
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		records  []domain.TransactionRecord
		issues   []ingestion.ValidationIssue
		firstErr error
	)

	sem := semaphore.NewWeighted(maxConcurrentParses)
	for _, file := range files {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, nil, err
		}

		wg.Add(1)
		go func(f domain.UploadedFile) {
			defer wg.Done()
			defer sem.Release(1)

			parsed, fileIssues, err := s.parseFile(f, schema)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("file %s: %w", f.Filename, err)
				}
				return
			}
			records = append(records, parsed...)
			issues = append(issues, fileIssues...)
		}(file)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, nil, firstErr
	}

	if err := s.engine.SetData(records); err != nil {
		return nil, nil, err
	}

	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("recommendation cache invalidation failed")
	}

	s.archiveFiles(ctx, files)

	return &domain.UploadResult{
		Files:       len(files),
		Records:     len(records),
		Items:       len(s.engine.Items()),
		ProcessedAt: s.now().UTC(),
	}, issues, nil
}

func (s *InventoryService) parseFile(file domain.UploadedFile, schema string) ([]domain.TransactionRecord, []ingestion.ValidationIssue, error) {
	f, err := os.Open(file.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.EqualFold(filepath.Ext(file.Filename), ".xlsx") {
		reader, err = ingestion.XLSXToCSV(f)
		if err != nil {
			return nil, nil, err
		}
	}

	if schema == SchemaSupply {
		dataset, err := ingestion.ParseSupplyCSV(reader)
		if err != nil {
			return nil, nil, err
		}
		return dataset.Transactions(), dataset.Validate(s.now()), nil
	}

	records, err := ingestion.ParseTransactionsCSV(reader)
	if err != nil {
		return nil, nil, err
	}
	return records, nil, nil
}

func (s *InventoryService) archiveFiles(ctx context.Context, files []domain.UploadedFile) {
	if s.archive == nil {
		return
	}

	prefix := s.now().UTC().Format("2006-01-02")
	for _, file := range files {
		data, err := os.ReadFile(file.Path)
		if err != nil {
			log.Warn().Err(err).Str("filename", file.Filename).Msg("failed to read upload for archiving")
			continue
		}
		key := fmt.Sprintf("uploads/%s/%s", prefix, file.Filename)
		if err := s.archive.UploadObject(ctx, key, data); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to archive upload")
		}
	}
}

// Configure replaces the engine's full configuration in one call.
func (s *InventoryService) Configure(ctx context.Context, records []domain.TransactionRecord, leadTimes map[string]int, serviceLevel float64, reviewPeriodDays int) error {
	if err := s.engine.Configure(records, leadTimes, serviceLevel, reviewPeriodDays); err != nil {
		return err
	}

	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("recommendation cache invalidation failed")
	}

	return nil
}

// SetLeadTime upserts one item's lead time and drops cached recommendations.
func (s *InventoryService) SetLeadTime(ctx context.Context, itemID string, days int) error {
	if err := s.engine.SetLeadTime(itemID, days); err != nil {
		return err
	}

	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("recommendation cache invalidation failed")
	}

	return nil
}

// MonthlyUsage returns per-(month, item) aggregates.
func (s *InventoryService) MonthlyUsage(ctx context.Context, filter domain.AnalysisFilter) ([]domain.MonthlyAggregate, error) {
	return s.engine.MonthlyUsage(filter)
}

// UsageRange returns per-item range statistics.
func (s *InventoryService) UsageRange(ctx context.Context, filter domain.AnalysisFilter) (map[string]domain.UsageRangeStats, error) {
	return s.engine.UsageRange(filter)
}

// Seasonality returns per-item seasonality profiles.
func (s *InventoryService) Seasonality(ctx context.Context, filter domain.AnalysisFilter) (map[string]domain.SeasonalityProfile, error) {
	return s.engine.Seasonality(filter)
}

// PARLevels returns per-item PAR levels evaluated in the current month.
func (s *InventoryService) PARLevels(ctx context.Context, filter domain.AnalysisFilter) (map[string]domain.PARLevelResult, error) {
	return s.engine.PARLevels(filter, s.now().Month())
}

// Recommendations returns per-item stock recommendations evaluated in the
// current month, consulting the cache first.
func (s *InventoryService) Recommendations(ctx context.Context, filter domain.AnalysisFilter, currentStock map[string]float64) (map[string]domain.RecommendationResult, error) {
	month := s.now().Month()

	if results, ok, err := s.cache.Get(ctx, filter, currentStock, month); err == nil && ok {
		return results, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("recommendation cache get failed")
	}

	results, err := s.engine.Recommendations(filter, currentStock, month)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, filter, currentStock, month, results); err != nil {
		log.Warn().Err(err).Msg("recommendation cache set failed")
	}

	return results, nil
}
