package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hospitalops/parlogic/internal/config"
	"github.com/hospitalops/parlogic/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	recommendationKeyPrefix = "parlogic:recommendations"
	recommendationScanBatch = 100
)

// RecommendationCache caches recommendation query results. Entries key on
// the full query shape (filter, stock levels, evaluation month) because
// recommendations during an item's peak month differ from the rest of the
// year. Invalidation happens on every data or lead-time write.
type RecommendationCache interface {
	Get(ctx context.Context, filter domain.AnalysisFilter, stock map[string]float64, month time.Month) (map[string]domain.RecommendationResult, bool, error)
	Set(ctx context.Context, filter domain.AnalysisFilter, stock map[string]float64, month time.Month, results map[string]domain.RecommendationResult) error
	InvalidateAll(ctx context.Context) error
}

type redisRecommendationCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopRecommendationCache struct{}

// NewRecommendationCache returns a redis-backed cache when caching is
// enabled, otherwise a noop implementation.
func NewRecommendationCache(cfg config.CacheConfig) (RecommendationCache, error) {
	if !cfg.Enabled {
		return &noopRecommendationCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisRecommendationCache{client: client, ttl: ttl}, nil
}

func NewNoopRecommendationCache() RecommendationCache {
	return &noopRecommendationCache{}
}

func (c *redisRecommendationCache) Get(ctx context.Context, filter domain.AnalysisFilter, stock map[string]float64, month time.Month) (map[string]domain.RecommendationResult, bool, error) {
	payload, err := c.client.Get(ctx, buildRecommendationKey(filter, stock, month)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var results map[string]domain.RecommendationResult
	if err := json.Unmarshal(payload, &results); err != nil {
		return nil, false, fmt.Errorf("decode recommendation cache: %w", err)
	}

	return results, true, nil
}

func (c *redisRecommendationCache) Set(ctx context.Context, filter domain.AnalysisFilter, stock map[string]float64, month time.Month, results map[string]domain.RecommendationResult) error {
	payload, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encode recommendation cache: %w", err)
	}

	if err := c.client.Set(ctx, buildRecommendationKey(filter, stock, month), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisRecommendationCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, recommendationKeyPrefix, recommendationScanBatch)
}

func (n *noopRecommendationCache) Get(ctx context.Context, filter domain.AnalysisFilter, stock map[string]float64, month time.Month) (map[string]domain.RecommendationResult, bool, error) {
	return nil, false, nil
}

func (n *noopRecommendationCache) Set(ctx context.Context, filter domain.AnalysisFilter, stock map[string]float64, month time.Month, results map[string]domain.RecommendationResult) error {
	return nil
}

func (n *noopRecommendationCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildRecommendationKey(filter domain.AnalysisFilter, stock map[string]float64, month time.Month) string {
	parts := []string{fmt.Sprintf("month=%d", int(month))}

	if filter.ItemID != "" {
		parts = append(parts, "item="+filter.ItemID)
	}
	if !filter.StartDate.IsZero() {
		parts = append(parts, "start="+filter.StartDate.Format("2006-01-02"))
	}
	if !filter.EndDate.IsZero() {
		parts = append(parts, "end="+filter.EndDate.Format("2006-01-02"))
	}

	if len(stock) > 0 {
		items := make([]string, 0, len(stock))
		for item := range stock {
			items = append(items, item)
		}
		sort.Strings(items)
		for _, item := range items {
			parts = append(parts, fmt.Sprintf("stock.%s=%.4f", item, stock[item]))
		}
	}

	sum := sha1.Sum([]byte(strings.Join(parts, "|")))

	return fmt.Sprintf("%s:%s", recommendationKeyPrefix, hex.EncodeToString(sum[:]))
}
