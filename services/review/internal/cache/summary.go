// Package cache holds the Redis-backed rating summary cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/fitvibe/internal/domain"
	apperrors "github.com/utafrali/fitvibe/pkg/errors"
)

const keyPrefix = "review:summary:"

// SummaryCache stores per-product rating summaries in Redis.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSummaryCache creates a new Redis-backed summary cache.
func NewSummaryCache(client *redis.Client, ttl time.Duration) *SummaryCache {
	return &SummaryCache{
		client: client,
		ttl:    ttl,
	}
}

// Get returns the cached summary of a product. A miss is reported as a
// not-found error.
func (c *SummaryCache) Get(ctx context.Context, productID string) (*domain.RatingSummary, error) {
	data, err := c.client.Get(ctx, keyPrefix+productID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("rating summary", productID)
		}
		return nil, fmt.Errorf("redis get summary: %w", err)
	}

	var summary domain.RatingSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}
	return &summary, nil
}

// Set stores the summary of a product with the configured TTL.
func (c *SummaryCache) Set(ctx context.Context, productID string, summary *domain.RatingSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	if err := c.client.Set(ctx, keyPrefix+productID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set summary: %w", err)
	}
	return nil
}

// Invalidate drops the cached summary of a product.
func (c *SummaryCache) Invalidate(ctx context.Context, productID string) error {
	if err := c.client.Del(ctx, keyPrefix+productID).Err(); err != nil {
		return fmt.Errorf("redis del summary: %w", err)
	}
	return nil
}
