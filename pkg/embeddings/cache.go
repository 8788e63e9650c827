package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/medifusion/platform/pkg/common/logger"
	"github.com/redis/go-redis/v9"
)

// Cache stores embedding vectors in Redis keyed by the SHA-256 of the
// signature text. A nil *Cache is valid and disables caching.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context, text string) ([]float64, bool) {
	if c == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, cacheKey(text)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.WithError(err).Debug("embedding cache read failed")
		}
		return nil, false
	}

	var vec []float64
	if err := json.Unmarshal(raw, &vec); err != nil || len(vec) == 0 {
		return nil, false
	}
	return vec, true
}

func (c *Cache) Set(ctx context.Context, text string, vec []float64) {
	if c == nil || len(vec) == 0 {
		return
	}

	raw, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(text), raw, c.ttl).Err(); err != nil {
		logger.Log.WithError(err).Debug("embedding cache write failed")
	}
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "embedding:" + hex.EncodeToString(sum[:])
}
