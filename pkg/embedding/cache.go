package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/auditkit/papertrail/pkg/metrics"
	"github.com/auditkit/papertrail/pkg/platform/redis"
)

const cacheKeyPrefix = "papertrail:embedding:"

// CachedProvider memoizes embeddings in Redis. Comparison strings repeat
// heavily across match runs over the same document corpus, and the backing
// model call dominates match latency.
type CachedProvider struct {
	inner  Provider
	client *redis.Client
	ttl    time.Duration
	logger ectologger.Logger
}

// NewCachedProvider wraps a provider with a Redis cache.
func NewCachedProvider(inner Provider, client *redis.Client, ttl time.Duration, logger ectologger.Logger) *CachedProvider {
	return &CachedProvider{inner: inner, client: client, ttl: ttl, logger: logger}
}

// Embed returns the cached vector when present, otherwise delegates and
// stores the result. Cache failures degrade to the inner provider.
func (p *CachedProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	key := cacheKey(text)

	cached, err := p.client.Get(ctx, key)
	if err == nil {
		var vector []float64
		if err := json.Unmarshal([]byte(cached), &vector); err == nil {
			metrics.EmbeddingCacheHits.WithLabelValues("hit").Inc()
			return vector, nil
		}
		p.logger.WithContext(ctx).WithError(err).Warn("Discarding corrupt cached embedding")
		_ = p.client.Del(ctx, key)
	} else if !redis.IsNil(err) {
		p.logger.WithContext(ctx).WithError(err).Warn("Embedding cache read failed")
	}

	metrics.EmbeddingCacheHits.WithLabelValues("miss").Inc()
	vector, err := p.inner.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding backend: %w", err)
	}

	encoded, err := json.Marshal(vector)
	if err == nil {
		if err := p.client.Set(ctx, key, string(encoded), p.ttl); err != nil {
			p.logger.WithContext(ctx).WithError(err).Warn("Embedding cache write failed")
		}
	}

	return vector, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
