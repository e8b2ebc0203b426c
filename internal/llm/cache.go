package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atendezap/atendezap/pkg/logging"
)

// CachingClient memoizes identical prompts in redis within a TTL window.
// Cache failures are never fatal; the wrapped client is always the source of
// truth.
type CachingClient struct {
	inner  Client
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewCachingClient wraps a client with redis memoization.
func NewCachingClient(inner Client, redisClient *redis.Client, ttl time.Duration, logger *logging.Logger) *CachingClient {
	if inner == nil {
		panic("llm: inner client cannot be nil")
	}
	if redisClient == nil {
		panic("llm: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachingClient{inner: inner, redis: redisClient, ttl: ttl, logger: logger}
}

// Complete serves identical requests from cache within the TTL window.
func (c *CachingClient) Complete(ctx context.Context, req Request) (Response, error) {
	if req.SkipCache {
		return c.inner.Complete(ctx, req)
	}

	key := cacheKey(req)
	if data, err := c.redis.Get(ctx, key).Bytes(); err == nil {
		var resp Response
		if err := json.Unmarshal(data, &resp); err == nil {
			return resp, nil
		}
		_ = c.redis.Del(ctx, key).Err()
	} else if err != redis.Nil {
		c.logger.Warn("llm cache read failed", "error", err)
	}

	resp, err := c.inner.Complete(ctx, req)
	if err != nil {
		return Response{}, err
	}

	if data, err := json.Marshal(resp); err == nil {
		if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("llm cache write failed", "error", err)
		}
	}
	return resp, nil
}

func cacheKey(req Request) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%.2f|%.2f|", req.Model, req.MaxTokens, req.Temperature, req.TopP)
	for _, s := range req.System {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	for _, m := range req.Messages {
		h.Write([]byte(m.Role))
		h.Write([]byte{0})
		h.Write([]byte(m.Content))
		h.Write([]byte{0})
	}
	return "llm_cache:" + hex.EncodeToString(h.Sum(nil))
}
