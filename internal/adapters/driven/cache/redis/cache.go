// Package redis provides a RetrievalCache shared across processes through
// Redis. Entries are JSON-encoded chunk lists stored with a TTL.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
	"github.com/custodia-labs/nephra/internal/logger"
)

// Ensure Cache implements the interface.
var _ driven.RetrievalCache = (*Cache)(nil)

// Defaults.
const (
	DefaultPrefix = "nephra:search:"
	DefaultTTL    = time.Hour
	dialTimeout   = 5 * time.Second
	scanCount     = 100
)

// Config configures the cache.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// Cache stores search results in Redis.
type Cache struct {
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, cfg Config) (*Cache, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("%w: redis address is required", domain.ErrCacheUnavailable)
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%w: redis ping: %w", domain.ErrCacheUnavailable, err)
	}

	return NewWithClient(rdb, cfg.Prefix, cfg.TTL), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(rdb goredis.UniversalClient, prefix string, ttl time.Duration) *Cache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Get returns the cached chunks. Redis errors are logged and reported as a miss.
func (c *Cache) Get(ctx context.Context, key string) ([]domain.Chunk, bool) {
	raw, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false
	}
	if err != nil {
		logger.Warn("redis cache get failed: %v", err)
		return nil, false
	}

	chunks, err := decode(raw)
	if err != nil {
		logger.Warn("redis cache entry %q unreadable: %v", key, err)
		return nil, false
	}
	return chunks, true
}

// Set stores chunks under key with the cache TTL.
func (c *Cache) Set(ctx context.Context, key string, chunks []domain.Chunk) error {
	raw, err := encode(chunks)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := c.rdb.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCacheUnavailable, err)
	}
	return nil
}

// Clear deletes every key under the cache prefix.
func (c *Cache) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, c.prefix+"*", scanCount).Result()
		if err != nil {
			return fmt.Errorf("%w: scan: %w", domain.ErrCacheUnavailable, err)
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("%w: del: %w", domain.ErrCacheUnavailable, err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

// cachedChunk is the stored form. Embeddings are not cached.
type cachedChunk struct {
	ID          string         `json:"id"`
	DocumentID  string         `json:"documentId,omitempty"`
	Content     string         `json:"content"`
	Source      string         `json:"source,omitempty"`
	ContentType string         `json:"contentType,omitempty"`
	Position    int            `json:"position"`
	Score       float64        `json:"score"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func encode(chunks []domain.Chunk) ([]byte, error) {
	out := make([]cachedChunk, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, cachedChunk{
			ID:          c.ID,
			DocumentID:  c.DocumentID,
			Content:     c.Content,
			Source:      c.Source,
			ContentType: string(c.ContentType),
			Position:    c.Position,
			Score:       c.Score,
			Metadata:    c.Metadata,
		})
	}
	return json.Marshal(out)
}

func decode(raw []byte) ([]domain.Chunk, error) {
	var in []cachedChunk
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, err
	}
	chunks := make([]domain.Chunk, 0, len(in))
	for _, c := range in {
		chunks = append(chunks, domain.Chunk{
			ID:          c.ID,
			DocumentID:  c.DocumentID,
			Content:     c.Content,
			Source:      c.Source,
			ContentType: domain.ContentType(c.ContentType),
			Position:    c.Position,
			Score:       c.Score,
			Metadata:    c.Metadata,
		})
	}
	return chunks, nil
}
