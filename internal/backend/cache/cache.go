// Package cache provides a record cache decorator around a fetcher, backed
// by a key-value store. Caching only memoizes the upstream fetch; bindings
// are still resolved fresh per request.
package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/factgrid/factserve/internal/db"
	"github.com/factgrid/factserve/internal/facts"
)

const keyPrefix = "factserve:record_cache:"

// store is the consumer interface for the record cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedFetcher caches backend records in a key-value store with a TTL.
type CachedFetcher struct {
	inner      facts.Fetcher
	store      store
	service    string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator for one service's fetcher.
// cacheTotal is a counter vec with labels "service" and "result"
// ("hit"/"miss"), passed explicitly.
func New(
	inner facts.Fetcher,
	s store,
	service string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedFetcher {
	return &CachedFetcher{
		inner:      inner,
		store:      s,
		service:    service,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

var _ facts.Fetcher = (*CachedFetcher)(nil)

// Fetch returns a cached record or calls the inner fetcher. Cache failures
// are logged and degrade to a plain fetch, never to a request failure.
func (c *CachedFetcher) Fetch(ctx context.Context, constants map[string]any) (facts.Record, error) {
	key, keyErr := c.cacheKey(constants)
	if keyErr != nil {
		c.logger.Warn("Failed to build cache key", zap.Error(keyErr))
		return c.inner.Fetch(ctx, constants)
	}

	if rec, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return rec, nil
	}
	c.incCache("miss")

	rec, err := c.inner.Fetch(ctx, constants)
	if err != nil {
		return nil, err
	}

	c.putToCache(ctx, key, rec)
	return rec, nil
}

func (c *CachedFetcher) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(c.service, result).Inc()
	}
}

// cacheKey hashes the canonical JSON of the constants. encoding/json sorts
// map keys, so equal constant maps always produce the same key.
func (c *CachedFetcher) cacheKey(constants map[string]any) (string, error) {
	data, err := json.Marshal(constants)
	if err != nil {
		return "", fmt.Errorf("marshal constants: %w", err)
	}
	h := sha256.Sum256(data)
	return keyPrefix + c.service + ":" + hex.EncodeToString(h[:]), nil
}

func (c *CachedFetcher) getFromCache(ctx context.Context, key string) (facts.Record, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached record", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	rec, err := decodeRecord(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached record", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return rec, true
}

func (c *CachedFetcher) putToCache(ctx context.Context, key string, rec facts.Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		c.logger.Warn("Failed to encode record for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache record", zap.String("key", key), zap.Error(err))
	}
}

// decodeRecord restores a cached record, rebuilding facts.Number values so
// the numeric serialization contract survives the cache round trip.
func decodeRecord(data []byte) (facts.Record, error) {
	var raw map[string]any
	d := json.NewDecoder(bytes.NewReader(data))
	d.UseNumber()
	if err := d.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode cached record: %w", err)
	}

	rec := make(facts.Record, len(raw))
	for k, v := range raw {
		rec[k] = restoreValue(v)
	}
	return rec, nil
}

func restoreValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return t.String()
		}
		return facts.Number(f)
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = restoreValue(e)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = restoreValue(e)
		}
		return s
	default:
		return v
	}
}
