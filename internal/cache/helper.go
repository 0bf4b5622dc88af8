package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"toolbox/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Store is a JSON cache-aside layer over Redis. A nil *Store, or one without a
// client, behaves as an always-miss cache.
type Store struct {
	client *redis.Client
	name   string
	prefix string
	rec    observability.Recorder
}

// NewStore wraps client. name labels cache metrics; prefix is prepended to
// every key.
func NewStore(client *redis.Client, name, prefix string, rec observability.Recorder) *Store {
	if rec == nil {
		rec = observability.NopRecorder{}
	}
	return &Store{client: client, name: name, prefix: prefix, rec: rec}
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if s == nil || s.client == nil {
		return false, nil
	}
	ctx, span := observability.TraceRedisOperation(ctx, "get")
	b, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.EndSpan(span, nil)
		s.rec.RecordCacheMiss(s.name)
		return false, nil
	}
	observability.EndSpan(span, err)
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	s.rec.RecordCacheHit(s.name)
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func (s *Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if s == nil || s.client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, span := observability.TraceRedisOperation(ctx, "set")
	err = s.client.Set(ctx, s.key(key), b, ttl).Err()
	observability.EndSpan(span, err)
	return err
}

// Delete removes keys.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if s == nil || s.client == nil || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	return s.client.Del(ctx, full...).Err()
}

// Aside tries Redis first; on a miss it calls fetch, which must populate
// dest, then stores dest with ttl. Cache read and write failures are logged
// and never fail the call.
func (s *Store) Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func(ctx context.Context) error) error {
	found, err := s.GetJSON(ctx, key, dest)
	if err != nil {
		observability.GlobalLogger.WarnContext(ctx, "cache read failed",
			slog.String("cache", s.name),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	if found {
		return nil
	}

	if err := fetch(ctx); err != nil {
		return err
	}

	if err := s.SetJSON(ctx, key, dest, ttl); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "cache write failed",
			slog.String("cache", s.name),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	return nil
}
