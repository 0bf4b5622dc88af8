// Package cache provides Redis caching utilities for the client.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"toolbox/internal/observability"

	"github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"
)

type metricsHook struct {
	rec observability.Recorder
}

func (h metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			h.rec.RecordRedisError(cmd.Name())
		}
		return err
	}
}

func (h metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			h.rec.RecordRedisError("pipeline")
		}
		return err
	}
}

// NewClient builds a Redis client from a REDIS_URL-like string: either a plain
// host:port or a redis:// / rediss:// URL. Maintenance notifications are
// disabled so servers without the subcommand don't log handshake errors.
func NewClient(raw string, rec observability.Recorder) (*redis.Client, error) {
	if raw == "" {
		raw = "localhost:6379"
	}

	var opts *redis.Options
	if strings.Contains(raw, "://") {
		parsed, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL %q: %w", raw, err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: raw}
	}
	opts.MaintNotificationsConfig = &maintnotifications.Config{Mode: maintnotifications.ModeDisabled}

	if rec == nil {
		rec = observability.NopRecorder{}
	}
	client := redis.NewClient(opts)
	client.AddHook(metricsHook{rec: rec})
	return client, nil
}

// Ping checks connectivity with a short timeout.
func Ping(ctx context.Context, client *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err()
}
