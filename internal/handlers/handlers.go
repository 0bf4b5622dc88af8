// Package handlers serves the dev API's operational endpoints.
package handlers

import (
	"context"
	"time"

	"toolbox/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const healthTTL = 5 * time.Second

// RedisClient is the minimal interface the handlers expect.
type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error
}

// Handlers holds the dependencies of the operational endpoints. Redis is
// optional.
type Handlers struct {
	Redis   RedisClient
	Service string
	log     *observability.APILogger
}

// New returns handlers reporting as service.
func New(service string, rc RedisClient) *Handlers {
	return &Handlers{Redis: rc, Service: service, log: observability.NewAPILogger("handlers", nil)}
}

func (h *Handlers) healthKey() string {
	return "health:" + h.Service
}

// Health reports liveness. The body is cached in Redis for a few seconds.
func (h *Handlers) Health(c *fiber.Ctx) error {
	ctx := c.UserContext()
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	if h.Redis != nil {
		if cached, err := h.Redis.Get(ctx, h.healthKey()); err == nil {
			return c.SendString(cached)
		}
	}

	body, err := c.App().Config().JSONEncoder(fiber.Map{"status": "ok", "service": h.Service})
	if err != nil {
		return err
	}
	if h.Redis != nil {
		if err := h.Redis.Set(ctx, h.healthKey(), string(body), healthTTL); err != nil && h.log != nil {
			h.log.LogError(ctx, "SET", h.healthKey(), err)
		}
	}
	return c.Send(body)
}

// Ping answers pong.
func (h *Handlers) Ping(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "pong"})
}

// RedisAdapter is a thin adapter around *redis.Client that implements
// RedisClient.
type RedisAdapter struct {
	Raw *redis.Client
}

// NewRedisAdapter wraps rawClient.
func NewRedisAdapter(rawClient *redis.Client) *RedisAdapter {
	return &RedisAdapter{Raw: rawClient}
}

func (a *RedisAdapter) Get(ctx context.Context, key string) (string, error) {
	return a.Raw.Get(ctx, key).Result()
}

func (a *RedisAdapter) Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error {
	return a.Raw.Set(ctx, key, val, ttl).Err()
}

var _ RedisClient = (*RedisAdapter)(nil)
