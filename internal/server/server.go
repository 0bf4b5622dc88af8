// Package server runs the in-memory ToolBox backend as a standalone dev API
// with health, ping and metrics endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"toolbox/internal/apitest"
	"toolbox/internal/cache"
	"toolbox/internal/handlers"
	"toolbox/internal/observability"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

// Server is a running dev API.
type Server struct {
	cfg      Config
	backend  *apitest.Backend
	registry *prometheus.Registry
	redis    *redis.Client
	log      *observability.Logger
}

// package-level constructor hook so tests can swap the Redis client.
var newRedis = func(raw string) (*redis.Client, error) {
	return cache.NewClient(raw, nil)
}

// New builds the dev API: middleware, the fake backend's routes, the
// operational endpoints and seed data.
func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Server{cfg: cfg, registry: prometheus.NewRegistry(), log: observability.GlobalLogger}
	s.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var health handlers.RedisClient
	if cfg.RedisURL != "" {
		rc, err := newRedis(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		if err := cache.Ping(context.Background(), rc); err != nil {
			s.log.Warn("Redis unreachable; health responses will not be cached", "error", err)
		}
		s.redis = rc
		health = handlers.NewRedisAdapter(rc)
	}

	prom := fiberprometheus.NewWithRegistry(s.registry, cfg.Service, "http", "", nil)
	s.backend = apitest.New(
		apitest.WithSecret(cfg.JWTSecret),
		apitest.WithMiddleware(
			recover.New(),
			requestid.New(),
			prom.Middleware,
			logger.New(logger.Config{
				Format: `{"time":"${time}","request_id":"${locals:requestid}","method":"${method}","path":"${path}","status":${status},"latency":"${latency}"}` + "\n",
			}),
		),
	)

	h := handlers.New(cfg.Service, health)
	app := s.backend.App()
	app.Get("/health", h.Health)
	app.Get("/ping", h.Ping)
	app.Get("/metrics", adaptor.HTTPHandler(observability.Handler(s.registry)))

	if cfg.SeedUsers > 0 {
		users, err := s.backend.Seed(cfg.Seed, cfg.SeedUsers, cfg.SeedPosts)
		if err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
		names := make([]string, 0, len(users))
		for _, u := range users {
			names = append(names, u.Username)
		}
		s.log.Info("Seeded demo data", "users", names, "posts", cfg.SeedPosts, "password", apitest.DemoPassword)
	}
	return s, nil
}

// Backend returns the fake backend behind the server.
func (s *Server) Backend() *apitest.Backend {
	return s.backend
}

// Registry returns the Prometheus registry scraped at /metrics.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	return s.backend.Serve(ln)
}

// Shutdown stops accepting requests and releases Redis.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.backend.Shutdown(ctx)
	if s.redis != nil {
		err = errors.Join(err, s.redis.Close())
	}
	return err
}

// Run listens on the configured port and blocks until SIGINT or SIGTERM.
func (s *Server) Run() error {
	ln, err := net.Listen("tcp", ":"+s.cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	return s.RunWithQuit(ln, quit)
}

// RunWithQuit behaves like Run but serves ln and stops when quit receives,
// which lets tests drive shutdown.
func (s *Server) RunWithQuit(ln net.Listener, quit <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Dev API starting", "addr", ln.Addr().String())
		errCh <- s.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	s.log.Info("Shutting down dev API...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
