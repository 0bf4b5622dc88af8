// Command toolbox is a terminal client for the Engineering ToolBox: posts,
// comments, chats, profiles and the formula calculators.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"toolbox/internal/config"
	"toolbox/internal/observability"

	"github.com/joho/godotenv"
)

const serviceVersion = "1.0.0"

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	observability.SetLevel(cfg.LogLevel)

	shutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "toolbox-cli",
		ServiceVersion: serviceVersion,
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, stdio{in: os.Stdin, out: os.Stdout, errOut: os.Stderr}, os.Args[1:])
	stop()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := shutdown(flushCtx); err != nil {
		log.Printf("Error shutting down tracer: %v", err)
	}
	cancel()
	os.Exit(code)
}

// run executes one invocation and returns the process exit status.
func run(ctx context.Context, cfg *config.Config, s stdio, args []string) int {
	a, err := newApp(ctx, cfg, s)
	if err != nil {
		fmt.Fprintf(s.errOut, "Error: %v\n", err)
		return 1
	}
	defer a.Close()

	if err := a.run(ctx, args); err != nil {
		fmt.Fprintf(s.errOut, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}
	return 0
}
