// Command devapi serves an in-memory Engineering ToolBox backend for local
// demos of the toolbox CLI.
package main

import (
	"log"

	"toolbox/internal/observability"
	"toolbox/internal/server"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := server.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	observability.SetLevel(cfg.LogLevel)

	srv, err := server.New(*cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	log.Printf("Dev API listening on port %s...", cfg.Port)
	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
