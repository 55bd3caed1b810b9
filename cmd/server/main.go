package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Smallzoamz/Bonchon-Studio/internal/infrastructure/config"
	"github.com/Smallzoamz/Bonchon-Studio/internal/infrastructure/server"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "TOML config file (overrides "+config.FileEnv+")")
	port := flag.String("port", "", "Server port")
	host := flag.String("host", "", "Server bind address")
	dataDir := flag.String("data-dir", "", "Directory for the ledger, settings and catalog cache")
	downloadDir := flag.String("download-dir", "", "Default install root")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dev := flag.Bool("dev", false, "Development mode")
	grace := flag.Duration("grace", 30*time.Second, "Shutdown grace period for running jobs")
	flag.Parse()

	if *configPath != "" {
		os.Setenv(config.FileEnv, *configPath)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyFlags(cfg, *port, *host, *dataDir, *downloadDir, *logLevel, *dev)

	// Create server
	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		ctx, cancel := context.WithTimeout(context.Background(), *grace)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	}
}

func applyFlags(cfg *config.Config, port, host, dataDir, downloadDir, logLevel string, dev bool) {
	if port != "" {
		cfg.Server.Port = port
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}
	if downloadDir != "" {
		cfg.Storage.DownloadDir = downloadDir
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if dev {
		cfg.Logging.Development = true
	}
}
