// Command mapserver runs the map generation HTTP service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/talgya/zoneforge/internal/api"
	"github.com/talgya/zoneforge/internal/persistence"
)

func main() {
	var level slog.Level
	if err := level.UnmarshalText([]byte(envOrDefault("ZONEFORGE_LOG_LEVEL", "info"))); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	dbPath := envOrDefault("ZONEFORGE_DB", "data/zoneforge.db")
	apiPort := envIntOrDefault("ZONEFORGE_PORT", 8080)
	workers := envIntOrDefault("ZONEFORGE_WORKERS", runtime.NumCPU())
	templates := envOrDefault("ZONEFORGE_TEMPLATES", "templates")

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(dbPath), 0755)
	db, err := persistence.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", dbPath)

	cat, err := db.LoadCatalog()
	if err != nil {
		slog.Error("failed to load unit catalog", "error", err)
		os.Exit(1)
	}
	slog.Info("unit catalog loaded", "units", len(cat.Units()))

	// ── HTTP API ──────────────────────────────────────────────────────
	adminKey := os.Getenv("ZONEFORGE_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("ZONEFORGE_ADMIN_KEY not set, map submission is disabled")
	}

	jobs := api.NewJobManager(cat, db, workers)
	jobs.Retries = envIntOrDefault("ZONEFORGE_RETRIES", api.DefaultRetries)
	apiServer := &api.Server{
		Jobs:       jobs,
		DB:         db,
		Templates:  templates,
		Port:       apiPort,
		AdminKey:   adminKey,
		SubmitRate: envIntOrDefault("ZONEFORGE_SUBMIT_RATE", 60),
	}
	srv := apiServer.Start()

	fmt.Printf("API: http://localhost:%d/api/v1/status\n", apiPort)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
	apiServer.Close()

	// Running generations finish and are archived before the database closes.
	jobs.Wait()
	fmt.Println("Map server stopped.")
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
