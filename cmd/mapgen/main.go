// Command mapgen generates a scenario map from a template and prints its
// preview. With -remote it submits the job to a running mapserver instead.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/zoneforge/internal/api"
	"github.com/talgya/zoneforge/internal/catalog"
	"github.com/talgya/zoneforge/internal/client"
	"github.com/talgya/zoneforge/internal/entropy"
	"github.com/talgya/zoneforge/internal/generator"
	"github.com/talgya/zoneforge/internal/persistence"
	"github.com/talgya/zoneforge/internal/template"
)

func main() {
	var (
		templatePath = flag.String("template", "templates/crossroads.lua", "template file (.lua or .json)")
		size         = flag.Int("size", 72, "map side length in tiles")
		seed         = flag.Int64("seed", 0, "random seed (0 picks one)")
		dbPath       = flag.String("db", "", "archive the map in this SQLite database")
		coloring     = flag.Bool("zones", false, "print the zone coloring instead of the tile preview")
		retries      = flag.Int("retries", api.DefaultRetries, "on failure, retry with the next seeds this many times")
		remote       = flag.String("remote", "", "mapserver base URL; generate there instead of locally")
		logLevel     = flag.String("log-level", envOrDefault("ZONEFORGE_LOG_LEVEL", "info"), "debug, info, warn or error")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(*logLevel),
	}))
	slog.SetDefault(logger)

	if *seed == 0 {
		*seed = entropy.NewSeed()
	}

	if *remote != "" {
		if err := runRemote(*remote, *templatePath, *size, *seed); err != nil {
			slog.Error("remote generation failed", "error", err)
			os.Exit(1)
		}
		return
	}

	tmpl, err := template.LoadFile(*templatePath, *size)
	if err != nil {
		slog.Error("failed to load template", "path", *templatePath, "error", err)
		os.Exit(1)
	}

	var cat catalog.Catalog = catalog.Default()
	var db *persistence.DB
	if *dbPath != "" {
		if dir := filepath.Dir(*dbPath); dir != "." {
			os.MkdirAll(dir, 0755)
		}
		db, err = persistence.Open(*dbPath)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if cat, err = db.LoadCatalog(); err != nil {
			slog.Error("failed to load unit catalog", "error", err)
			os.Exit(1)
		}
	}

	res, err := generate(tmpl, cat, *size, *seed, *retries)
	if err != nil {
		slog.Error("generation failed", "template", tmpl.Name, "error", err)
		os.Exit(1)
	}

	if db != nil {
		id := uuid.NewString()
		if err := db.SaveMap(id, res); err != nil {
			slog.Error("failed to archive map", "error", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "archived as %s\n", id)
	}

	if *coloring {
		fmt.Print(res.Coloring())
	} else {
		fmt.Print(res.ASCII())
	}
}

// generate runs the template, moving on to the next seed after a failed run
// up to retries times.
func generate(tmpl *template.Template, cat catalog.Catalog, size int, seed int64, retries int) (*generator.Result, error) {
	settings := generator.DefaultSettings()
	settings.Size = size

	var errs []error
	for attempt := 0; attempt <= retries; attempt++ {
		settings.Seed = seed + int64(attempt)
		start := time.Now()
		res, err := generator.NewMapGenerator(tmpl, cat, settings).Generate()
		if err == nil {
			slog.Info("map ready",
				"template", tmpl.Name,
				"seed", settings.Seed,
				"tiles", humanize.Comma(int64(size*size)),
				"roads", humanize.Comma(int64(res.Roads)),
				"guards", len(res.Objects),
				"elapsed", time.Since(start).Round(time.Millisecond),
			)
			return res, nil
		}
		slog.Warn("attempt failed", "seed", settings.Seed, "error", err)
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

// runRemote submits the template to a mapserver and prints the preview once
// the job finishes. Names without a path are looked up on the server.
func runRemote(baseURL, templatePath string, size int, seed int64) error {
	c := client.New(baseURL, os.Getenv("ZONEFORGE_ADMIN_KEY"))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := c.WaitReady(ctx); err != nil {
		return err
	}

	req := client.SubmitRequest{Size: size, Seed: seed}
	if ext := filepath.Ext(templatePath); ext == ".json" {
		data, err := os.ReadFile(templatePath)
		if err != nil {
			return fmt.Errorf("read template: %w", err)
		}
		req.Template = json.RawMessage(data)
	} else {
		req.TemplateName = strings.TrimSuffix(filepath.Base(templatePath), ext)
	}

	view, err := c.Submit(req)
	if err != nil {
		return err
	}
	slog.Info("job submitted", "job", view.ID, "template", view.Template, "seed", view.Seed)

	last, err := c.Watch(ctx, view.ID, func(e api.JobEvent) {
		slog.Debug("job event", "status", e.Status, "phase", e.Phase)
	})
	if err != nil {
		return err
	}
	if last.Status != api.JobDone {
		return fmt.Errorf("job %s %s in %s: %s", view.ID, last.Status, last.Phase, last.Error)
	}

	preview, err := c.Preview(view.ID)
	if err != nil {
		return err
	}
	fmt.Print(preview)
	return nil
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
