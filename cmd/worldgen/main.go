// Command worldgen generates a trade world and writes its wire payload. With
// -serve it runs the generation server; with -inspect it reads a payload
// back and prints each territory's sea connections.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/tradewinds/internal/api"
	"github.com/talgya/tradewinds/internal/config"
	"github.com/talgya/tradewinds/internal/logging"
	"github.com/talgya/tradewinds/internal/payload"
	"github.com/talgya/tradewinds/internal/persistence"
	"github.com/talgya/tradewinds/internal/pipeline"
	"github.com/talgya/tradewinds/internal/territory"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	seed := flag.Int64("seed", 0, "world seed (0 picks one)")
	width := flag.Float64("width", cfg.Server.MapWidth, "map width in pixels")
	height := flag.Float64("height", cfg.Server.MapHeight, "map height in pixels")
	out := flag.String("out", "world.twp", "payload output file")
	serve := flag.Bool("serve", false, "run the generation server")
	inspectPath := flag.String("inspect", "", "decode a payload file and print its trade routes")
	flag.Float64Var(&cfg.Generation.TileSize, "tile-size", cfg.Generation.TileSize, "hex circumradius in pixels")
	flag.Float64Var(&cfg.Generation.WaterThreshold, "water", cfg.Generation.WaterThreshold, "water threshold")
	flag.Float64Var(&cfg.Generation.MountainThreshold, "mountain", cfg.Generation.MountainThreshold, "mountain threshold")
	flag.IntVar(&cfg.Generation.TerritorySize, "territory-size", cfg.Generation.TerritorySize, "target tiles per territory")
	flag.StringVar(&cfg.Generation.JitterNoise, "noise", cfg.Generation.JitterNoise, "color jitter noise (simplex|perlin)")
	flag.StringVar(&cfg.Server.DBPath, "db", cfg.Server.DBPath, "run history database (empty disables)")
	flag.IntVar(&cfg.Server.Port, "port", cfg.Server.Port, "server port")
	flag.StringVar(&cfg.Server.LogLevel, "log-level", cfg.Server.LogLevel, "debug|info|warn|error")
	flag.Parse()

	logging.Setup(cfg.Server.LogLevel)

	if *inspectPath != "" {
		if err := inspect(*inspectPath); err != nil {
			slog.Error("inspect failed", "path", *inspectPath, "error", err)
			os.Exit(1)
		}
		return
	}

	var db *persistence.DB
	if cfg.Server.DBPath != "" {
		os.MkdirAll(filepath.Dir(cfg.Server.DBPath), 0755)
		db, err = persistence.Open(cfg.Server.DBPath)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		slog.Info("database opened", "path", cfg.Server.DBPath)
	}

	if *serve {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		srv := api.NewServer(cfg, db)
		fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Server.Port)
		if err := srv.ListenAndServe(ctx); err != nil {
			slog.Error("server stopped", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := generate(cfg, db, *seed, *width, *height, *out); err != nil {
		slog.Error("generation failed", "error", err)
		if errors.Is(err, config.ErrInvalidConfig) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func generate(cfg config.Config, db *persistence.DB, seed int64, width, height float64, out string) error {
	gen := pipeline.New()
	if db != nil {
		expected, err := db.ExpectedDurations()
		if err != nil {
			slog.Warn("stage history unavailable", "error", err)
		}
		gen.Expected = expected
	}

	progress := make(chan pipeline.Event, 64)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range progress {
			switch ev.Phase {
			case pipeline.PhaseStart:
				slog.Info("stage", "name", ev.Stage, "expected", secs(ev.Value))
			case pipeline.PhaseFinished:
				slog.Info("stage done", "name", ev.Stage, "took", secs(ev.Value))
			case pipeline.PhaseError:
				slog.Error("stage failed", "name", ev.Stage, "error", ev.Err)
			}
		}
	}()

	req := pipeline.Request{
		RunID:  uuid.New(),
		Seed:   seed,
		Width:  width,
		Height: height,
		Config: cfg.Generation,
	}
	p, w, err := gen.Generate(req, progress)
	wg.Wait()
	if err != nil {
		return err
	}

	data, err := payload.Marshal(p)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(out); dir != "." {
		os.MkdirAll(dir, 0755)
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}

	stats := p.Stats()
	if db != nil {
		run := persistence.Run{
			ID:          req.RunID.String(),
			Seed:        p.Seed,
			Width:       width,
			Height:      height,
			Tiles:       stats.Tiles,
			Territories: stats.Territories,
			Harbors:     stats.Harbors,
			Routes:      stats.Routes,
		}
		if err := db.SaveRun(run, cfg.Generation, p.ExecutionTimes); err != nil {
			slog.Warn("run not recorded", "error", err)
		}
	}

	fmt.Printf("\nWorld %d: %s tiles (%s land), %s territories, %s harbors, %s routes.\n",
		p.Seed,
		humanize.Comma(int64(stats.Tiles)),
		humanize.Comma(int64(stats.Land)),
		humanize.Comma(int64(stats.Territories)),
		humanize.Comma(int64(stats.Harbors)),
		humanize.Comma(int64(stats.Routes)),
	)
	fmt.Printf("Payload: %s (%s) in %s\n", out, humanize.Bytes(uint64(len(data))),
		secs(p.ExecutionTimes[pipeline.StageTotal]))
	slog.Debug("world", "summary", w.String())
	return nil
}

// inspect decodes a payload file and prints, per territory, the shortest sea
// route to every territory it can reach.
func inspect(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	p, err := payload.Unmarshal(data)
	if err != nil {
		return err
	}
	w, err := payload.Decode(p)
	if err != nil {
		return err
	}

	fmt.Printf("World %d: %s\n", w.Seed, w)
	for _, t := range w.Territories {
		routes := territory.ShortestRoutes(w, t)
		fmt.Printf("territory %d: %d tiles, %d harbors, %d resources, reaches %d\n",
			t.ID, len(t.Tiles), len(t.Harbors), len(t.Resources), len(routes))
		targets := make([]int, 0, len(routes))
		for id := range routes {
			targets = append(targets, id)
		}
		slices.Sort(targets)
		for _, id := range targets {
			c := routes[id]
			fmt.Printf("  -> %d via harbor %d to %d (%d tiles)\n", id, c.From, c.To, c.Length)
		}
	}
	return nil
}

func secs(v float64) time.Duration {
	return time.Duration(v * float64(time.Second)).Round(time.Millisecond)
}
