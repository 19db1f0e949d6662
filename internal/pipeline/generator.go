// Package pipeline runs the world generation stages in dependency order and
// reports their progress.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/talgya/tradewinds/internal/config"
	"github.com/talgya/tradewinds/internal/entropy"
	"github.com/talgya/tradewinds/internal/harbor"
	"github.com/talgya/tradewinds/internal/payload"
	"github.com/talgya/tradewinds/internal/region"
	"github.com/talgya/tradewinds/internal/terrain"
	"github.com/talgya/tradewinds/internal/territory"
	"github.com/talgya/tradewinds/internal/world"
)

// ErrStageFailed is wrapped by the error of a run halted by a stage.
var ErrStageFailed = errors.New("generation stage failed")

// Request describes one generation run.
type Request struct {
	RunID  uuid.UUID
	Seed   int64 // 0 picks a fresh seed
	Width  float64
	Height float64
	Config config.Generation
}

// Generator runs generation requests.
type Generator struct {
	// Workers bounds the parallel stage groups. Zero means runtime.NumCPU().
	Workers int
	// Expected holds the historical duration of each stage.
	Expected map[string]time.Duration
}

// New returns a Generator sized to the machine.
func New() *Generator {
	return &Generator{Workers: runtime.NumCPU()}
}

// Generate validates req and runs every stage. Progress events are queued
// for progress without ever blocking generation, and none are dropped;
// Generate closes progress once every event of the run has been delivered,
// so callers range over it and must not close it themselves. The returned
// payload carries the seed actually used and the measured stage durations.
// A failed stage halts the run.
func (g *Generator) Generate(req Request, progress chan<- Event) (*payload.Payload, *world.World, error) {
	var events *relay
	if progress != nil {
		events = newRelay(progress)
		defer events.close()
	}

	if err := req.Config.Validate(); err != nil {
		return nil, nil, err
	}
	if !(req.Width > 0) || !(req.Height > 0) {
		return nil, nil, fmt.Errorf("%w: map size %vx%v", config.ErrInvalidConfig, req.Width, req.Height)
	}
	if req.RunID == uuid.Nil {
		req.RunID = uuid.New()
	}
	req.Seed = entropy.Resolve(req.Seed)

	workers := g.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	r := &run{
		req:      req,
		expected: g.Expected,
		workers:  workers,
		events:   events,
		times:    make(map[string]float64),
		log:      slog.With("component", "pipeline", "run", req.RunID, "seed", req.Seed),
	}

	r.log.Info("generation started", "width", req.Width, "height", req.Height)
	start := time.Now()
	w, err := r.build()
	if err != nil {
		r.log.Error("generation failed", "error", err)
		return nil, nil, err
	}
	total := time.Since(start)
	r.record(StageTotal, total)
	r.emit(StageTotal, PhaseFinished, total.Seconds(), "")

	var p *payload.Payload
	if err := r.step(StageSerialization, func() error {
		p = payload.Encode(w)
		return nil
	}); err != nil {
		return nil, nil, err
	}
	p.ExecutionTimes = r.snapshot()

	r.log.Info("generation finished",
		"duration", total.Round(time.Millisecond),
		"tiles", len(w.Tiles),
		"territories", len(w.Territories),
		"harbors", len(w.Harbors),
		"routes", r.routes)
	return p, w, nil
}

type run struct {
	req      Request
	expected map[string]time.Duration
	workers  int
	events   *relay
	log      *slog.Logger

	mu    sync.Mutex
	times map[string]float64

	grid       *world.Grid
	world      *world.World
	rng        *rand.Rand
	landmasses [][]*world.Tile
	routes     int
}

func (r *run) build() (*world.World, error) {
	cfg := r.req.Config
	r.rng = entropy.Source(r.req.Seed)

	if err := r.step(StageTileGen, func() error {
		grid, err := world.NewGrid(world.Layout{Width: r.req.Width, Height: r.req.Height, TileSize: cfg.TileSize})
		if err != nil {
			return err
		}
		r.grid = grid
		return nil
	}); err != nil {
		return nil, err
	}

	if err := r.step(StageLinkAdjacent, func() error {
		r.grid.Link()
		r.world = world.NewWorld(r.req.Seed, r.grid)
		return nil
	}); err != nil {
		return nil, err
	}
	w := r.world

	if err := r.step(StageRelaxation, func() error {
		terrain.Seed(w.Tiles, r.rng)
		terrain.Relax(w.Tiles, cfg.RelaxationCycles)
		terrain.Classify(w.Tiles, cfg.WaterThreshold, cfg.MountainThreshold)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := r.step(StageColors, func() error {
		jitter, err := terrain.NewNoise(cfg.JitterNoise, r.req.Seed)
		if err != nil {
			return err
		}
		terrain.Colorize(w.Tiles, cfg.WaterThreshold, cfg.MountainThreshold, terrain.DefaultPalette, jitter)
		terrain.MarkCoasts(w.Tiles)
		return nil
	}); err != nil {
		return nil, err
	}

	// Landmass search only reads land flags; ocean indexing only writes
	// ocean ids.
	if err := r.parallel(
		stage{StageLandRegions, func() error {
			r.landmasses = region.Landmasses(w.Tiles)
			return nil
		}},
		stage{StageOceans, func() error {
			w.Oceans = region.IndexOceans(w.Tiles)
			return nil
		}},
	); err != nil {
		return nil, err
	}

	if err := r.step(StageCoasts, func() error {
		region.AssignCoasts(w.Tiles)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := r.step(StageTerritories, func() error {
		territory.Build(w, r.landmasses, territory.Options{
			TerritorySize: cfg.TerritorySize,
			MaxIterations: cfg.KMeansIterations,
			SpawnRates:    cfg.SpawnRates,
		}, r.rng)
		return nil
	}); err != nil {
		return nil, err
	}

	// Routes touch harbors; the spatial index only reads tile polygons.
	searcher := &harbor.Searcher{TurnCostFactor: cfg.TurnCostFactor, LongPathHops: cfg.LongPathHops}
	if err := r.parallel(
		stage{StageHarbors, func() error {
			r.routes = searcher.Connect(w)
			return nil
		}},
		stage{StageSpatialIndex, func() error {
			w.BuildSpatialIndex()
			return nil
		}},
	); err != nil {
		return nil, err
	}
	return w, nil
}

type stage struct {
	name string
	fn   func() error
}

// parallel runs independent stages on the bounded worker pool and waits for
// all of them.
func (r *run) parallel(stages ...stage) error {
	var g errgroup.Group
	g.SetLimit(r.workers)
	for _, s := range stages {
		g.Go(func() error { return r.step(s.name, s.fn) })
	}
	return g.Wait()
}

// step runs fn as a named stage, emitting START and then FINISHED or ERROR.
func (r *run) step(name string, fn func() error) error {
	r.emit(name, PhaseStart, r.expectedFor(name).Seconds(), "")
	start := time.Now()
	err := safely(fn)
	elapsed := time.Since(start)
	if err != nil {
		r.emit(name, PhaseError, elapsed.Seconds(), err.Error())
		return fmt.Errorf("%w: %s: %w", ErrStageFailed, name, err)
	}
	r.record(name, elapsed)
	r.emit(name, PhaseFinished, elapsed.Seconds(), "")
	r.log.Debug("stage finished", "stage", name, "duration", elapsed)
	return nil
}

func safely(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}

func (r *run) expectedFor(name string) time.Duration {
	if d, ok := r.expected[name]; ok && d > 0 {
		return d
	}
	return DefaultExpected
}

func (r *run) record(name string, d time.Duration) {
	r.mu.Lock()
	r.times[name] = d.Seconds()
	r.mu.Unlock()
}

func (r *run) snapshot() map[string]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.times)
}

func (r *run) emit(name string, phase Phase, value float64, errText string) {
	if r.events == nil {
		return
	}
	r.events.push(Event{
		RunID: r.req.RunID,
		Stage: name,
		Phase: phase,
		Value: value,
		Err:   errText,
		At:    time.Now(),
	})
}
