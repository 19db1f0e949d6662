// Package api serves world generation over HTTP. A client starts a run,
// follows its stage progress over SSE, then downloads the wire payload.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/tradewinds/internal/config"
	"github.com/talgya/tradewinds/internal/payload"
	"github.com/talgya/tradewinds/internal/persistence"
	"github.com/talgya/tradewinds/internal/pipeline"
	"github.com/talgya/tradewinds/internal/world"
)

const maxSSEConns = 16

// Server runs generation requests and serves their results.
type Server struct {
	Gen     *pipeline.Generator
	DB      *persistence.DB // optional; nil disables run history
	Config  config.Config
	Limiter *RateLimiter

	runs     *registry
	sseConns int32
	active   sync.WaitGroup
}

// NewServer returns a server using cfg. db may be nil.
func NewServer(cfg config.Config, db *persistence.DB) *Server {
	return &Server{
		Gen:     pipeline.New(),
		DB:      db,
		Config:  cfg,
		Limiter: NewRateLimiter(cfg.Server.RatePerMinute, cfg.Server.RateBurst),
		runs:    newRegistry(),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("POST /api/v1/generate", RateLimitMiddleware(s.Limiter, s.handleGenerate))
	mux.HandleFunc("GET /api/v1/runs/{id}", s.handleRun)
	mux.HandleFunc("GET /api/v1/runs/{id}/events", s.handleEvents)
	mux.HandleFunc("GET /api/v1/runs/{id}/payload", s.handlePayload)
	mux.HandleFunc("GET /api/v1/runs/{id}/tile", s.handleTile)

	return corsMiddleware(mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down and waits
// for in-flight runs.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.Config.Server.Port)
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Limiter.Cleanup(time.Hour)
			case <-ctx.Done():
				return
			}
		}
	}()

	errc := make(chan error, 1)
	go func() {
		slog.Info("HTTP API starting", "addr", addr, "history", s.DB != nil)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.Config.Server.ShutdownGrace)
	defer cancel()
	slog.Info("HTTP API shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.Wait()
	return nil
}

// Wait blocks until every started run has finished.
func (s *Server) Wait() {
	s.active.Wait()
}

// corsMiddleware adds CORS headers for allowed origins.
// Set CORS_ORIGINS to a comma-separated list; localhost dev servers are
// always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GenerateRequest starts a run. Zero width or height use the server's map
// size; Config fields that are present override the server's parameters.
type GenerateRequest struct {
	Seed   int64              `json:"seed"`
	Width  float64            `json:"width"`
	Height float64            `json:"height"`
	Config *config.Generation `json:"config,omitempty"`
}

// GenerateResponse identifies a started run.
type GenerateResponse struct {
	RunID   uuid.UUID `json:"run_id"`
	Events  string    `json:"events_url"`
	Payload string    `json:"payload_url"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	base := s.Config.Generation
	base.SpawnRates = maps.Clone(base.SpawnRates)
	req := GenerateRequest{Config: &base}

	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Config == nil {
		req.Config = &base
	}
	if req.Width == 0 {
		req.Width = s.Config.Server.MapWidth
	}
	if req.Height == 0 {
		req.Height = s.Config.Server.MapHeight
	}
	if err := req.Config.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !(req.Width > 0) || !(req.Height > 0) {
		http.Error(w, "width and height must be positive", http.StatusBadRequest)
		return
	}

	g := newGeneration(uuid.New())
	s.runs.add(g)
	s.active.Add(1)
	go func() {
		defer s.active.Done()
		s.runGeneration(g, pipeline.Request{
			RunID:  g.id,
			Seed:   req.Seed,
			Width:  req.Width,
			Height: req.Height,
			Config: *req.Config,
		})
	}()

	prefix := "/api/v1/runs/" + g.id.String()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, GenerateResponse{
		RunID:   g.id,
		Events:  prefix + "/events",
		Payload: prefix + "/payload",
	})
}

func (s *Server) runGeneration(g *generation, req pipeline.Request) {
	log := slog.With("component", "api", "run", g.id)

	gen := *s.Gen
	if s.DB != nil {
		expected, err := s.DB.ExpectedDurations()
		if err != nil {
			log.Warn("stage history unavailable", "error", err)
		}
		gen.Expected = expected
	}

	progress := make(chan pipeline.Event, subBuffer)
	var fanout sync.WaitGroup
	fanout.Add(1)
	go func() {
		defer fanout.Done()
		for ev := range progress {
			g.publish(ev)
		}
	}()

	// Generate closes progress once every event is delivered.
	p, wld, err := gen.Generate(req, progress)
	fanout.Wait()
	if err != nil {
		g.finish(req.Seed, nil, nil, err)
		return
	}

	wire, err := payload.Marshal(p)
	if err != nil {
		log.Error("payload encoding failed", "error", err)
		g.finish(p.Seed, nil, nil, err)
		return
	}

	if s.DB != nil {
		stats := p.Stats()
		run := persistence.Run{
			ID:          g.id.String(),
			Seed:        p.Seed,
			Width:       req.Width,
			Height:      req.Height,
			Tiles:       stats.Tiles,
			Territories: stats.Territories,
			Harbors:     stats.Harbors,
			Routes:      stats.Routes,
		}
		if err := s.DB.SaveRun(run, req.Config, p.ExecutionTimes); err != nil {
			log.Warn("run not recorded", "error", err)
		} else if err := s.DB.SaveMeta("last_run", run.ID); err != nil {
			log.Warn("last run not recorded", "error", err)
		}
	}

	g.finish(p.Seed, wire, wld, nil)
	log.Info("run ready", "seed", p.Seed, "bytes", len(wire))
}

// lookup resolves the {id} path value, writing 400 or 404 when it fails.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*generation, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid run id", http.StatusBadRequest)
		return nil, false
	}
	g, ok := s.runs.get(id)
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return nil, false
	}
	return g, true
}

// RunStatus describes a run.
type RunStatus struct {
	RunID       uuid.UUID `json:"run_id"`
	State       RunState  `json:"state"`
	Seed        int64     `json:"seed,omitempty"`
	Error       string    `json:"error,omitempty"`
	Tiles       int       `json:"tiles,omitempty"`
	Territories int       `json:"territories,omitempty"`
	Harbors     int       `json:"harbors,omitempty"`
	Bytes       int       `json:"payload_bytes,omitempty"`
}

func (g *generation) status() RunStatus {
	state, wire, wld, err := g.snapshot()
	st := RunStatus{RunID: g.id, State: state, Bytes: len(wire)}
	if err != nil {
		st.Error = err.Error()
	}
	if wld != nil {
		st.Seed = wld.Seed
		st.Tiles = len(wld.Tiles)
		st.Territories = len(wld.Territories)
		st.Harbors = len(wld.Harbors)
	}
	return st
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, g.status())
}

// handleEvents streams a run's progress as SSE. Earlier events are replayed
// first; the stream ends with a "done" event carrying the run status.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookup(w, r)
	if !ok {
		return
	}

	current := atomic.AddInt32(&s.sseConns, 1)
	if current > maxSSEConns {
		atomic.AddInt32(&s.sseConns, -1)
		http.Error(w, "too many SSE connections", http.StatusServiceUnavailable)
		return
	}
	defer atomic.AddInt32(&s.sseConns, -1)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	subID, backlog, ch := g.subscribe()
	defer g.unsubscribe(subID)

	for _, ev := range backlog {
		writeSSEEvent(w, ev)
	}
	flusher.Flush()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case ev := <-ch:
			writeSSEEvent(w, ev)
			flusher.Flush()
		case <-g.done:
			// Flush what was published before the run closed.
		drain:
			for {
				select {
				case ev := <-ch:
					writeSSEEvent(w, ev)
				default:
					break drain
				}
			}
			writeSSE(w, "done", g.status())
			flusher.Flush()
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) handlePayload(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookup(w, r)
	if !ok {
		return
	}
	state, wire, _, err := g.snapshot()
	switch state {
	case RunPending:
		http.Error(w, "run still generating", http.StatusConflict)
		return
	case RunFailed:
		http.Error(w, "run failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(wire)))
	w.Write(wire)
}

// TileInfo describes the tile under a queried point.
type TileInfo struct {
	ID          world.TileID        `json:"tile_id"`
	Grid        world.GridCoord     `json:"grid"`
	IsLand      bool                `json:"is_land"`
	IsMountain  bool                `json:"is_mountain"`
	IsCoast     bool                `json:"is_coast"`
	OceanID     int                 `json:"ocean_id"`
	TerritoryID int                 `json:"territory_id"`
	Resource    *world.ResourceType `json:"resource,omitempty"`
}

func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookup(w, r)
	if !ok {
		return
	}
	x, errX := strconv.ParseFloat(r.URL.Query().Get("x"), 64)
	y, errY := strconv.ParseFloat(r.URL.Query().Get("y"), 64)
	if errX != nil || errY != nil {
		http.Error(w, "x and y must be numbers", http.StatusBadRequest)
		return
	}
	state, _, wld, _ := g.snapshot()
	if state != RunFinished {
		http.Error(w, "run has no world", http.StatusConflict)
		return
	}
	id, found := wld.TileAt(x, y)
	if !found {
		http.Error(w, "no tile at point", http.StatusNotFound)
		return
	}
	t := wld.Tile(id)
	writeJSON(w, TileInfo{
		ID:          t.ID,
		Grid:        t.Grid,
		IsLand:      t.IsLand,
		IsMountain:  t.IsMountain,
		IsCoast:     t.IsCoast,
		OceanID:     t.OceanID,
		TerritoryID: t.TerritoryID,
		Resource:    t.Resource,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	total, active := s.runs.counts()
	status := map[string]any{
		"name":        "tradewinds",
		"runs":        total,
		"active_runs": active,
	}
	if s.DB != nil {
		if recent, err := s.DB.RecentRuns(10); err == nil {
			status["recent_runs"] = recent
		}
		if expected, err := s.DB.ExpectedDurations(); err == nil {
			secs := make(map[string]float64, len(expected))
			for stage, d := range expected {
				secs[stage] = d.Seconds()
			}
			status["expected_seconds"] = secs
		}
		if last, err := s.DB.GetMeta("last_run"); err == nil {
			status["last_run"] = last
		}
	}
	writeJSON(w, status)
}

// writeSSEEvent writes a progress event named after its phase.
func writeSSEEvent(w http.ResponseWriter, e pipeline.Event) {
	writeSSE(w, string(e.Phase), e)
}

func writeSSE(w http.ResponseWriter, name string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
