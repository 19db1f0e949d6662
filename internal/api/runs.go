package api

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/tradewinds/internal/pipeline"
	"github.com/talgya/tradewinds/internal/world"
)

// RunState is the lifecycle state of a generation run.
type RunState string

const (
	RunPending  RunState = "running"
	RunFinished RunState = "finished"
	RunFailed   RunState = "failed"
)

// maxRuns bounds how many runs the server keeps in memory.
const maxRuns = 32

// subBuffer is the per-subscriber event buffer. A run emits about two events
// per stage, so this never fills in practice.
const subBuffer = 64

// generation is one run tracked by the server. It records every progress
// event and fans them out to SSE subscribers.
type generation struct {
	id      uuid.UUID
	started time.Time

	mu      sync.Mutex
	seed    int64
	events  []pipeline.Event
	subs    map[int]chan pipeline.Event
	nextSub int
	state   RunState
	err     error
	wire    []byte
	world   *world.World
	done    chan struct{}
}

func newGeneration(id uuid.UUID) *generation {
	return &generation{
		id:      id,
		started: time.Now(),
		subs:    make(map[int]chan pipeline.Event),
		state:   RunPending,
		done:    make(chan struct{}),
	}
}

func (g *generation) publish(ev pipeline.Event) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.events = append(g.events, ev)
	for _, ch := range g.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// subscribe returns the events so far and a channel for later ones.
func (g *generation) subscribe() (int, []pipeline.Event, <-chan pipeline.Event) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.nextSub
	g.nextSub++
	ch := make(chan pipeline.Event, subBuffer)
	g.subs[id] = ch
	backlog := make([]pipeline.Event, len(g.events))
	copy(backlog, g.events)
	return id, backlog, ch
}

func (g *generation) unsubscribe(id int) {
	g.mu.Lock()
	delete(g.subs, id)
	g.mu.Unlock()
}

func (g *generation) finish(seed int64, wire []byte, w *world.World, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.seed = seed
	g.wire = wire
	g.world = w
	g.err = err
	if err != nil {
		g.state = RunFailed
	} else {
		g.state = RunFinished
	}
	close(g.done)
}

// snapshot returns the state, error and results under the lock.
func (g *generation) snapshot() (RunState, []byte, *world.World, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state, g.wire, g.world, g.err
}

// registry keeps the most recent runs by id.
type registry struct {
	mu    sync.Mutex
	runs  map[uuid.UUID]*generation
	order []uuid.UUID
}

func newRegistry() *registry {
	return &registry{runs: make(map[uuid.UUID]*generation)}
}

func (r *registry) add(g *generation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs[g.id] = g
	r.order = append(r.order, g.id)
	for len(r.order) > maxRuns {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.runs, oldest)
	}
}

func (r *registry) get(id uuid.UUID) (*generation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.runs[id]
	return g, ok
}

// counts returns the number of tracked and still running runs.
func (r *registry) counts() (total, active int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.runs {
		select {
		case <-g.done:
		default:
			active++
		}
	}
	return len(r.runs), active
}
