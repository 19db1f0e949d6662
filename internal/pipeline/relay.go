package pipeline

import "sync"

// relay forwards events to a consumer channel through an unbounded queue, so
// producers never block and nothing is dropped. The consumer channel is
// closed after the relay is closed and every queued event is delivered.
type relay struct {
	mu     sync.Mutex
	queue  []Event
	closed bool
	wake   chan struct{}
}

func newRelay(out chan<- Event) *relay {
	r := &relay{wake: make(chan struct{}, 1)}
	go r.run(out)
	return r
}

func (r *relay) push(ev Event) {
	r.mu.Lock()
	r.queue = append(r.queue, ev)
	r.mu.Unlock()
	r.signal()
}

func (r *relay) close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.signal()
}

func (r *relay) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *relay) run(out chan<- Event) {
	defer close(out)
	for {
		r.mu.Lock()
		batch, closed := r.queue, r.closed
		r.queue = nil
		r.mu.Unlock()

		for _, ev := range batch {
			out <- ev
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-r.wake
	}
}
