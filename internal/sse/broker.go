// Package sse streams live-reload notifications to open pages.
//
// File changes arrive in bursts (an editor save is often a write, a rename
// and a chmod). The broker collects them for a short window and then sends
// one reload event per batch, carrying every changed path.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// EventReload is the SSE event name pages listen for.
const EventReload = "reload"

const (
	defaultWindow    = 500 * time.Millisecond
	defaultKeepAlive = 30 * time.Second
	retryMillis      = 1000
)

// Change is one changed path within a Reload.
type Change struct {
	Op   string `json:"op"`
	Path string `json:"path"`
}

// Reload is a batch of changes. Seq increases by one per flushed batch and
// doubles as the SSE event id.
type Reload struct {
	Seq     uint64   `json:"seq"`
	Changes []Change `json:"changes"`
}

// merge folds next into r. Paths keep their first position; the latest op
// for a path wins.
func (r Reload) merge(next Reload) Reload {
	out := Reload{Seq: next.Seq, Changes: make([]Change, 0, len(r.Changes)+len(next.Changes))}
	pos := make(map[string]int)
	for _, batch := range [][]Change{r.Changes, next.Changes} {
		for _, c := range batch {
			if i, ok := pos[c.Path]; ok {
				out.Changes[i].Op = c.Op
				continue
			}
			pos[c.Path] = len(out.Changes)
			out.Changes = append(out.Changes, c)
		}
	}
	return out
}

// Option configures a Broker.
type Option func(*Broker)

// WithKeepAlive sets how often idle streams receive a comment line so
// proxies do not drop them.
func WithKeepAlive(d time.Duration) Option {
	return func(b *Broker) { b.keepAlive = d }
}

// Broker coalesces change notifications into reload batches and fans them
// out to subscribers. Each subscriber holds at most one undelivered batch;
// a newer batch is merged into it, so a slow page never misses a path.
type Broker struct {
	window    time.Duration
	keepAlive time.Duration

	mu      sync.Mutex
	clients map[chan Reload]struct{}
	pending Reload
	timer   *time.Timer
	seq     uint64
	closed  bool
}

// NewBroker creates a broker that flushes a batch window after its first
// change.
func NewBroker(window time.Duration, opts ...Option) *Broker {
	if window <= 0 {
		window = defaultWindow
	}
	b := &Broker{
		window:    window,
		keepAlive: defaultKeepAlive,
		clients:   make(map[chan Reload]struct{}),
	}
	for _, o := range opts {
		o(b)
	}
	if b.keepAlive <= 0 {
		b.keepAlive = defaultKeepAlive
	}
	return b
}

// Notify records a change. Its signature matches watch.Callback.
func (b *Broker) Notify(op, path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.pending = b.pending.merge(Reload{Changes: []Change{{Op: op, Path: path}}})
	if b.timer == nil {
		b.timer = time.AfterFunc(b.window, b.flush)
	}
}

func (b *Broker) flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timer = nil
	if b.closed || len(b.pending.Changes) == 0 {
		return
	}
	b.seq++
	batch := b.pending
	batch.Seq = b.seq
	b.pending = Reload{}
	for ch := range b.clients {
		deliver(ch, batch)
	}
}

// deliver hands batch to ch, merging it with an undelivered batch. Only
// the broker sends on ch, under b.mu, so the second send cannot block.
func deliver(ch chan Reload, batch Reload) {
	select {
	case ch <- batch:
		return
	default:
	}
	select {
	case old := <-ch:
		batch = old.merge(batch)
	default:
	}
	select {
	case ch <- batch:
	default:
	}
}

// Subscribe registers a subscriber. The returned cancel function removes it
// and closes the channel; it is safe to call more than once.
func (b *Broker) Subscribe() (<-chan Reload, func()) {
	ch := make(chan Reload, 1)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.clients[ch] = struct{}{}
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.clients[ch]; ok {
			delete(b.clients, ch)
			close(ch)
		}
	}
}

// Clients returns the number of subscribers.
func (b *Broker) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Close drops pending changes and closes every subscriber channel.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	for ch := range b.clients {
		delete(b.clients, ch)
		close(ch)
	}
}

// ServeHTTP streams reload batches (GET /events). Each batch is sent as
// "event: reload" with its Seq as the event id.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch, cancel := b.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "retry: %d\n\n", retryMillis)
	flusher.Flush()

	ping := time.NewTicker(b.keepAlive)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": keep-alive\n\n"))
			flusher.Flush()
		case batch, ok := <-ch:
			if !ok {
				return
			}
			if err := writeReload(w, batch); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeReload(w http.ResponseWriter, batch Reload) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", batch.Seq, EventReload, payload)
	return err
}
