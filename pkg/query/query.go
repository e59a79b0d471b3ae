// Package query implements the polling query layer the trade reconcilers
// sit on. A Handle owns one remote endpoint subscription: it caches
// responses by content-derived request key, refetches the current request
// on a fixed interval and on demand (window refocus), and evicts entries
// that have gone unobserved past a retention window.
//
// For a given request key at most one in-flight fetch is treated as
// authoritative: a response that completes after the request shape changed
// is stored in the cache but never overwrites the state reported for the
// current shape.
package query

import (
	"context"
	"sync"
	"time"
)

// Request is a query argument set with a content-derived identity.
type Request interface {
	Key() string
}

// Result is a point-in-time snapshot of a subscription.
type Result[D any] struct {
	// Skipped reports that no request is currently formed.
	Skipped bool
	// InFlight reports that a fetch for the current request is pending.
	InFlight bool
	// Error reports that the latest completed fetch for the current
	// request failed.
	Error bool
	// Data is the most recent successful payload seen by this handle,
	// possibly for a previous request shape.
	Data *D
	// CurrentData is the successful payload cached for the current
	// request shape, nil while it is unresolved.
	CurrentData *D
}

// Syncing reports that the handle is showing data from a superseded
// request shape while the current one resolves.
func (r Result[D]) Syncing() bool {
	return r.Data != nil && r.Data != r.CurrentData
}

// Options tune a Handle.
type Options struct {
	// PollInterval is the cadence at which the current request is
	// refetched. Zero disables polling.
	PollInterval time.Duration
	// KeepUnusedFor bounds how long a cache entry may go unobserved
	// before it is evicted.
	KeepUnusedFor time.Duration
	// OnFetch, when set, observes every completed fetch. Used to emit
	// fire-and-forget timing metrics.
	OnFetch func(d time.Duration, err error)
}

type entry[D any] struct {
	data     *D
	err      error
	lastUsed time.Time
}

// Handle is one endpoint subscription.
type Handle[A Request, D any] struct {
	fetch func(ctx context.Context, args A) (*D, error)
	opts  Options

	mu       sync.Mutex
	args     A
	key      string // "" means skip
	inFlight bool
	lastData *D
	entries  map[string]*entry[D]

	kick   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHandle creates a subscription and starts its polling loop. The handle
// stays idle until a request is set.
func NewHandle[A Request, D any](fetch func(ctx context.Context, args A) (*D, error), opts Options) *Handle[A, D] {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle[A, D]{
		fetch:   fetch,
		opts:    opts,
		entries: make(map[string]*entry[D]),
		kick:    make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go h.loop()
	return h
}

// Close tears down the polling loop. The handle must not be used after.
func (h *Handle[A, D]) Close() {
	h.cancel()
	<-h.done
}

// SetRequest replaces the current request shape. A nil request withholds
// the query entirely. Setting an unchanged shape is a no-op so callers may
// invoke this on every re-evaluation.
func (h *Handle[A, D]) SetRequest(args *A) {
	h.mu.Lock()
	key := ""
	if args != nil {
		key = (*args).Key()
	}
	if key == h.key {
		h.mu.Unlock()
		return
	}
	h.key = key
	h.inFlight = false
	if args != nil {
		h.args = *args
		if e, ok := h.entries[key]; ok && e.err == nil {
			// served from cache; polling keeps it live
			h.lastData = e.data
		} else {
			h.inFlight = true
		}
	}
	h.mu.Unlock()
	h.poke()
}

// Refetch forces an immediate refetch of the current request, used on
// window refocus.
func (h *Handle[A, D]) Refetch() {
	h.mu.Lock()
	if h.key != "" {
		h.inFlight = h.entries[h.key] == nil
	}
	h.mu.Unlock()
	h.poke()
}

// Snapshot returns the current state of the subscription.
func (h *Handle[A, D]) Snapshot() Result[D] {
	h.mu.Lock()
	defer h.mu.Unlock()

	res := Result[D]{Data: h.lastData}
	if h.key == "" {
		res.Skipped = true
		return res
	}
	res.InFlight = h.inFlight
	if e, ok := h.entries[h.key]; ok {
		e.lastUsed = time.Now()
		if e.err != nil {
			res.Error = true
		} else {
			res.CurrentData = e.data
		}
	}
	return res
}

func (h *Handle[A, D]) poke() {
	select {
	case h.kick <- struct{}{}:
	default:
	}
}

func (h *Handle[A, D]) loop() {
	defer close(h.done)

	var tick <-chan time.Time
	if h.opts.PollInterval > 0 {
		t := time.NewTicker(h.opts.PollInterval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-h.kick:
		case <-tick:
		}
		h.refresh()
		h.evict()
	}
}

// refresh fetches the current request, if any, and publishes the outcome
// unless the request shape changed while the fetch was in flight.
func (h *Handle[A, D]) refresh() {
	h.mu.Lock()
	key := h.key
	args := h.args
	h.mu.Unlock()
	if key == "" {
		return
	}

	start := time.Now()
	data, err := h.fetch(h.ctx, args)
	if h.opts.OnFetch != nil {
		h.opts.OnFetch(time.Since(start), err)
	}
	if h.ctx.Err() != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[key] = &entry[D]{data: data, err: err, lastUsed: time.Now()}
	if key != h.key {
		// superseded while in flight; cached but not authoritative
		return
	}
	h.inFlight = false
	if err == nil {
		h.lastData = data
	}
}

func (h *Handle[A, D]) evict() {
	if h.opts.KeepUnusedFor <= 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	cutoff := time.Now().Add(-h.opts.KeepUnusedFor)
	for key, e := range h.entries {
		if key != h.key && e.lastUsed.Before(cutoff) {
			delete(h.entries, key)
		}
	}
}
