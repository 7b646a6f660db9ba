package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/jfperusse/chainlit/internal/metrics"
)

// Outcome is the tri-state result of the underlying read.
type Outcome int

const (
	// OutcomePending means no read has completed yet.
	OutcomePending Outcome = iota
	// OutcomeSuccess means the last completed read returned a value.
	OutcomeSuccess
	// OutcomeFailure means the last completed read returned an error.
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return "pending"
	}
}

// Fetcher performs the underlying read. Cancellation and timeouts are the
// fetcher's responsibility; the resource never wraps the context.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Snapshot is an immutable view of the resource at one point in time.
//
// Data holds the last successful value and survives both in-flight
// revalidations and failures (stale-while-revalidate). Err holds the error
// of the last completed read, cleared on the next success. Outcome reflects
// the last terminal read only; Loading is tracked separately so an
// in-flight revalidation is never mistaken for a terminal result.
type Snapshot[T any] struct {
	Data    T
	HasData bool
	Err     error
	Loading bool
	Outcome Outcome
}

// Resource caches the latest result of a Fetcher and notifies subscribers
// whenever the result or error changes.
//
// State is guarded by a mutex; subscriber callbacks run sequentially on the
// goroutine that completed the read, after the state change is visible.
type Resource[T any] struct {
	name  string
	fetch Fetcher[T]
	ttl   time.Duration
	clock clockwork.Clock

	mu        sync.Mutex
	data      T
	hasData   bool
	err       error
	loading   bool
	outcome   Outcome
	fetchedAt time.Time
	subs      map[int]func(Snapshot[T])
	nextSubID int

	group singleflight.Group
}

// NewResource creates a resource around fetch. A zero ttl means every Get
// revalidates; Mutate always does, regardless of freshness.
func NewResource[T any](name string, fetch Fetcher[T], ttl time.Duration, clock clockwork.Clock) *Resource[T] {
	return &Resource[T]{
		name:  name,
		fetch: fetch,
		ttl:   ttl,
		clock: clock,
		subs:  make(map[int]func(Snapshot[T])),
	}
}

// Snapshot returns the current view of the resource.
func (r *Resource[T]) Snapshot() Snapshot[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Data returns the last successfully fetched value, if any.
func (r *Resource[T]) Data() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data, r.hasData
}

// Err returns the error of the last completed read, if it failed.
func (r *Resource[T]) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Loading reports whether a read is currently in flight.
func (r *Resource[T]) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

// Get returns the cached snapshot when it is still fresh, revalidating
// otherwise. The first call always performs a read.
func (r *Resource[T]) Get(ctx context.Context) Snapshot[T] {
	r.mu.Lock()
	fresh := r.outcome == OutcomeSuccess && r.clock.Since(r.fetchedAt) < r.ttl
	snap := r.snapshotLocked()
	r.mu.Unlock()

	if fresh {
		return snap
	}
	return r.revalidate(ctx)
}

// Mutate forces a re-validation of the underlying read, ignoring freshness.
// Concurrent calls share a single in-flight read.
func (r *Resource[T]) Mutate(ctx context.Context) Snapshot[T] {
	metrics.FetchRevalidations.WithLabelValues(r.name).Inc()
	return r.revalidate(ctx)
}

// Subscribe registers fn to run after every state change: read started,
// read succeeded, read failed. The returned function unsubscribes; it is
// safe to call more than once.
func (r *Resource[T]) Subscribe(fn func(Snapshot[T])) func() {
	r.mu.Lock()
	id := r.nextSubID
	r.nextSubID++
	r.subs[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

func (r *Resource[T]) revalidate(ctx context.Context) Snapshot[T] {
	v, _, _ := r.group.Do("fetch", func() (any, error) {
		r.setLoading(true)

		start := r.clock.Now()
		data, err := r.fetch(ctx)
		metrics.FetchDuration.WithLabelValues(r.name).Observe(r.clock.Since(start).Seconds())

		return r.complete(data, err), nil
	})
	return v.(Snapshot[T])
}

func (r *Resource[T]) setLoading(loading bool) {
	r.mu.Lock()
	r.loading = loading
	snap := r.snapshotLocked()
	subs := r.subscribersLocked()
	r.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (r *Resource[T]) complete(data T, err error) Snapshot[T] {
	r.mu.Lock()
	r.loading = false
	r.err = err
	if err == nil {
		r.data = data
		r.hasData = true
		r.outcome = OutcomeSuccess
		r.fetchedAt = r.clock.Now()
	} else {
		r.outcome = OutcomeFailure
	}
	snap := r.snapshotLocked()
	subs := r.subscribersLocked()
	r.mu.Unlock()

	metrics.FetchOutcomes.WithLabelValues(r.name, snap.Outcome.String()).Inc()

	for _, fn := range subs {
		fn(snap)
	}
	return snap
}

func (r *Resource[T]) snapshotLocked() Snapshot[T] {
	return Snapshot[T]{
		Data:    r.data,
		HasData: r.hasData,
		Err:     r.err,
		Loading: r.loading,
		Outcome: r.outcome,
	}
}

func (r *Resource[T]) subscribersLocked() []func(Snapshot[T]) {
	fns := make([]func(Snapshot[T]), 0, len(r.subs))
	for id := 0; id < r.nextSubID; id++ {
		if fn, ok := r.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	return fns
}
