package fetch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResource_InitialStateIsPending(t *testing.T) {
	r := NewResource("test", func(context.Context) (string, error) {
		return "value", nil
	}, 10*time.Second, clockwork.NewFakeClock())

	snap := r.Snapshot()
	assert.Equal(t, OutcomePending, snap.Outcome)
	assert.False(t, snap.HasData)
	assert.False(t, snap.Loading)
	assert.NoError(t, snap.Err)
}

func TestResource_SuccessfulFetch(t *testing.T) {
	r := NewResource("test", func(context.Context) (string, error) {
		return "value", nil
	}, 10*time.Second, clockwork.NewFakeClock())

	snap := r.Get(context.Background())
	require.Equal(t, OutcomeSuccess, snap.Outcome)
	assert.Equal(t, "value", snap.Data)
	assert.True(t, snap.HasData)
	assert.NoError(t, snap.Err)
}

func TestResource_FailureRetainsStaleData(t *testing.T) {
	fetchErr := errors.New("network down")
	var fail atomic.Bool

	r := NewResource("test", func(context.Context) (string, error) {
		if fail.Load() {
			return "", fetchErr
		}
		return "value", nil
	}, 10*time.Second, clockwork.NewFakeClock())

	_ = r.Get(context.Background())

	fail.Store(true)
	snap := r.Mutate(context.Background())

	assert.Equal(t, OutcomeFailure, snap.Outcome)
	assert.ErrorIs(t, snap.Err, fetchErr)
	// Stale data survives a failed re-validation
	assert.True(t, snap.HasData)
	assert.Equal(t, "value", snap.Data)
}

func TestResource_SuccessClearsPreviousError(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)

	r := NewResource("test", func(context.Context) (string, error) {
		if fail.Load() {
			return "", errors.New("boom")
		}
		return "value", nil
	}, 10*time.Second, clockwork.NewFakeClock())

	snap := r.Get(context.Background())
	require.Error(t, snap.Err)

	fail.Store(false)
	snap = r.Mutate(context.Background())
	assert.NoError(t, snap.Err)
	assert.Equal(t, OutcomeSuccess, snap.Outcome)
}

func TestResource_GetHonorsTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var calls atomic.Int32

	r := NewResource("test", func(context.Context) (string, error) {
		calls.Add(1)
		return "value", nil
	}, 10*time.Second, clock)

	_ = r.Get(context.Background())
	_ = r.Get(context.Background())
	assert.Equal(t, int32(1), calls.Load(), "fresh value should not trigger a second read")

	clock.Advance(11 * time.Second)
	_ = r.Get(context.Background())
	assert.Equal(t, int32(2), calls.Load(), "stale value should trigger a read")
}

func TestResource_MutateIgnoresFreshness(t *testing.T) {
	var calls atomic.Int32

	r := NewResource("test", func(context.Context) (string, error) {
		calls.Add(1)
		return "value", nil
	}, time.Hour, clockwork.NewFakeClock())

	_ = r.Get(context.Background())
	_ = r.Mutate(context.Background())
	assert.Equal(t, int32(2), calls.Load())
}

func TestResource_ConcurrentMutatesShareOneFetch(t *testing.T) {
	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})

	r := NewResource("test", func(context.Context) (string, error) {
		calls.Add(1)
		close(entered)
		<-release
		return "value", nil
	}, time.Hour, clockwork.NewFakeClock())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = r.Mutate(context.Background())
	}()

	<-entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = r.Mutate(context.Background())
	}()

	// Give the second mutate a chance to join the in-flight read
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "concurrent mutates must share one read")
}

func TestResource_SubscriberSeesTerminalOutcomes(t *testing.T) {
	r := NewResource("test", func(context.Context) (string, error) {
		return "value", nil
	}, 10*time.Second, clockwork.NewFakeClock())

	var snaps []Snapshot[string]
	unsubscribe := r.Subscribe(func(s Snapshot[string]) {
		snaps = append(snaps, s)
	})
	defer unsubscribe()

	_ = r.Mutate(context.Background())

	// loading-start notification, then the terminal one
	require.Len(t, snaps, 2)
	assert.True(t, snaps[0].Loading)
	assert.Equal(t, OutcomePending, snaps[0].Outcome)
	assert.False(t, snaps[1].Loading)
	assert.Equal(t, OutcomeSuccess, snaps[1].Outcome)
	assert.Equal(t, "value", snaps[1].Data)
}

func TestResource_UnsubscribeStopsNotifications(t *testing.T) {
	r := NewResource("test", func(context.Context) (string, error) {
		return "value", nil
	}, 10*time.Second, clockwork.NewFakeClock())

	var count int
	unsubscribe := r.Subscribe(func(Snapshot[string]) { count++ })

	_ = r.Mutate(context.Background())
	seen := count

	unsubscribe()
	unsubscribe() // second call is a no-op

	_ = r.Mutate(context.Background())
	assert.Equal(t, seen, count, "no notifications after unsubscribe")
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "pending", OutcomePending.String())
	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "failure", OutcomeFailure.String())
}
