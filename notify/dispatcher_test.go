package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type providerFunc func(ctx context.Context, job Job) error

func (f providerFunc) Send(ctx context.Context, job Job) error {
	return f(ctx, job)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcherDeliversJobs(t *testing.T) {
	var mu sync.Mutex
	var got []string
	provider := providerFunc(func(_ context.Context, job Job) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, job.ID)
		return nil
	})

	d := NewDispatcher(provider, Config{Workers: 2, QueueSize: 8}, quietLogger())
	d.Start(context.Background())

	for i := 0; i < 5; i++ {
		assert.True(t, d.Dispatch(NewJob("token", "t", "b", Payload{})))
	}
	require.NoError(t, d.Stop(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, got, 5)
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	d := NewDispatcher(providerFunc(func(context.Context, Job) error { return nil }), Config{Workers: 1, QueueSize: 1}, quietLogger())

	assert.True(t, d.Dispatch(NewJob("token", "t", "b", Payload{})))
	assert.False(t, d.Dispatch(NewJob("token", "t", "b", Payload{})))
}

func TestDispatcherRejectsAfterStop(t *testing.T) {
	d := NewDispatcher(providerFunc(func(context.Context, Job) error { return nil }), Config{}, quietLogger())
	d.Start(context.Background())
	require.NoError(t, d.Stop(context.Background()))
	require.NoError(t, d.Stop(context.Background()))

	assert.False(t, d.Dispatch(NewJob("token", "t", "b", Payload{})))
}

func TestDispatcherSurvivesFailuresAndPanics(t *testing.T) {
	var calls atomic.Int32
	provider := providerFunc(func(_ context.Context, job Job) error {
		switch calls.Add(1) {
		case 1:
			return errors.New("invalid token")
		case 2:
			panic("provider bug")
		}
		return nil
	})

	d := NewDispatcher(provider, Config{Workers: 1, QueueSize: 4}, quietLogger())
	d.Start(context.Background())
	for i := 0; i < 3; i++ {
		require.True(t, d.Dispatch(NewJob("token", "t", "b", Payload{})))
	}
	require.NoError(t, d.Stop(context.Background()))

	assert.Equal(t, int32(3), calls.Load())
}

func TestDispatcherEnforcesTimeout(t *testing.T) {
	var deadlineHit atomic.Bool
	provider := providerFunc(func(ctx context.Context, _ Job) error {
		select {
		case <-ctx.Done():
			deadlineHit.Store(true)
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})

	d := NewDispatcher(provider, Config{Workers: 1, QueueSize: 1, Timeout: 20 * time.Millisecond}, quietLogger())
	d.Start(context.Background())
	require.True(t, d.Dispatch(NewJob("token", "t", "b", Payload{})))
	require.NoError(t, d.Stop(context.Background()))

	assert.True(t, deadlineHit.Load())
}

func TestDispatcherStopHonoursContext(t *testing.T) {
	release := make(chan struct{})
	provider := providerFunc(func(context.Context, Job) error {
		<-release
		return nil
	})

	d := NewDispatcher(provider, Config{Workers: 1, QueueSize: 1, Timeout: time.Minute}, quietLogger())
	d.Start(context.Background())
	require.True(t, d.Dispatch(NewJob("token", "t", "b", Payload{})))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Stop(ctx), context.DeadlineExceeded)
	close(release)
}

func TestDispatchDoesNotBlockOnSlowProvider(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	provider := providerFunc(func(context.Context, Job) error {
		<-release
		return nil
	})

	d := NewDispatcher(provider, Config{Workers: 1, QueueSize: 2, Timeout: time.Minute}, quietLogger())
	d.Start(context.Background())

	start := time.Now()
	for i := 0; i < 10; i++ {
		d.Dispatch(NewJob("token", "t", "b", Payload{}))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}
