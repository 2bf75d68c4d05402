package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Config holds dispatcher tuning.
type Config struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		Workers:   4,
		QueueSize: 256,
		Timeout:   5 * time.Second,
	}
}

// Dispatcher drains a bounded job queue with a fixed set of workers.
// Delivery is at-most-once: failures are logged and the job is dropped.
type Dispatcher struct {
	provider Provider
	config   Config
	logger   *slog.Logger

	jobs    chan Job
	mu      sync.RWMutex
	stopped bool
	started bool
	wg      sync.WaitGroup
}

func NewDispatcher(provider Provider, cfg Config, logger *slog.Logger) *Dispatcher {
	defaults := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaults.QueueSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		provider: provider,
		config:   cfg,
		logger:   logger.With("component", "notify"),
		jobs:     make(chan Job, cfg.QueueSize),
	}
}

// Start launches the workers. ctx bounds every provider call.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true

	for i := 0; i < d.config.Workers; i++ {
		d.wg.Add(1)
		go func(worker int) {
			defer d.wg.Done()
			for job := range d.jobs {
				d.deliver(ctx, worker, job)
			}
		}(i + 1)
	}
	d.logger.Info("push dispatcher started", "workers", d.config.Workers, "queue", d.config.QueueSize)
}

// Dispatch enqueues a job without blocking. It reports false when the job was dropped.
func (d *Dispatcher) Dispatch(job Job) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.logger.Warn("push job dropped", "job", job.ID, "error", ErrStopped)
		return false
	}

	select {
	case d.jobs <- job:
		return true
	default:
		d.logger.Warn("push job dropped", "job", job.ID, "error", ErrQueueFull)
		return false
	}
}

// Stop closes the queue and waits for queued jobs until ctx expires.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.jobs)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("push dispatcher stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("push dispatcher stop: %w", ctx.Err())
	}
}

func (d *Dispatcher) deliver(ctx context.Context, worker int, job Job) {
	callCtx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("push provider panicked", "job", job.ID, "worker", worker, "panic", r)
		}
	}()

	start := time.Now()
	if err := d.provider.Send(callCtx, job); err != nil {
		d.logger.Warn("push delivery failed",
			"job", job.ID,
			"worker", worker,
			"chatId", job.Payload.ChatID,
			"elapsed", time.Since(start),
			"error", fmt.Errorf("%w: %w", ErrDispatchFailure, err))
		return
	}
	d.logger.Debug("push delivered", "job", job.ID, "worker", worker, "elapsed", time.Since(start))
}
