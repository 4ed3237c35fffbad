// Package workers runs import jobs on a bounded in-process worker pool.
package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mentraflow-backend/application/ports"
	"mentraflow-backend/pkg/observability"
)

var (
	// ErrQueueFull is returned by Enqueue when every queue slot is taken.
	ErrQueueFull = errors.New("job queue is full")
	// ErrPoolClosed is returned by Enqueue after Shutdown.
	ErrPoolClosed = errors.New("worker pool is shut down")
)

// Config sizes the pool.
type Config struct {
	Workers   int
	QueueSize int
	// JobTimeout bounds one job's run. Zero means no limit.
	JobTimeout time.Duration
}

// Pool is a ports.JobQueue backed by a buffered channel and a fixed set of
// workers. Enqueue never blocks.
type Pool struct {
	jobs       chan ports.ImportJob
	jobTimeout time.Duration
	processor  ports.ImportJobProcessor
	metrics    *observability.Collector
	logger     *zap.Logger

	mu      sync.RWMutex
	closed  bool
	started sync.Once
	group   *errgroup.Group
	done    chan struct{}
}

var _ ports.JobQueue = (*Pool)(nil)

func NewPool(cfg Config, processor ports.ImportJobProcessor, metrics *observability.Collector, logger *zap.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	p := &Pool{
		jobs:       make(chan ports.ImportJob, cfg.QueueSize),
		jobTimeout: cfg.JobTimeout,
		processor:  processor,
		metrics:    metrics,
		logger:     logger,
		group:      new(errgroup.Group),
		done:       make(chan struct{}),
	}
	p.group.SetLimit(cfg.Workers)
	return p
}

// Start launches the workers. Jobs run on ctx, which should outlive the
// request that enqueued them. Calling Start again has no effect.
func (p *Pool) Start(ctx context.Context) {
	p.started.Do(func() {
		go p.dispatch(ctx)
	})
}

// dispatch hands each queued job to the errgroup, which blocks while every
// worker is busy.
func (p *Pool) dispatch(ctx context.Context) {
	defer close(p.done)
	for job := range p.jobs {
		p.metrics.SetQueueDepth(len(p.jobs))
		job := job
		p.group.Go(func() error {
			p.run(ctx, job)
			return nil
		})
	}
	_ = p.group.Wait()
}

func (p *Pool) run(ctx context.Context, job ports.ImportJob) {
	logger := p.logger.With(zap.String("job_id", job.JobID), zap.String("import_id", job.ImportID))
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Import job panicked", zap.Any("panic", r))
		}
	}()

	if p.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.jobTimeout)
		defer cancel()
	}

	start := time.Now()
	if err := p.processor.Process(ctx, job); err != nil {
		logger.Error("Import job failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return
	}
	logger.Info("Import job finished", zap.Duration("duration", time.Since(start)))
}

// Enqueue queues job without blocking.
func (p *Pool) Enqueue(ctx context.Context, job ports.ImportJob) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job:
		p.metrics.SetQueueDepth(len(p.jobs))
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting jobs and waits for queued and running jobs to
// finish, or for ctx to end.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	// A pool that never started still has to drain.
	p.Start(context.Background())

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
