// Package workers runs follow-up actions (ping, traceroute, lookups, sweeps)
// on a bounded pool of goroutines with an optional rate limit, per-job
// timeouts and graceful shutdown.
package workers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/anstrom/uplink/internal/errors"
	"github.com/anstrom/uplink/internal/logging"
	"github.com/anstrom/uplink/internal/metrics"
)

// Job represents a unit of work to be executed by a worker.
type Job interface {
	// Execute performs the job and returns an error if it fails.
	Execute(ctx context.Context) error
	// ID returns a unique identifier for the job.
	ID() string
	// Type returns the job type for metrics and logging.
	Type() string
}

// Result represents the result of executing a job.
type Result struct {
	JobID    string
	JobType  string
	Error    error
	Duration time.Duration
	Retries  int
}

// Config holds configuration for the worker pool.
type Config struct {
	// Size is the number of worker goroutines to create.
	Size int
	// QueueSize is the maximum number of jobs that can be queued.
	QueueSize int
	// MaxRetries is the maximum number of retries for failed jobs.
	MaxRetries int
	// RetryDelay is the delay between retries.
	RetryDelay time.Duration
	// JobTimeout bounds a single attempt (0 = no limit).
	JobTimeout time.Duration
	// ShutdownTimeout is the maximum time to wait for workers to finish.
	ShutdownTimeout time.Duration
	// RateLimit is the maximum number of jobs started per second (0 = no limit).
	RateLimit float64
}

// DefaultConfig returns the follow-up pool defaults.
func DefaultConfig() Config {
	return Config{
		Size:            2,
		QueueSize:       16,
		MaxRetries:      0,
		RetryDelay:      time.Second,
		JobTimeout:      2 * time.Minute,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Pool manages a pool of worker goroutines for concurrent job execution.
type Pool struct {
	config    Config
	jobs      chan Job
	results   chan Result
	limiter   *rate.Limiter
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	startOnce sync.Once
	closed    atomic.Bool
	queued    atomic.Int64
	mu        sync.RWMutex
}

// New creates a new worker pool with the given configuration.
func New(config Config) *Pool {
	if config.Size <= 0 {
		config.Size = 1
	}
	if config.QueueSize < 0 {
		config.QueueSize = 0
	}

	ctx, cancel := context.WithCancel(context.Background())

	pool := &Pool{
		config:  config,
		jobs:    make(chan Job, config.QueueSize),
		results: make(chan Result, config.QueueSize+config.Size),
		ctx:     ctx,
		cancel:  cancel,
	}

	if config.RateLimit > 0 {
		pool.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}

	return pool
}

// Start launches the workers. Calling it more than once has no effect.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		logging.Info("Starting worker pool",
			"worker_count", p.config.Size,
			"queue_size", p.config.QueueSize,
			"rate_limit", p.config.RateLimit)

		for i := 0; i < p.config.Size; i++ {
			p.wg.Add(1)
			go p.run(i)
		}

		metrics.Gauge(metrics.MetricWorkerPoolSize, float64(p.config.Size), metrics.Labels{
			metrics.LabelComponent: "workers",
		})
	})
}

// Submit queues a job. It fails when the pool is shut down or the queue is full.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed.Load() {
		return errors.New(errors.CodeServiceUnavailable, "worker pool is shut down")
	}

	select {
	case p.jobs <- job:
		p.queued.Add(1)
		logging.Debug("Job submitted to worker pool",
			"job_id", job.ID(),
			"job_type", job.Type())
		metrics.Gauge(metrics.MetricJobsQueued, float64(p.queued.Load()), nil)
		return nil
	default:
		return errors.New(errors.CodeRateLimited, "job queue is full")
	}
}

// Results returns the channel job results are delivered on. Results are
// dropped when nobody reads them and the buffer is full.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Queued returns the number of jobs waiting for a worker.
func (p *Pool) Queued() int {
	return int(p.queued.Load())
}

// Shutdown stops accepting jobs, lets queued jobs drain and waits up to
// ShutdownTimeout before canceling the ones still running.
func (p *Pool) Shutdown() error {
	p.mu.Lock()
	if p.closed.Swap(true) {
		p.mu.Unlock()
		return nil
	}
	close(p.jobs)
	p.mu.Unlock()

	logging.Info("Shutting down worker pool")

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		logging.Info("Worker pool shutdown completed")
	case <-time.After(p.config.ShutdownTimeout):
		logging.Warn("Worker pool shutdown timeout, canceling running jobs")
		p.cancel()
		<-done
		err = errors.New(errors.CodeTimeout, "worker pool shutdown timed out")
	}

	p.cancel()
	close(p.results)
	return err
}

func (p *Pool) run(id int) {
	defer p.wg.Done()

	logging.Debug("Worker started", "worker_id", id)
	defer logging.Debug("Worker stopped", "worker_id", id)

	for job := range p.jobs {
		p.queued.Add(-1)
		p.execute(id, job)
	}
}

// execute runs a single job with retry logic.
func (p *Pool) execute(workerID int, job Job) {
	if p.limiter != nil {
		if err := p.limiter.Wait(p.ctx); err != nil {
			p.deliver(Result{JobID: job.ID(), JobType: job.Type(), Error: err})
			return
		}
	}

	var (
		lastErr error
		retries int
		elapsed time.Duration
	)

	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		start := time.Now()
		err := p.attempt(job)
		elapsed = time.Since(start)

		if err == nil {
			p.deliver(Result{
				JobID:    job.ID(),
				JobType:  job.Type(),
				Duration: elapsed,
				Retries:  attempt,
			})
			metrics.Counter("jobs_completed_total",
				metrics.Labels{"job_type": job.Type(), metrics.LabelStatus: "success"})
			logging.Debug("Job completed",
				"job_id", job.ID(),
				"job_type", job.Type(),
				"duration", elapsed,
				"worker_id", workerID)
			return
		}

		lastErr = err
		retries = attempt

		if attempt < p.config.MaxRetries && errors.IsRetryable(err) {
			select {
			case <-time.After(p.config.RetryDelay):
				continue
			case <-p.ctx.Done():
			}
		}
		break
	}

	p.deliver(Result{
		JobID:    job.ID(),
		JobType:  job.Type(),
		Error:    lastErr,
		Duration: elapsed,
		Retries:  retries,
	})
	metrics.Counter("jobs_completed_total",
		metrics.Labels{"job_type": job.Type(), metrics.LabelStatus: "error"})
	logging.Warn("Job failed",
		"job_id", job.ID(),
		"job_type", job.Type(),
		"retries", retries,
		"error", lastErr,
		"worker_id", workerID)
}

func (p *Pool) attempt(job Job) (err error) {
	ctx := p.ctx
	if p.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.JobTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()

	return job.Execute(ctx)
}

func (p *Pool) deliver(result Result) {
	select {
	case p.results <- result:
	default:
	}
}

// FuncJob adapts a function to the Job interface.
type FuncJob struct {
	id      string
	jobType string
	fn      func(ctx context.Context) error
}

// NewFuncJob creates a job that calls fn.
func NewFuncJob(id, jobType string, fn func(ctx context.Context) error) *FuncJob {
	return &FuncJob{id: id, jobType: jobType, fn: fn}
}

// Execute implements the Job interface.
func (j *FuncJob) Execute(ctx context.Context) error {
	return j.fn(ctx)
}

// ID implements the Job interface.
func (j *FuncJob) ID() string {
	return j.id
}

// Type implements the Job interface.
func (j *FuncJob) Type() string {
	return j.jobType
}
