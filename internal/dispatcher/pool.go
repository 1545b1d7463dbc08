package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-webpush/pkg/interfaces/logger"
	"github.com/goliatone/go-webpush/pkg/interfaces/queue"
)

var (
	ErrPoolStopped    = errors.New("dispatcher: pool is not running")
	ErrQueueFull      = errors.New("dispatcher: queue is full")
	ErrUnknownJob     = errors.New("dispatcher: no handler registered for job")
	ErrHandlerMissing = errors.New("dispatcher: handler is required")
)

// Config sizes the pool.
type Config struct {
	Workers   int
	QueueSize int
}

// Pool consumes queued jobs with a fixed set of workers. Jobs run in arrival
// order per worker; no ordering holds across workers.
type Pool struct {
	mu       sync.RWMutex
	cfg      Config
	log      logger.Logger
	handlers map[string]queue.Handler

	jobs    chan queue.Job
	wg      sync.WaitGroup
	running bool
}

var _ queue.Queue = (*Pool)(nil)

// New builds a stopped pool.
func New(cfg Config, l logger.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if l == nil {
		l = &logger.Nop{}
	}
	return &Pool{
		cfg:      cfg,
		log:      l,
		handlers: make(map[string]queue.Handler),
	}
}

// Handle registers fn for jobs with the given key.
func (p *Pool) Handle(key string, fn queue.Handler) error {
	if fn == nil {
		return ErrHandlerMissing
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[key] = fn
	return nil
}

// Start launches the workers. ctx is handed to every handler invocation.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.jobs = make(chan queue.Job, p.cfg.QueueSize)
	p.running = true
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i, p.jobs)
	}
	p.log.Info("dispatcher started", logger.F("workers", p.cfg.Workers), logger.F("queue_size", p.cfg.QueueSize))
}

// Stop closes the queue and waits for queued jobs to drain or ctx to expire.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	close(p.jobs)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.log.Info("dispatcher stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher: stop: %w", ctx.Err())
	}
}

// Enqueue hands job to the workers without blocking.
func (p *Pool) Enqueue(ctx context.Context, job queue.Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.running {
		return ErrPoolStopped
	}
	if _, ok := p.handlers[job.Key]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, job.Key)
	}
	if job.RunAt.IsZero() {
		job.RunAt = time.Now()
	}
	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (p *Pool) worker(ctx context.Context, id int, jobs <-chan queue.Job) {
	defer p.wg.Done()
	for job := range jobs {
		p.run(ctx, id, job)
	}
}

func (p *Pool) run(ctx context.Context, id int, job queue.Job) {
	p.mu.RLock()
	handler := p.handlers[job.Key]
	p.mu.RUnlock()

	if wait := time.Until(job.RunAt); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}

	defer func() {
		if r := recover(); r != nil {
			p.log.Error("dispatcher job panicked", logger.F("job", job.Key), logger.F("panic", fmt.Sprint(r)))
		}
	}()
	started := time.Now()
	if err := handler(ctx, job); err != nil {
		p.log.Error("dispatcher job failed", logger.F("job", job.Key), logger.F("worker", id), logger.Err(err))
		return
	}
	p.log.Debug("dispatcher job done", logger.F("job", job.Key), logger.F("worker", id), logger.F("took", time.Since(started)))
}
