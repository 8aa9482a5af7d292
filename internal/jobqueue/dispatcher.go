package jobqueue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"scheduled-mailer/internal/pkg/clock"
	"scheduled-mailer/internal/pkg/errs"

	"github.com/google/uuid"
)

// Handler executes a claimed job. Attempt returning an error counts as a
// failed attempt; Exhausted is called once when no retry remains.
type Handler interface {
	Attempt(ctx context.Context, job Job) error
	Exhausted(ctx context.Context, job Job, cause error)
}

type DispatcherConfig struct {
	WorkerID     string
	Concurrency  int
	PollInterval time.Duration
	Lease        time.Duration
}

// Dispatcher pulls due jobs from the queue and runs them on a bounded pool of
// workers, one job per worker from claim to completion.
type Dispatcher struct {
	queue   *Queue
	handler Handler
	policy  RetryPolicy
	limiter Limiter
	clock   clock.Clock
	logger  *slog.Logger
	cfg     DispatcherConfig

	slots chan struct{}
	wg    sync.WaitGroup

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewDispatcher(queue *Queue, handler Handler, policy RetryPolicy, limiter Limiter, clk clock.Clock, logger *slog.Logger, cfg DispatcherConfig) *Dispatcher {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.Lease <= 0 {
		cfg.Lease = 2 * time.Minute
	}
	if cfg.WorkerID == "" {
		cfg.WorkerID = uuid.NewString()
	}
	if limiter == nil {
		limiter = Unlimited{}
	}

	return &Dispatcher{
		queue:   queue,
		handler: handler,
		policy:  policy,
		limiter: limiter,
		clock:   clk,
		logger:  logger.With(slog.String("component", "dispatcher"), slog.String("worker_id", cfg.WorkerID)),
		cfg:     cfg,
		slots:   make(chan struct{}, cfg.Concurrency),
	}
}

// Start launches the polling loop in the background.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.cancel = cancel
	d.done = make(chan struct{})

	go func() {
		defer close(d.done)
		d.Run(runCtx)
	}()

	d.logger.Info("dispatcher started",
		slog.Int("concurrency", d.cfg.Concurrency),
		slog.Duration("poll_interval", d.cfg.PollInterval),
		slog.Bool("durable", d.queue.Durable()),
	)
}

// Stop ends polling and waits for in-flight attempts until ctx expires.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel = nil
	d.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		d.logger.Info("dispatcher stopped")
		return nil
	case <-ctx.Done():
		return errs.Wrap(ctx.Err(), "dispatcher stop: in-flight attempts still running")
	}
}

// Run polls until ctx is cancelled, then waits for running workers.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	// attempts outlive the polling context; the handler bounds each one
	workCtx := context.WithoutCancel(ctx)
	for {
		d.dispatchDue(ctx, workCtx)

		select {
		case <-ctx.Done():
			d.wg.Wait()
			return
		case <-ticker.C:
		}
	}
}

// ProcessDue performs one dispatch pass and waits for the attempts it
// started. Not meant to run alongside Run.
func (d *Dispatcher) ProcessDue(ctx context.Context) int {
	n := d.dispatchDue(ctx, ctx)
	d.wg.Wait()
	return n
}

func (d *Dispatcher) dispatchDue(ctx, workCtx context.Context) int {
	dispatched := 0
	for ctx.Err() == nil {
		select {
		case d.slots <- struct{}{}:
		default:
			return dispatched
		}

		release, ok, err := d.limiter.TryAcquire(ctx)
		if err != nil {
			d.logger.WarnContext(ctx, "rate limiter unavailable", slog.String("error", err.Error()))
		}
		if !ok {
			<-d.slots
			return dispatched
		}

		job, store, found := d.claimNext(ctx)
		if !found {
			release()
			<-d.slots
			return dispatched
		}

		dispatched++
		d.wg.Add(1)
		go d.work(workCtx, store, job)
	}
	return dispatched
}

func (d *Dispatcher) claimNext(ctx context.Context) (Job, Store, bool) {
	for _, store := range d.queue.stores() {
		jobs, err := store.Claim(ctx, ClaimRequest{
			Now:      d.clock.Now(),
			Limit:    1,
			Lease:    d.cfg.Lease,
			WorkerID: d.cfg.WorkerID,
		})
		if err != nil {
			d.logger.ErrorContext(ctx, "claim failed",
				slog.String("store", store.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}
		if len(jobs) > 0 {
			return jobs[0], store, true
		}
	}
	return Job{}, nil, false
}

func (d *Dispatcher) work(ctx context.Context, store Store, job Job) {
	defer func() {
		<-d.slots
		d.wg.Done()
	}()

	log := d.logger.With(
		slog.String("job_id", job.ID.String()),
		slog.Int("attempt", job.Attempt+1),
		slog.String("store", store.Name()),
	)

	err := d.handler.Attempt(ctx, job)
	if err == nil {
		if cerr := store.Complete(ctx, job.ID, d.cfg.WorkerID); cerr != nil {
			log.ErrorContext(ctx, "failed to complete job", slog.String("error", cerr.Error()))
		}
		return
	}

	next := job.Attempt + 1
	if d.policy.ShouldRetry(next, job.MaxAttempts) {
		delay := d.policy.Backoff(next)
		job.Attempt = next
		job.NotBefore = d.clock.Now().Add(delay)
		job.LastError = err.Error()

		log.WarnContext(ctx, "delivery attempt failed, retrying",
			slog.Duration("backoff", delay),
			slog.String("error", err.Error()),
		)
		if rerr := store.Retry(ctx, job, d.cfg.WorkerID); rerr != nil {
			log.ErrorContext(ctx, "failed to reschedule job", slog.String("error", rerr.Error()))
		}
		return
	}

	job.Attempt = next
	job.LastError = err.Error()
	log.ErrorContext(ctx, "delivery attempts exhausted", slog.String("error", err.Error()))
	d.handler.Exhausted(ctx, job, err)
	if cerr := store.Complete(ctx, job.ID, d.cfg.WorkerID); cerr != nil {
		log.ErrorContext(ctx, "failed to complete exhausted job", slog.String("error", cerr.Error()))
	}
}
