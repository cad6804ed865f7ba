// Package worker runs background jobs on a bounded queue with retries.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/url"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/todobot/core/logger"
)

var (
	// ErrQueueClosed is returned when a job is submitted after Close.
	ErrQueueClosed = errors.New("worker: queue closed")
	// ErrQueueFull indicates the queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("worker: queue full")

	secretRe = regexp.MustCompile(`(bot[0-9]+:[A-Za-z0-9_-]+|password=\S+|://[^:/@\s]+:[^@\s]+@)`)
)

// Options controls the behaviour of a Pool.
type Options struct {
	// Name is the log component of the pool.
	Name         string
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
	// ShouldRetry reports whether a failed attempt is worth repeating. Nil retries
	// every error except context cancellation.
	ShouldRetry func(error) bool
}

// RunFunc is one attempt of a job. It must be idempotent when retries are enabled.
type RunFunc func(ctx context.Context) error

type job struct {
	ctx    context.Context
	action string
	run    RunFunc
}

// Pool executes jobs asynchronously with retries.
type Pool struct {
	opts Options
	jobs chan job
	wg   sync.WaitGroup
	errs atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

// NewPool starts a pool, applying defaults to zeroed options.
func NewPool(opts Options) *Pool {
	if opts.Name == "" {
		opts.Name = "worker"
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}
	if opts.ShouldRetry == nil {
		opts.ShouldRetry = retryUnlessCancelled
	}

	p := &Pool{
		opts: opts,
		jobs: make(chan job, opts.QueueSize),
	}
	p.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go p.worker()
	}
	return p
}

// Enqueue schedules run for asynchronous execution without blocking.
func (p *Pool) Enqueue(ctx context.Context, action string, run RunFunc) error {
	if run == nil {
		return errors.New("worker: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	// Jobs outlive the update that produced them.
	ctx = context.WithoutCancel(ctx)

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrQueueClosed
	}
	select {
	case p.jobs <- job{ctx: ctx, action: action, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// ErrorCount returns the number of jobs that failed after all attempts.
func (p *Pool) ErrorCount() uint64 {
	return p.errs.Load()
}

// Close stops accepting jobs and waits for queued ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		p.handle(j)
	}
}

func (p *Pool) handle(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, p.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := p.opts.MaxRetries + 1
	logger.Debug(ctx, p.opts.Name, "job.start", slog.String("action", j.action))

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		lastErr = j.run(ctx)
		if lastErr == nil {
			attrs := []slog.Attr{
				slog.String("action", j.action),
				slog.Duration("duration", logger.Took(start)),
			}
			if attempt > 1 {
				attrs = append(attrs, slog.Int("attempts", attempt))
			}
			logger.Debug(ctx, p.opts.Name, "job.done", attrs...)
			return
		}
		if !p.opts.ShouldRetry(lastErr) || attempt == attempts {
			break
		}

		delay := p.opts.RetryBackoff * time.Duration(attempt)
		logger.Debug(ctx, p.opts.Name, "job.retry.backoff",
			slog.String("action", j.action),
			slog.Int("attempts", attempt),
			slog.Duration("delay", delay),
			slog.String("err", redact(lastErr)),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			lastErr = ctx.Err()
			attempt = attempts
		case <-timer.C:
		}
	}

	p.errs.Add(1)
	logger.Error(ctx, p.opts.Name, "job.fail",
		slog.String("status", "fail"),
		slog.String("action", j.action),
		slog.String("err", redact(lastErr)),
		slog.String("err_code", ClassifyError(lastErr)),
		slog.Int("attempts", attempts),
		slog.Duration("duration", logger.Took(start)),
	)
}

func retryUnlessCancelled(err error) bool {
	return !errors.Is(err, context.Canceled)
}

// ClassifyError maps err to a coarse kind used in logs.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return "timeout"
		}
		return "dns"
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return "timeout"
		}
		if opErr.Op == "dial" {
			return "dial"
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return "timeout"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	return "unknown"
}

// redact keeps bot tokens and credentials out of logs.
func redact(err error) string {
	if err == nil {
		return ""
	}
	return secretRe.ReplaceAllString(err.Error(), "<redacted>")
}
