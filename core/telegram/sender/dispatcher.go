// Package sender runs outbound work off the update goroutine: Telegram
// sends and edits, and database saves that must not block a reply.
package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/landerpin123/uniq-tarot/core/logger"
	"github.com/landerpin123/uniq-tarot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull is returned when the job did not fit into the queue.
	ErrQueueFull = errors.New("telegram sender: queue full")

	botTokenRe   = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
	statusSuffix = regexp.MustCompile(`\((\d{3})\)\s*$`)
)

// Options controls the behaviour of the outbound dispatcher. Zero values
// select the defaults noted on each field.
type Options struct {
	QueueSize int // 256
	Workers   int // 4
	// MaxRetries is the number of repeats after the first attempt.
	MaxRetries int
	// RetryBackoff grows linearly per attempt; 2s.
	RetryBackoff time.Duration
	// MaxDuration bounds one job including its retries; 12s.
	MaxDuration time.Duration
	// Component names the log component; "tg.sender".
	Component string
	// Retryable decides whether a failed job runs again; netutil.ShouldRetry.
	Retryable func(error) bool
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	o.MaxRetries = max(o.MaxRetries, 0)
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	if o.Component == "" {
		o.Component = "tg.sender"
	}
	if o.Retryable == nil {
		o.Retryable = netutil.ShouldRetry
	}
	return o
}

type task struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

func (t task) attrs() []slog.Attr {
	attrs := []slog.Attr{slog.String("action", t.action)}
	if t.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", t.endpoint))
	}
	return attrs
}

// Dispatcher is a bounded queue drained by a fixed set of workers. With one
// worker tasks run strictly in the order they were enqueued.
type Dispatcher struct {
	opts  Options
	queue chan task

	mu     sync.RWMutex
	closed bool

	stop    sync.Once
	workers sync.WaitGroup
	failed  atomic.Uint64
}

// NewDispatcher starts the workers.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{
		opts:  opts,
		queue: make(chan task, opts.QueueSize),
	}
	d.workers.Add(opts.Workers)
	for range opts.Workers {
		go d.serve()
	}
	return d
}

// Enqueue schedules run without waiting for it. It never blocks: a full
// queue is reported as ErrQueueFull. run may be called more than once when
// it fails with a retryable error.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	return d.submit(ctx, action, endpoint, run, false)
}

// EnqueueWait is Enqueue that waits for room in a full queue instead of
// failing, so a single-worker dispatcher never runs tasks out of order. A
// task that cannot be queued, because ctx ended or the dispatcher is
// closed, is counted in ErrorCount.
func (d *Dispatcher) EnqueueWait(ctx context.Context, action, endpoint string, run func() error) error {
	err := d.submit(ctx, action, endpoint, run, true)
	if err != nil {
		d.failed.Add(1)
	}
	return err
}

func (d *Dispatcher) submit(ctx context.Context, action, endpoint string, run func() error, wait bool) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	t := task{ctx: ctx, action: action, endpoint: endpoint, run: run}

	// Close takes the write lock, so the channel stays open while a sender
	// holds the read lock; the workers keep draining it meanwhile.
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.queue <- t:
		return nil
	default:
	}
	if !wait {
		return ErrQueueFull
	}
	select {
	case d.queue <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len is the number of tasks waiting for a worker.
func (d *Dispatcher) Len() int { return len(d.queue) }

// ErrorCount is the number of tasks that failed for good or were dropped
// by EnqueueWait.
func (d *Dispatcher) ErrorCount() uint64 { return d.failed.Load() }

// Close rejects new tasks and returns once the queued ones have run. It is
// safe to call more than once.
func (d *Dispatcher) Close() {
	d.stop.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
		d.workers.Wait()
	})
}

func (d *Dispatcher) serve() {
	defer d.workers.Done()
	for t := range d.queue {
		d.execute(t)
	}
}

func (d *Dispatcher) execute(t task) {
	ctx, cancel := context.WithTimeout(t.ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts, err := d.attempt(ctx, t)
	attrs := append(t.attrs(),
		slog.Int("attempts", attempts),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
	)
	if err != nil {
		d.failed.Add(1)
		logger.Error(t.ctx, d.opts.Component, "send.fail", append(attrs,
			slog.String("status", "fail"),
			slog.String("err", redactToken(err.Error())),
			slog.String("err_code", errorKind(err)),
		)...)
		return
	}
	logger.Debug(t.ctx, d.opts.Component, "send.ok", attrs...)
}

// attempt runs t until it succeeds, fails permanently, exhausts its retries
// or runs out of time. It returns the number of calls made.
func (d *Dispatcher) attempt(ctx context.Context, t task) (int, error) {
	limit := d.opts.MaxRetries + 1
	var calls int
	for {
		if err := ctx.Err(); err != nil {
			return calls, err
		}
		calls++
		err := t.run()
		if err == nil || calls >= limit || !d.opts.Retryable(err) {
			return calls, err
		}

		delay := netutil.Backoff(err, d.opts.RetryBackoff, calls)
		logger.Debug(t.ctx, d.opts.Component, "send.retry", append(t.attrs(),
			slog.Int("attempts", calls),
			slog.Int64("backoff_ms", delay.Milliseconds()),
			slog.Bool("retryable", true),
		)...)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return calls, errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
}

// errorKind buckets a failure for dashboards: timeout, dns, dial, tls,
// http_4xx, http_5xx or unknown.
func errorKind(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return "timeout"
		}
		return "dns"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return "dial"
	}
	var alert tls.AlertError
	if errors.As(err, &alert) {
		return "tls"
	}

	switch code := statusCode(err); {
	case code >= http.StatusInternalServerError:
		return "http_5xx"
	case code >= http.StatusBadRequest:
		return "http_4xx"
	}
	return "unknown"
}

// statusCode recovers the Bot API status from typed telebot errors or from
// the "(NNN)" suffix telebot appends to untyped ones.
func statusCode(err error) int {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return http.StatusTooManyRequests
	}
	var group tele.GroupError
	if errors.As(err, &group) {
		return http.StatusBadRequest
	}
	if m := statusSuffix.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return code
	}
	return 0
}

// redactToken hides a bot token that leaked into an error, typically via a
// request URL.
func redactToken(msg string) string {
	return botTokenRe.ReplaceAllString(msg, "bot<redacted>")
}
