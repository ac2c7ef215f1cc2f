package sender

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

func TestDispatcherSingleWorkerKeepsOrder(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 64, Component: "persist"})
	var (
		mu  sync.Mutex
		got []int
	)
	for i := 0; i < 50; i++ {
		i := i
		if err := d.Enqueue(context.Background(), "save", "", func() error {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			return nil
		}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	d.Close()

	if len(got) != 50 {
		t.Fatalf("ran %d jobs, want 50", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("job %d ran at position %d", v, i)
		}
	}
}

func TestDispatcherRetriesRetryableErrors(t *testing.T) {
	transient := errors.New("transient")
	d := NewDispatcher(Options{
		Workers:      1,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
		Retryable:    func(err error) bool { return errors.Is(err, transient) },
	})
	var calls int
	_ = d.Enqueue(context.Background(), "save", "", func() error {
		calls++
		if calls < 3 {
			return transient
		}
		return nil
	})
	d.Close()
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if d.ErrorCount() != 0 {
		t.Fatalf("errors = %d", d.ErrorCount())
	}
}

func TestDispatcherCountsPermanentFailures(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond})
	var calls int
	_ = d.Enqueue(context.Background(), "save", "", func() error {
		calls++
		return errors.New("constraint violated")
	})
	d.Close()
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if d.ErrorCount() != 1 {
		t.Fatalf("errors = %d, want 1", d.ErrorCount())
	}
}

func TestDispatcherQueueFullAndClosed(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	started := make(chan struct{})
	release := make(chan struct{})
	_ = d.Enqueue(context.Background(), "block", "", func() error {
		close(started)
		<-release
		return nil
	})
	<-started
	if err := d.Enqueue(context.Background(), "fill", "", func() error { return nil }); err != nil {
		t.Fatalf("fill: %v", err)
	}
	if d.Len() != 1 {
		t.Fatalf("len = %d, want 1", d.Len())
	}
	if err := d.Enqueue(context.Background(), "overflow", "", func() error { return nil }); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("overflow err = %v", err)
	}
	close(release)
	d.Close()
	d.Close()
	if err := d.Enqueue(context.Background(), "late", "", func() error { return nil }); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("late err = %v", err)
	}
	if err := d.Enqueue(context.Background(), "nil", "", nil); err == nil {
		t.Fatal("expected error for nil run")
	}
}

func TestErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{context.DeadlineExceeded, "timeout"},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), "timeout"},
		{&tele.Error{Code: 403, Description: "Forbidden"}, "http_4xx"},
		{errors.New("telegram: internal (502)"), "http_5xx"},
		{errors.New("boom"), "unknown"},
	}
	for _, tc := range cases {
		if got := errorKind(tc.err); got != tc.want {
			t.Errorf("errorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestRedactToken(t *testing.T) {
	got := redactToken(`Post "https://api.telegram.org/bot123456:AAE-token_x/sendMessage": timeout`)
	if got != `Post "https://api.telegram.org/bot<redacted>/sendMessage": timeout` {
		t.Fatalf("sanitized = %q", got)
	}
}

func TestDispatcherHonoursDeadline(t *testing.T) {
	d := NewDispatcher(Options{
		Workers:      1,
		MaxRetries:   10,
		RetryBackoff: 50 * time.Millisecond,
		MaxDuration:  20 * time.Millisecond,
		Retryable:    func(error) bool { return true },
	})
	var calls int
	_ = d.Enqueue(context.Background(), "save", "", func() error {
		calls++
		return errors.New("busy")
	})
	d.Close()
	if calls != 1 || d.ErrorCount() != 1 {
		t.Fatalf("calls=%d errors=%d", calls, d.ErrorCount())
	}
}

func TestDispatcherEnqueueWaitKeepsOrderWhenFull(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1, Component: "persist"})
	release := make(chan struct{})
	started := make(chan struct{})
	var (
		mu  sync.Mutex
		got []int
	)
	record := func(i int) func() error {
		return func() error {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			return nil
		}
	}
	_ = d.EnqueueWait(context.Background(), "block", "", func() error {
		close(started)
		<-release
		return record(0)()
	})
	<-started
	if err := d.EnqueueWait(context.Background(), "queued", "", record(1)); err != nil {
		t.Fatalf("queued: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- d.EnqueueWait(context.Background(), "overflow", "", record(2)) }()
	select {
	case err := <-done:
		t.Fatalf("overflow returned %v before there was room", err)
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("overflow: %v", err)
	}
	d.Close()

	if len(got) != 3 || got[0] != 0 || got[1] != 1 || got[2] != 2 {
		t.Fatalf("order = %v", got)
	}
	if d.ErrorCount() != 0 {
		t.Fatalf("errors = %d", d.ErrorCount())
	}
}

func TestDispatcherEnqueueWaitCountsDrops(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	release := make(chan struct{})
	started := make(chan struct{})
	_ = d.Enqueue(context.Background(), "block", "", func() error {
		close(started)
		<-release
		return nil
	})
	<-started
	_ = d.Enqueue(context.Background(), "fill", "", func() error { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.EnqueueWait(ctx, "late", "", func() error { return nil }); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("full queue err = %v", err)
	}
	close(release)
	d.Close()
	if err := d.EnqueueWait(context.Background(), "closed", "", func() error { return nil }); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("closed err = %v", err)
	}
	if d.ErrorCount() != 2 {
		t.Fatalf("errors = %d, want 2", d.ErrorCount())
	}
}
