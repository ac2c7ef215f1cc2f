package logger

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

// sink receives lines at or above minLevel.
type sink struct {
	w        *bufio.Writer
	minLevel slog.Level
}

type line struct {
	level slog.Level
	data  []byte
}

// asyncWriter moves formatting off the write path: handlers enqueue lines
// and a single goroutine fans them out to the sinks. Only that goroutine
// touches the sinks.
type asyncWriter struct {
	queue   chan line
	flushCh chan chan error
	done    chan struct{}
	sinks   []sink

	mu     sync.RWMutex
	closed bool

	errMu sync.Mutex
	err   error
}

func newAsyncWriter(sinks []sink) *asyncWriter {
	w := &asyncWriter{
		queue:   make(chan line, 256),
		flushCh: make(chan chan error),
		done:    make(chan struct{}),
		sinks:   sinks,
	}
	go w.loop()
	return w
}

// bufferedSink wraps out for use with newAsyncWriter.
func bufferedSink(out io.Writer, minLevel slog.Level) sink {
	return sink{w: bufio.NewWriterSize(out, 64*1024), minLevel: minLevel}
}

func (w *asyncWriter) loop() {
	defer close(w.done)
	for {
		select {
		case l, ok := <-w.queue:
			if !ok {
				w.setErr(w.flushAll())
				return
			}
			w.setErr(w.writeLine(l))
		case ack := <-w.flushCh:
			ack <- w.flushAll()
		}
	}
}

// Write queues a copy of p. It blocks when the queue is full rather than
// drop lines.
func (w *asyncWriter) Write(level slog.Level, p []byte) error {
	if err := w.firstErr(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	w.queue <- line{level: level, data: append([]byte(nil), p...)}
	return nil
}

// Flush waits until every queued line has reached the sinks.
func (w *asyncWriter) Flush() error {
	ack := make(chan error, 1)
	select {
	case w.flushCh <- ack:
		return errors.Join(w.firstErr(), <-ack)
	case <-w.done:
		return w.firstErr()
	}
}

// Close drains the queue and returns the first write error seen.
func (w *asyncWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
	return w.firstErr()
}

func (w *asyncWriter) writeLine(l line) error {
	for _, s := range w.sinks {
		if l.level < s.minLevel {
			continue
		}
		if _, err := s.w.Write(l.data); err != nil {
			return err
		}
		if err := s.w.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (w *asyncWriter) flushAll() error {
	var errs []error
	for _, s := range w.sinks {
		errs = append(errs, s.w.Flush())
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) firstErr() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}

func (w *asyncWriter) setErr(err error) {
	if err == nil {
		return
	}
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.err == nil {
		w.err = err
	}
}
