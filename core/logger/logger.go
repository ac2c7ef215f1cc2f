// Package logger is the structured slog setup shared by every component:
// a fixed key order, compact request ids, an asynchronous writer with an
// optional errors-only file and sampled debug output.
package logger

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/landerpin123/uniq-tarot/core/buildinfo"
	coreconfig "github.com/landerpin123/uniq-tarot/core/config"
)

var (
	initOnce sync.Once
	stopOnce sync.Once

	base     atomic.Pointer[slog.Logger]
	levelVar slog.LevelVar

	logWriter  *asyncWriter
	logClosers []io.Closer

	debugSampler  = newRatioSampler(1, 50)
	traceOverride atomic.Bool
)

// settings is the resolved logging section of the config.
type settings struct {
	format     logFormat
	keyOrder   []string
	level      slog.Level
	sampleNum  int
	sampleDen  int
	profile    string
	botPath    string
	errorsPath string
}

func resolveSettings(cfg *coreconfig.Config) settings {
	s := settings{
		format:    formatJSON,
		keyOrder:  append([]string(nil), defaultKeyOrder...),
		level:     slog.LevelInfo,
		sampleNum: 1,
		sampleDen: 50,
		profile:   "prod",
	}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging
	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}

	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}

	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		s.level = slog.LevelDebug
	case "warn", "warning":
		s.level = slog.LevelWarn
	case "error":
		s.level = slog.LevelError
	}

	if raw := strings.TrimSpace(lc.KeysOrder); raw != "" && raw != "default" {
		var order []string
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				order = append(order, k)
			}
		}
		if len(order) > 0 {
			s.keyOrder = order
		}
	}

	if spec := strings.TrimSpace(lc.DebugSample); spec != "" {
		s.sampleNum, s.sampleDen = parseRatioSpec(spec)
	}

	if dir := strings.TrimSpace(lc.Dir); dir != "" {
		if f := strings.TrimSpace(lc.BotFile); f != "" {
			s.botPath = filepath.Join(dir, f)
		}
		if f := strings.TrimSpace(lc.ErrorsFile); f != "" {
			s.errorsPath = filepath.Join(dir, f)
		}
	}
	return s
}

// InitLogger installs the structured logger as the slog default. Only the
// first call has any effect.
func InitLogger(cfg *coreconfig.Config) error {
	initOnce.Do(func() {
		s := resolveSettings(cfg)
		levelVar.Set(s.level)
		debugSampler.Set(s.sampleNum, s.sampleDen)
		traceOverride.Store(isTruthy(os.Getenv("TRACE")) || isTruthy(os.Getenv("LOG_TRACE")))

		sinks, closers := openSinks(s)
		logClosers = closers
		logWriter = newAsyncWriter(sinks)

		l := slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   logWriter,
			format:   s.format,
			keyOrder: s.keyOrder,
		}))
		base.Store(l)
		slog.SetDefault(l)

		Info(context.Background(), "app", "startup",
			slog.String("go_version", runtime.Version()),
			slog.String("build_version", buildinfo.Version),
			slog.String("build_commit", buildinfo.Commit),
			slog.String("build_time", buildinfo.Date),
			slog.String("cfg_profile", s.profile),
		)
	})
	return nil
}

// openSinks always logs to stdout. The bot file gets every line and the
// errors file only ERROR and above. A file that cannot be opened is
// reported and skipped.
func openSinks(s settings) ([]sink, []io.Closer) {
	sinks := []sink{bufferedSink(os.Stdout, slog.LevelDebug)}
	var closers []io.Closer
	for _, f := range []struct {
		path string
		min  slog.Level
	}{
		{s.botPath, slog.LevelDebug},
		{s.errorsPath, slog.LevelError},
	} {
		if f.path == "" {
			continue
		}
		out, err := openLogFile(f.path)
		if err != nil {
			log.Printf("logger: %v", err)
			continue
		}
		sinks = append(sinks, bufferedSink(out, f.min))
		closers = append(closers, out)
	}
	return sinks, closers
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// Shutdown flushes queued lines and closes the log files.
func Shutdown() error {
	var err error
	stopOnce.Do(func() {
		var errs []error
		if logWriter != nil {
			errs = append(errs, logWriter.Close())
		}
		for _, c := range logClosers {
			errs = append(errs, c.Close())
		}
		err = errors.Join(errs...)
	})
	return err
}

// Component returns the base logger scoped to component, or nil before
// InitLogger.
func Component(name string) *slog.Logger {
	l := base.Load()
	if l == nil {
		return nil
	}
	if name = strings.TrimSpace(name); name == "" {
		return l
	}
	return l.With("component", name)
}

// Event logs one event line. The logger comes from the component scope, or
// from ctx when the base logger is not installed yet.
func Event(ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) {
	if ctx == nil {
		ctx = context.Background()
	}
	l := Component(component)
	if l == nil {
		if l = FromContext(ctx); l == nil {
			return
		}
		if c := strings.TrimSpace(component); c != "" {
			l = l.With("component", c)
		}
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	l.LogAttrs(ctx, level, "", attrs...)
}

func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// ShouldSampleDebug reports whether a high-volume debug line should be
// written. TRACE=1 lets every line through.
func ShouldSampleDebug() bool {
	return traceOverride.Load() || debugSampler.Allow()
}
