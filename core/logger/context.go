package logger

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	metaKey
)

// requestMeta identifies the update a log line belongs to.
type requestMeta struct {
	rid      string
	updateID int
	userID   int64
	chatID   int64
	handler  string
}

func metaFrom(ctx context.Context) requestMeta {
	if ctx == nil {
		return requestMeta{}
	}
	m, _ := ctx.Value(metaKey).(requestMeta)
	return m
}

func withMeta(ctx context.Context, fn func(*requestMeta)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	m := metaFrom(ctx)
	fn(&m)
	return context.WithValue(ctx, metaKey, m)
}

// WithLogger stores a scoped logger in ctx.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey, log)
}

// FromContext returns the logger stored in ctx, or the base logger.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
			return l
		}
	}
	return base.Load()
}

// WithRID attaches the request correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return withMeta(ctx, func(m *requestMeta) { m.rid = rid })
}

// WithUpdateMeta attaches the update, user and chat ids.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	return withMeta(ctx, func(m *requestMeta) {
		m.updateID = updateID
		m.userID = userID
		m.chatID = chatID
	})
}

// WithHandler records which route is serving the update.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return withMeta(ctx, func(m *requestMeta) { m.handler = handler })
}

func RIDFrom(ctx context.Context) string     { return metaFrom(ctx).rid }
func HandlerFrom(ctx context.Context) string { return metaFrom(ctx).handler }
func UserIDFrom(ctx context.Context) int64   { return metaFrom(ctx).userID }
func ChatIDFrom(ctx context.Context) int64   { return metaFrom(ctx).chatID }
func UpdateIDFrom(ctx context.Context) int   { return metaFrom(ctx).updateID }

// attrs lists the non-zero identifiers in log key order.
func (m requestMeta) attrs() []slog.Attr {
	var out []slog.Attr
	if m.rid != "" {
		out = append(out, slog.String("rid", m.rid))
	}
	if m.updateID != 0 {
		out = append(out, slog.Int("update_id", m.updateID))
	}
	if m.userID != 0 {
		out = append(out, slog.Int64("user_id", m.userID))
	}
	if m.chatID != 0 {
		out = append(out, slog.Int64("chat_id", m.chatID))
	}
	if m.handler != "" {
		out = append(out, slog.String("handler", m.handler))
	}
	return out
}
