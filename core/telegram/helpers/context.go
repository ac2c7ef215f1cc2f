package helpers

import (
	"context"

	"github.com/landerpin123/uniq-tarot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// requestCtxKey holds the logging context of the update in tele.Context.
const requestCtxKey = "request_ctx"

// BuildContext returns the logging context of the update being handled. The
// first call derives it from the update and caches it, so every log line of
// one update carries the same rid.
func BuildContext(c tele.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if ctx, ok := c.Get(requestCtxKey).(context.Context); ok {
		return ctx
	}
	ctx := updateContext(c)
	c.Set(requestCtxKey, ctx)
	return ctx
}

// StoreContext replaces the cached context of the update.
func StoreContext(c tele.Context, ctx context.Context) {
	if c != nil && ctx != nil {
		c.Set(requestCtxKey, ctx)
	}
}

// WithHandler records which handler took the update.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler == "" {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	StoreContext(c, ctx)
	return ctx
}

func updateContext(c tele.Context) context.Context {
	var userID, chatID int64
	if u := c.Sender(); u != nil {
		userID = u.ID
	}
	if ch := c.Chat(); ch != nil {
		chatID = ch.ID
	}
	updateID := c.Update().ID
	ctx := logger.WithRID(context.Background(), logger.BuildRID(updateID, chatID, userID))
	return logger.WithUpdateMeta(ctx, updateID, userID, chatID)
}
