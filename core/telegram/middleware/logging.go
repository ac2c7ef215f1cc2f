// Package middleware holds the handlers wrapped around every update:
// receipt logging, rate limiting, admin checks, panic recovery and reply
// counters.
package middleware

import (
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/patrickmn/go-cache"

	"github.com/landerpin123/uniq-tarot/core/logger"
	"github.com/landerpin123/uniq-tarot/core/telegram/callbacks"
	tghelpers "github.com/landerpin123/uniq-tarot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Update kinds, as named in rate_limit.exclude_updates.
const (
	KindCallback    = "callback"
	KindMessage     = "message"
	KindInlineQuery = "inline_query"
	KindOther       = "other"
)

// UpdateKind classifies an update for logging and rate limiting.
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return KindCallback
	case upd.Message != nil:
		return KindMessage
	case upd.Query != nil:
		return KindInlineQuery
	}
	return KindOther
}

// The logger wraps both the global chain and individual routes, so one update
// can pass through it twice; only the first pass is logged.
var received = cache.New(10*time.Second, time.Minute)

// LoggerMiddleware binds the request context to the update and logs its
// receipt at debug level, sampled.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		upd := c.Update()
		if received.Add(logger.RIDFrom(ctx), struct{}{}, cache.DefaultExpiration) == nil && logger.ShouldSampleDebug() {
			logger.Debug(ctx, "tg", "update.received", receiptAttrs(c, upd)...)
		}
		return next(c)
	}
}

func receiptAttrs(c tele.Context, upd tele.Update) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.String("action", UpdateKind(upd)),
	}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if user := c.Sender(); user != nil {
		if user.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
		}
		if user.LanguageCode != "" {
			attrs = append(attrs, slog.String("lang", user.LanguageCode))
		}
	}

	switch {
	case upd.Callback != nil:
		key, payload := callbacks.ParseCallbackData(upd.Callback)
		attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 64)))
		if payload != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 64)))
		}
	case upd.Message != nil:
		// Free text may be a name or a birth date; only commands are kept.
		if t := c.Text(); strings.HasPrefix(t, "/") {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 64)))
		} else if t != "" {
			attrs = append(attrs, slog.Int("text_len", utf8.RuneCountInString(t)))
		}
	}
	return attrs
}
