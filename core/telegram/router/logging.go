// Package router turns the registry into telebot routes. Every routed
// update ends with one "handler.handled" summary line.
package router

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/landerpin123/uniq-tarot/core/logger"
	tghelpers "github.com/landerpin123/uniq-tarot/core/telegram/helpers"
	"github.com/landerpin123/uniq-tarot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// dispatch runs h under name and logs the summary. A nil h is logged as
// skipped.
func dispatch(c tele.Context, name string, h tele.HandlerFunc, extras ...slog.Attr) error {
	start := time.Now()
	ctx := tghelpers.WithHandler(c, name)

	status := "skip"
	var err error
	if h != nil {
		err = h(c)
		status = "ok"
		if err != nil {
			status = "fail"
		}
	}

	msgs, kb := middleware.GetCounters(c)
	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("outcome", status),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Int64("duration_ms", logger.Took(start).Milliseconds()),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	logger.Info(ctx, "tg", "handler.handled", append(attrs, extras...)...)
	return err
}

// wrap applies the per-route middlewares.
func wrap(h tele.HandlerFunc) tele.HandlerFunc {
	return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
}

func normalizeHandlerName(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

// errorCode is the error's own Code() when it has one, otherwise its type
// name, upper-cased.
func errorCode(err error) string {
	var coded interface{ Code() string }
	if err == nil {
		return ""
	}
	if errors.As(err, &coded) {
		if code := strings.TrimSpace(coded.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	typ := strings.TrimLeft(fmt.Sprintf("%T", err), "*")
	if i := strings.LastIndexByte(typ, '.'); i >= 0 {
		typ = typ[i+1:]
	}
	return strings.ToUpper(typ)
}
