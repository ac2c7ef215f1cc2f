package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/landerpin123/uniq-tarot/core/logger"
	tghelpers "github.com/landerpin123/uniq-tarot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// ErrPanic is wrapped by the error returned for a recovered handler panic.
var ErrPanic = errors.New("handler panic")

// RecoverMiddleware turns a handler panic into an error wrapping ErrPanic so
// the poller keeps running and OnError can answer the user.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = panicked(c, r, debug.Stack())
			}
		}()
		return next(c)
	}
}

func panicked(c tele.Context, r any, stack []byte) error {
	logger.Error(tghelpers.BuildContext(c), "tg", "tg.panic",
		slog.String("status", "fail"),
		slog.Any("err", r),
		slog.String("stack", string(stack)),
	)
	if e, ok := r.(error); ok {
		return fmt.Errorf("%w: %w", ErrPanic, e)
	}
	return fmt.Errorf("%w: %v", ErrPanic, r)
}
