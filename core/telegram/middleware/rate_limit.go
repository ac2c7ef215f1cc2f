package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/landerpin123/uniq-tarot/core/logger"
	tghelpers "github.com/landerpin123/uniq-tarot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	// Interval is the minimum gap between two updates of one user.
	Interval time.Duration
	// Exclude lists update kinds that are never throttled.
	Exclude map[string]struct{}
	// OnLimited answers a dropped update.
	OnLimited tele.HandlerFunc
}

// RateLimitMiddleware drops an update that arrives within Interval of the
// previous accepted update from the same user. Dropped updates do not
// extend the window.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	if opts.Interval <= 0 {
		return func(next tele.HandlerFunc) tele.HandlerFunc { return next }
	}
	lastSeen := cache.New(opts.Interval, max(opts.Interval, time.Minute))

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil {
				return next(c)
			}
			kind := UpdateKind(c.Update())
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}

			if lastSeen.Add(strconv.FormatInt(user.ID, 10), struct{}{}, cache.DefaultExpiration) == nil {
				return next(c)
			}
			logger.Warn(tghelpers.BuildContext(c), "tg", "rate_limit",
				slog.String("status", "rate_limited"),
				slog.String("action", kind),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
