package middleware

import (
	"log/slog"

	"github.com/landerpin123/uniq-tarot/core/logger"
	tghelpers "github.com/landerpin123/uniq-tarot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminOptions names the single operator allowed through AdminOnlyMiddleware.
// A zero AdminID locks the route for everyone.
type AdminOptions struct {
	AdminID  int64
	OnReject tele.HandlerFunc
}

func (o AdminOptions) allows(u *tele.User) bool {
	return o.AdminID != 0 && u != nil && u.ID == o.AdminID
}

func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if opts.allows(c.Sender()) {
				return next(c)
			}
			logger.Info(tghelpers.BuildContext(c), "tg", "admin.reject",
				slog.Bool("admin_set", opts.AdminID != 0),
			)
			if opts.OnReject == nil {
				return nil
			}
			return opts.OnReject(c)
		}
	}
}
