package router

import (
	"log/slog"

	tg "github.com/landerpin123/uniq-tarot/core/telegram"
	"github.com/landerpin123/uniq-tarot/core/telegram/callbacks"
	"github.com/landerpin123/uniq-tarot/core/telegram/ui"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	// NotFound runs when neither a registered handler nor the registry
	// fallback claims the key.
	NotFound tele.HandlerFunc
}

// Fallbacks splits a provider into the options taken by TextRoutes and
// CallbackRoute.
func Fallbacks(p ui.FallbackProvider) (TextOptions, CallbackOptions) {
	if p == nil {
		return TextOptions{}, CallbackOptions{}
	}
	return TextOptions{
			UnknownText:     p.UnknownText(),
			UnknownDocument: p.UnknownDocument(),
		}, CallbackOptions{
			NotFound: p.UnknownCallback(),
		}
}

// CallbackRoute dispatches every callback query by the key before "|". The
// query is acknowledged first so the client stops its spinner even when the
// handler is slow or fails.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		key, _ := callbacks.ParseCallbackData(cb)
		name := "callback." + normalizeHandlerName(key)
		extras := []slog.Attr{slog.String("cb_key", key)}

		_ = c.Respond()

		run, found := lookupCallback(reg, key)
		if !found {
			extras = append(extras, slog.String("reason", "not_found"))
			if run = reg.CallbackNotFound(); run == nil {
				run = opts.NotFound
			}
		}
		return dispatch(c, name, run, extras...)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  wrap(handler),
	}
}

func lookupCallback(reg *tg.Registry, key string) (tele.HandlerFunc, bool) {
	if reg == nil {
		return nil, false
	}
	h, ok := reg.GetCallback(key)
	return h, ok && h != nil
}
