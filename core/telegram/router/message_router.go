package router

import (
	tg "github.com/landerpin123/uniq-tarot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// FSM claims text from users who are in the middle of a multi-step flow.
type FSM interface {
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// TextOptions controls fallback behaviour for text/document updates.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes routes text and documents. A user inside a flow always reaches
// the FSM. Other text may name a command or an alias; the rest goes to the
// fallbacks.
func TextRoutes(flow FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	onText := func(c tele.Context) error {
		if inFlow(flow, c) {
			return dispatch(c, "fsm", flow.ManagerHandler)
		}
		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok {
				return dispatch(c, normalizeHandlerName(key), cmd.Handler)
			}
		}
		return dispatch(c, "unknown_text", opts.UnknownText)
	}
	onDocument := func(c tele.Context) error {
		if inFlow(flow, c) {
			return dispatch(c, "fsm_document", flow.ManagerHandler)
		}
		return dispatch(c, "unexpected_document", opts.UnknownDocument)
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(onText)},
		{Endpoint: tele.OnDocument, Handler: wrap(onDocument)},
	}
}

func inFlow(flow FSM, c tele.Context) bool {
	return flow != nil && c.Sender() != nil && flow.InProgress(c.Sender().ID)
}
