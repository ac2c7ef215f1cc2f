// Package ui holds the answers given to updates that no route could place.
package ui

import (
	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/landerpin123/uniq-tarot/core/telegram/helpers"
)

// FallbackProvider supplies handlers for text, documents and callbacks that
// did not match a command, a registered callback or an active flow.
type FallbackProvider interface {
	UnknownText() tele.HandlerFunc
	UnknownDocument() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}

// Replies answers unplaced updates with fixed texts. OnText, when set,
// takes free text instead of the Text reply. An empty text disables that
// reply.
type Replies struct {
	OnText      tele.HandlerFunc
	Text        string
	Document    string
	StaleButton string
}

var _ FallbackProvider = Replies{}

func (r Replies) UnknownText() tele.HandlerFunc {
	if r.OnText != nil {
		return r.OnText
	}
	return reply(r.Text)
}

func (r Replies) UnknownDocument() tele.HandlerFunc { return reply(r.Document) }

// UnknownCallback sends a message rather than a callback answer: the
// callback router acknowledges the query before any handler runs.
func (r Replies) UnknownCallback() tele.HandlerFunc { return reply(r.StaleButton) }

func reply(text string) tele.HandlerFunc {
	if text == "" {
		return nil
	}
	return func(c tele.Context) error {
		return tghelpers.SendText(c, text)
	}
}
