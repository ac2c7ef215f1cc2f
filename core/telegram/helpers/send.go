// Package helpers lets handlers reply without caring whether an outbound
// dispatcher is running: replies are queued when one is installed and sent
// inline otherwise.
package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/landerpin123/uniq-tarot/core/logger"
	"github.com/landerpin123/uniq-tarot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var outbound atomic.Pointer[sender.Dispatcher]

// SetDispatcher installs the queue used by the send helpers; nil removes it.
func SetDispatcher(d *sender.Dispatcher) {
	outbound.Store(d)
}

// deliver queues run, or calls it directly without a dispatcher. A queue
// that is full or closed does not lose the reply: it is sent inline.
func deliver(c tele.Context, action, endpoint string, run func() error) error {
	d := outbound.Load()
	if d == nil {
		return run()
	}
	ctx := BuildContext(c)
	err := d.Enqueue(ctx, action, endpoint, run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}

// SendText sends plain text, with optional send options, to the chat of c.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	var args []any
	if len(opts) > 0 && opts[0] != nil {
		args = append(args, opts[0])
	}
	return deliver(c, "send.text", "sendMessage", func() error {
		return c.Send(text, args...)
	})
}

// SendMDV2 sends text already escaped for MarkdownV2.
func SendMDV2(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdownV2}
	if len(markup) > 0 {
		opts.ReplyMarkup = markup[0]
	}
	return SendText(c, text, opts)
}

// EditOrSendText replaces the text and keyboard of the message a callback
// came from, or sends a new message when there is nothing to edit.
func EditOrSendText(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	var args []any
	if markup != nil {
		args = append(args, markup)
	}
	return deliver(c, "edit.text", "editMessageText", func() error {
		return c.EditOrSend(text, args...)
	})
}
