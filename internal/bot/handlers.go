package bot

import (
	"context"
	"errors"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/landerpin123/uniq-tarot/core/logger"
	"github.com/landerpin123/uniq-tarot/core/telegram/callbacks"
	"github.com/landerpin123/uniq-tarot/core/telegram/middleware"
	tghelpers "github.com/landerpin123/uniq-tarot/core/telegram/helpers"
	"github.com/landerpin123/uniq-tarot/internal/reading"
)

const (
	textHint        = "🔮 Используйте /tarot для расклада или /help для списка команд."
	textHintNew     = "🔮 Для начала введите /start"
	textOnlyText    = "📎 Я понимаю только текст и кнопки."
	textStaleButton = "⌛ Кнопка устарела. Откройте меню заново: /tarot"
	textAdminOnly   = "⛔ Команда недоступна."
	textSlowDown    = "⏳ Слишком часто. Подождите немного."
)

type transition func(ctx context.Context, userID int64) (reading.Result, error)

// handle runs a transition for the sender and replies with its directive.
func (b *Bot) handle(c tele.Context, t transition) error {
	user := c.Sender()
	if user == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	res, err := t(ctx, user.ID)
	return b.respond(c, ctx, user.ID, res, err, false)
}

// respond persists a successful result and renders its directive. Rejected
// transitions answer with their user message; internal faults answer with
// the generic failure and are returned for the router to log.
func (b *Bot) respond(c tele.Context, ctx context.Context, userID int64, res reading.Result, err error, edit bool) error {
	if err != nil {
		var re *reading.Error
		if errors.As(err, &re) {
			logger.Debug(ctx, "tg", "transition.rejected",
				slog.String("status", "skip"),
				slog.String("err_code", re.Code()),
			)
			return tghelpers.SendText(c, reading.UserMessage(err))
		}
		if sendErr := tghelpers.SendText(c, reading.GenericFailure); sendErr != nil {
			return errors.Join(err, sendErr)
		}
		return err
	}

	b.persistResult(ctx, userID, res)
	if res.Directive.Empty() {
		return nil
	}
	markup := renderChoices(res.Directive.Choices)
	if edit {
		return tghelpers.EditOrSendText(c, res.Directive.Text, markup)
	}
	if markup == nil {
		return tghelpers.SendText(c, res.Directive.Text)
	}
	return tghelpers.SendText(c, res.Directive.Text, &tele.SendOptions{ReplyMarkup: markup})
}

func (b *Bot) onStart(c tele.Context) error {
	return b.handle(c, b.machine.Start)
}

func (b *Bot) onRegister(c tele.Context) error {
	return b.handle(c, b.machine.Register)
}

func (b *Bot) onTarot(c tele.Context) error {
	return b.handle(c, b.machine.ChooseSpreadMenu)
}

func (b *Bot) onBalance(c tele.Context) error {
	return b.handle(c, b.machine.Balance)
}

// onText feeds free text to registration. Text that registration does not
// want gets a hint.
func (b *Bot) onText(c tele.Context) error {
	user := c.Sender()
	if user == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	res, err := b.machine.SubmitText(ctx, user.ID, c.Text())
	switch {
	case errors.Is(err, reading.ErrNotRegistered):
		return tghelpers.SendText(c, textHintNew)
	case err == nil && res.Directive.Empty():
		return tghelpers.SendText(c, textHint)
	}
	return b.respond(c, ctx, user.ID, res, err, false)
}

func (b *Bot) onSpread(c tele.Context) error {
	name := callbacks.CallbackPayload(c)
	return b.handle(c, func(ctx context.Context, userID int64) (reading.Result, error) {
		return b.machine.StartSpread(ctx, userID, name)
	})
}

func (b *Bot) onPick(c tele.Context) error {
	user := c.Sender()
	if user == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	idx, err := callbacks.PayloadInt(c)
	if err != nil {
		return b.respond(c, ctx, user.ID, reading.Result{}, reading.ErrIndexOutOfRange, false)
	}
	res, err := b.machine.PickCard(ctx, user.ID, idx)
	return b.respond(c, ctx, user.ID, res, err, err == nil)
}

func (b *Bot) onHistory(c tele.Context) error {
	user := c.Sender()
	if user == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	list, err := b.history.RecentReadings(ctx, user.ID, b.historyLimit)
	if err != nil {
		_ = tghelpers.SendText(c, reading.GenericFailure)
		return err
	}
	return tghelpers.SendMDV2(c, historyText(list))
}

func (b *Bot) onSessions(c tele.Context) error {
	return tghelpers.SendText(c, sessionsText(b.store.Stats(), b.persist.Len(), b.persist.ErrorCount()))
}

func (b *Bot) onAdminReject(c tele.Context) error {
	return tghelpers.SendText(c, textAdminOnly)
}

func (b *Bot) onRateLimited(c tele.Context) error {
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: textSlowDown})
	}
	return tghelpers.SendText(c, textSlowDown)
}

// onError receives errors that escaped the routes. Recovered panics get the
// generic failure message.
func (b *Bot) onError(err error, c tele.Context) {
	ctx := context.Background()
	if c != nil {
		ctx = tghelpers.BuildContext(c)
	}
	logger.Error(ctx, "tg", "handler.error",
		slog.String("status", "fail"),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
	if c != nil && c.Sender() != nil && errors.Is(err, middleware.ErrPanic) {
		_ = tghelpers.SendText(c, reading.GenericFailure)
	}
}
