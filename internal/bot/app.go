package bot

import (
	"context"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/landerpin123/uniq-tarot/core/logger"
	tg "github.com/landerpin123/uniq-tarot/core/telegram"
	"github.com/landerpin123/uniq-tarot/core/telegram/commands"
	tghelpers "github.com/landerpin123/uniq-tarot/core/telegram/helpers"
	"github.com/landerpin123/uniq-tarot/core/telegram/router"
	"github.com/landerpin123/uniq-tarot/internal/reading"
)

// Registry builds the command and callback table.
func (b *Bot) Registry() (*tg.Registry, error) {
	reg := tg.NewRegistry()
	reg.RegisterCommand("/start", commands.Command{Handler: b.onStart, Description: "Начать работу с ботом"})
	reg.RegisterCommand("/register", commands.Command{Handler: b.onRegister, Description: "Регистрация"})
	reg.RegisterCommand("/tarot", commands.Command{Handler: b.onTarot, Description: "Сделать расклад", Aliases: []string{"таро"}})
	reg.RegisterCommand("/balance", commands.Command{Handler: b.onBalance, Description: "Баланс"})
	reg.RegisterCommand("/history", commands.Command{Handler: b.onHistory, Description: "Последние расклады"})
	reg.RegisterCommand("/sessions", commands.Command{Handler: b.onSessions, Description: "Активные сессии", AdminOnly: true, Hidden: true})
	reg.RegisterCommand("/help", commands.Command{
		Handler: func(c tele.Context) error {
			return tghelpers.SendText(c, helpText(reg.ListCommands(true)))
		},
		Description: "Список команд",
	})

	if err := reg.RegisterCallback(reading.ActionSpread, b.onSpread); err != nil {
		return nil, err
	}
	if err := reg.RegisterCallback(reading.ActionPick, b.onPick); err != nil {
		return nil, err
	}
	reg.SetCallbackNotFound(b.fallbacks().UnknownCallback())
	return reg, nil
}

// TelegramRunOptions wires routes, middlewares and lifecycle hooks for the
// Telegram runtime.
func (b *Bot) TelegramRunOptions() (tg.RunOptions, error) {
	reg, err := b.Registry()
	if err != nil {
		return tg.RunOptions{}, err
	}
	core := b.cfg.CoreConfig()
	text, callback := router.Fallbacks(b.fallbacks())

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID:       core.Telegram.AdminID,
		OnAdminReject: b.onAdminReject,
	})
	routes = append(routes, router.CallbackRoute(reg, callback))
	routes = append(routes, router.TextRoutes(registrationFlow{b: b}, reg, text)...)

	return tg.RunOptions{
		Config:      core,
		Registry:    reg,
		Middlewares: tg.DefaultMiddlewares(core, b.onRateLimited),
		Routes:      routes,
		OnError:     b.onError,
		OnStart: func(ctx context.Context, _ tg.Runtime) error {
			logger.Info(ctx, "service.sessions", "ready",
				slog.Int("spreads", len(b.machine.Spreads().All())),
			)
			return nil
		},
		OnStop: func(ctx context.Context, _ tg.Runtime) error {
			queued := b.persist.Len()
			b.Close()
			logger.Info(ctx, "persist", "drained",
				slog.Int("queue_len", queued),
				slog.Int("sessions", b.store.Len()),
			)
			return nil
		},
	}, nil
}
