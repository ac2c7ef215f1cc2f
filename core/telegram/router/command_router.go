package router

import (
	"context"
	"log/slog"

	"github.com/landerpin123/uniq-tarot/core/logger"
	tg "github.com/landerpin123/uniq-tarot/core/telegram"
	"github.com/landerpin123/uniq-tarot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes returns one route per registered command, sorted by name.
// Admin-only commands check the sender before the handler runs.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	adminOnly := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})

	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds))
	for _, listed := range reg.ListCommands(false) {
		name, cmd := listed.Text, cmds[listed.Text]
		h := cmd.Handler
		if cmd.AdminOnly {
			h = adminOnly(h)
		}
		handlerName := normalizeHandlerName(name)
		routes = append(routes, tg.Route{
			Endpoint: name,
			Handler:  wrap(func(c tele.Context) error { return dispatch(c, handlerName, h) }),
		})
	}

	logger.Info(context.Background(), "tg.wire", "complete",
		slog.Int("count", len(routes)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}
