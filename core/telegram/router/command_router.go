package router

import (
	"log/slog"
	"time"

	"github.com/m3rciful/vtubot/core/logger"
	tg "github.com/m3rciful/vtubot/core/telegram"
	"github.com/m3rciful/vtubot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// wrap applies the per-route recovery and logging middleware.
func wrap(h tele.HandlerFunc) tele.HandlerFunc {
	return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
}

// CommandRoutes returns one route per registered slash command.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}
	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds))
	for key, cmd := range cmds {
		name, handle := handlerName(key), cmd.Handler
		routes = append(routes, tg.Route{
			Endpoint: key,
			Handler: wrap(func(c tele.Context) error {
				return newSummary(name, time.Now()).run(c, func() error { return handle(c) })
			}),
		})
	}

	logger.Info(logger.Background(), "tg.wire", "complete",
		slog.Int("commands", len(cmds)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}
