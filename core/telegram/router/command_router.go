package router

import (
	"log/slog"
	"time"

	"github.com/m3rciful/todobot/core/logger"
	tg "github.com/m3rciful/todobot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// CommandRoutes turns every registered command and alias into a route.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		name := normalizeHandlerName(cmd)
		h := def.Handler
		wrapped := func(c tele.Context) error {
			return handleWithSummary(c, name, time.Now(), "", "", func() error { return h(c) })
		}
		routes = append(routes, tg.Route{Endpoint: cmd, Handler: wrapped})
		for _, alias := range def.Aliases {
			if alias == "" {
				continue
			}
			if alias[0] != '/' {
				alias = "/" + alias
			}
			routes = append(routes, tg.Route{Endpoint: alias, Handler: wrapped})
		}
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "complete"),
		slog.Int("commands", len(reg.Commands())),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)

	return routes
}
