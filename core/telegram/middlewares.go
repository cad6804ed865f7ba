package telegram

import (
	"strings"
	"time"

	coreconfig "github.com/m3rciful/todobot/core/config"
	"github.com/m3rciful/todobot/core/metrics"
	"github.com/m3rciful/todobot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares builds the global middleware chain.
func DefaultMiddlewares(cfg *coreconfig.Config, rec *metrics.Recorder, onLimited tele.HandlerFunc) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "logger", Use: middleware.LoggerMiddleware},
		{Name: "metrics", Use: middleware.UpdateMetricsMiddleware(rec)},
	}
	if cfg == nil {
		return mws
	}

	if len(cfg.Telegram.AllowedChats) > 0 {
		mws = append(mws, Middleware{
			Name: "access",
			Use:  middleware.AllowedChatsMiddleware(middleware.AccessOptions{AllowedChats: cfg.Telegram.AllowedChats}),
		})
	}

	if interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond; interval > 0 {
		ex := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
		for _, t := range cfg.RateLimit.ExcludeUpdates {
			ex[strings.ToLower(t)] = struct{}{}
		}
		mws = append(mws, Middleware{
			Name: "rate_limit",
			Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
				Interval:  interval,
				Exclude:   ex,
				OnLimited: onLimited,
			}),
		})
	}
	return mws
}
