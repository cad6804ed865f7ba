package middleware

import (
	"log/slog"

	"github.com/m3rciful/todobot/core/logger"
	"github.com/m3rciful/todobot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AccessOptions restricts the chats the bot answers in.
type AccessOptions struct {
	// AllowedChats lists permitted chat ids. Empty allows every chat.
	AllowedChats []int64
	OnReject     tele.HandlerFunc
}

// AllowedChatsMiddleware drops updates from chats outside the allow list.
// Callbacks are checked against the chat of the message carrying the button.
func AllowedChatsMiddleware(opts AccessOptions) tele.MiddlewareFunc {
	allowed := make(map[int64]struct{}, len(opts.AllowedChats))
	for _, id := range opts.AllowedChats {
		allowed[id] = struct{}{}
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		if len(allowed) == 0 {
			return next
		}
		return func(c tele.Context) error {
			chat := c.Chat()
			if chat == nil {
				if cb := c.Callback(); cb != nil && cb.Message != nil {
					chat = cb.Message.Chat
				}
			}
			if chat != nil {
				if _, ok := allowed[chat.ID]; ok {
					return next(c)
				}
			}
			logger.Debug(helpers.BuildContext(c), logger.CompTG, "tg.access",
				slog.String("status", "skip"),
				slog.String("cause", "chat_not_allowed"),
			)
			if opts.OnReject != nil {
				return opts.OnReject(c)
			}
			return nil
		}
	}
}
