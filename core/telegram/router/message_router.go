package router

import (
	"time"

	tg "github.com/m3rciful/todobot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// Conversation is a multi-step dialogue that takes over plain messages while active.
type Conversation interface {
	Active(userID int64) bool
	Handle(c tele.Context) error
}

// TextOptions controls fallback behaviour for text and media updates.
type TextOptions struct {
	UnknownText  tele.HandlerFunc
	UnknownMedia tele.HandlerFunc
}

// TextRoutes builds handlers for plain text and media messages. Messages go to the
// conversation while it is active for the sender, then to command lookup, then to
// the fallbacks.
func TextRoutes(conv Conversation, reg *tg.Registry, opts TextOptions) []tg.Route {
	active := func(c tele.Context) bool {
		return conv != nil && c.Sender() != nil && conv.Active(c.Sender().ID)
	}

	handler := func(c tele.Context) error {
		start := time.Now()

		if active(c) {
			return handleWithSummary(c, "dialog", start, "", "", func() error {
				return conv.Handle(c)
			})
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil {
				return handleWithSummary(c, normalizeHandlerName(key), start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	mediaHandler := func(c tele.Context) error {
		start := time.Now()
		if active(c) {
			return handleWithSummary(c, "dialog_media", start, "", "", func() error {
				return conv.Handle(c)
			})
		}
		if opts.UnknownMedia != nil {
			return handleWithSummary(c, "unexpected_media", start, "", "", func() error {
				return opts.UnknownMedia(c)
			})
		}
		logHandlerSummary(c, "unexpected_media", start, "skip", "ok", nil)
		return nil
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: handler},
		{Endpoint: tele.OnMedia, Handler: mediaHandler},
	}
}
