// Package transport sends and edits dialogue prompts through the Telegram Bot API.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/m3rciful/todobot/core/logger"
	"github.com/m3rciful/todobot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// DefaultUnique is the callback key carried by prompt buttons.
const DefaultUnique = "choice"

// Choice is one labelled option of a prompt. Value travels back in the callback payload.
type Choice struct {
	Label string
	Value string
}

// Prompt is an outbound message with optional choice buttons.
type Prompt struct {
	ChatID  int64
	Text    string
	Choices []Choice
	// ReplyTo is the message id to reply to; 0 sends a plain message.
	ReplyTo int
}

// MessageRef identifies a message that was sent and may be edited later.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// MessageSig implements tele.Editable.
func (r MessageRef) MessageSig() (string, int64) {
	return strconv.Itoa(r.MessageID), r.ChatID
}

// Messenger is the subset of *tele.Bot the transport needs.
type Messenger interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Options tunes button rendering.
type Options struct {
	// Unique is the callback key of prompt buttons; defaults to DefaultUnique.
	Unique string
	// PerRow caps the number of buttons per row; 0 keeps all on one row.
	PerRow int
}

// Telegram renders prompts as Telegram messages with inline keyboards.
type Telegram struct {
	api  Messenger
	opts Options
}

// New wraps api.
func New(api Messenger, opts Options) *Telegram {
	if opts.Unique == "" {
		opts.Unique = DefaultUnique
	}
	return &Telegram{api: api, opts: opts}
}

// Send posts p as a new message and returns its reference.
func (t *Telegram) Send(ctx context.Context, p Prompt) (MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return MessageRef{}, err
	}
	opts := &tele.SendOptions{ReplyMarkup: t.markup(p.Choices)}
	if p.ReplyTo != 0 {
		opts.ReplyTo = &tele.Message{ID: p.ReplyTo, Chat: &tele.Chat{ID: p.ChatID}}
	}
	msg, err := t.api.Send(tele.ChatID(p.ChatID), p.Text, opts)
	if err != nil {
		return MessageRef{}, fmt.Errorf("transport: send message: %w", err)
	}
	ref := MessageRef{ChatID: p.ChatID}
	if msg != nil {
		ref.MessageID = msg.ID
		if msg.Chat != nil {
			ref.ChatID = msg.Chat.ID
		}
	}
	logger.Debug(ctx, logger.CompTG, "prompt.sent",
		slog.Int64("chat_id", ref.ChatID),
		slog.Int("message_id", ref.MessageID),
		slog.Int("choices", len(p.Choices)),
	)
	return ref, nil
}

// Edit replaces text and buttons of ref. A prompt without choices removes the keyboard.
func (t *Telegram) Edit(ctx context.Context, ref MessageRef, p Prompt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opts := &tele.SendOptions{ReplyMarkup: t.markup(p.Choices)}
	if _, err := t.api.Edit(ref, p.Text, opts); err != nil {
		return fmt.Errorf("transport: edit message %d: %w", ref.MessageID, err)
	}
	logger.Debug(ctx, logger.CompTG, "prompt.edited",
		slog.Int64("chat_id", ref.ChatID),
		slog.Int("message_id", ref.MessageID),
		slog.Int("choices", len(p.Choices)),
	)
	return nil
}

func (t *Telegram) markup(choices []Choice) *tele.ReplyMarkup {
	if len(choices) == 0 {
		return nil
	}
	btns := make([]keyboard.InlineBtn, 0, len(choices))
	for _, c := range choices {
		btns = append(btns, keyboard.InlineBtn{Text: c.Label, Unique: t.opts.Unique, Data: c.Value})
	}
	return keyboard.InlineButtonsNPerRow(btns, t.opts.PerRow)
}
