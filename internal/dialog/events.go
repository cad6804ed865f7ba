package dialog

import (
	"strings"

	"github.com/m3rciful/todobot/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// Event is an inbound update as seen by the conversation.
// It is one of TextEvent, ChoiceEvent or UnsupportedEvent.
type Event interface {
	Sender() (chatID, userID int64)
	Kind() string
	isEvent()
}

// Quoted is the message a text message replies to.
type Quoted struct {
	MessageID int
	Text      string
}

// TextEvent is a text message, or the caption of a media message.
type TextEvent struct {
	ChatID    int64
	UserID    int64
	MessageID int
	Text      string
	ReplyTo   *Quoted
}

// ChoiceEvent is a press on one of the prompt buttons.
type ChoiceEvent struct {
	ChatID    int64
	UserID    int64
	MessageID int
	Value     string
}

// UnsupportedEvent is any other update. Every state ignores it.
type UnsupportedEvent struct {
	ChatID int64
	UserID int64
	Update string // kind of update, e.g. "media"
}

func (e TextEvent) Sender() (int64, int64)        { return e.ChatID, e.UserID }
func (e ChoiceEvent) Sender() (int64, int64)      { return e.ChatID, e.UserID }
func (e UnsupportedEvent) Sender() (int64, int64) { return e.ChatID, e.UserID }

func (TextEvent) Kind() string   { return "text" }
func (ChoiceEvent) Kind() string { return "choice" }
func (e UnsupportedEvent) Kind() string {
	if e.Update == "" {
		return "unsupported"
	}
	return e.Update
}

func (TextEvent) isEvent()        {}
func (ChoiceEvent) isEvent()      {}
func (UnsupportedEvent) isEvent() {}

// EventFromContext converts a telebot update into an Event. Callbacks whose unique key
// is neither empty nor choiceKey become UnsupportedEvent.
func EventFromContext(c tele.Context, choiceKey string) Event {
	var userID int64
	if u := c.Sender(); u != nil {
		userID = u.ID
	}

	if cb := c.Callback(); cb != nil {
		chatID := userID
		msgID := 0
		if cb.Message != nil {
			msgID = cb.Message.ID
			if cb.Message.Chat != nil {
				chatID = cb.Message.Chat.ID
			}
		}
		key, payload := callbacks.ParseCallbackData(cb)
		if key != "" && key != choiceKey {
			return UnsupportedEvent{ChatID: chatID, UserID: userID, Update: "callback"}
		}
		return ChoiceEvent{ChatID: chatID, UserID: userID, MessageID: msgID, Value: payload}
	}

	var chatID int64
	if ch := c.Chat(); ch != nil {
		chatID = ch.ID
	}
	msg := c.Message()
	if msg == nil {
		return UnsupportedEvent{ChatID: chatID, UserID: userID}
	}
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if text == "" {
		return UnsupportedEvent{ChatID: chatID, UserID: userID, Update: "media"}
	}

	ev := TextEvent{ChatID: chatID, UserID: userID, MessageID: msg.ID, Text: text}
	if r := msg.ReplyTo; r != nil {
		quoted := r.Text
		if quoted == "" {
			quoted = r.Caption
		}
		ev.ReplyTo = &Quoted{MessageID: r.ID, Text: quoted}
	}
	return ev
}

// isCommand reports whether text starts with command, optionally addressed as command@bot.
// An empty botName accepts any addressee.
func isCommand(text, command, botName string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 || command == "" {
		return false
	}
	head, addressee, addressed := strings.Cut(fields[0], "@")
	if head != command {
		return false
	}
	if !addressed || botName == "" {
		return true
	}
	return strings.EqualFold(addressee, strings.TrimPrefix(botName, "@"))
}
