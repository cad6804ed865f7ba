package middleware

import tele "gopkg.in/telebot.v4"

// Update kinds used in logs, metrics and rate limit exclusions.
const (
	KindCallback = "callback"
	KindMessage  = "message"
	KindMedia    = "media"
	KindEdited   = "edited"
	KindOther    = "other"
)

// UpdateKind classifies upd.
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return KindCallback
	case upd.Message != nil:
		if upd.Message.Text == "" && upd.Message.Media() != nil {
			return KindMedia
		}
		return KindMessage
	case upd.EditedMessage != nil:
		return KindEdited
	}
	return KindOther
}
