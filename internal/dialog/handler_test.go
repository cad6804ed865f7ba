package dialog

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/todobot/core/metrics"
	"github.com/m3rciful/todobot/core/telegram/callbacks"
	"github.com/m3rciful/todobot/core/telegram/state"
)

func TestHandlerCreatesOneSessionPerUser(t *testing.T) {
	tr := newFakeTransport()
	h := NewHandler(tr, nil, "", Options{Metrics: metrics.New()})
	ctx := context.Background()

	require.NoError(t, h.HandleEvent(ctx, trigger("first")))
	other := trigger("second")
	other.UserID = 8
	other.ChatID = 8
	require.NoError(t, h.HandleEvent(ctx, other))
	require.NoError(t, h.HandleEvent(ctx, choice("Bug")))

	assert.Equal(t, 2, h.Sessions().Len())
	first, ok := h.Sessions().Lookup(userID)
	require.True(t, ok)
	assert.Equal(t, StateWaitForBoard, first.State())
	second, ok := h.Sessions().Lookup(8)
	require.True(t, ok)
	assert.Equal(t, StateWaitForType, second.State())
	assert.Equal(t, "second", second.Draft().Body)
}

func TestHandlerIgnoresEventsWithoutSender(t *testing.T) {
	h := NewHandler(newFakeTransport(), nil, "", Options{})
	require.NoError(t, h.HandleEvent(context.Background(), UnsupportedEvent{}))
	assert.Zero(t, h.Sessions().Len())
}

func TestHandlerReturnsTransportErrors(t *testing.T) {
	boom := errors.New("flood wait")
	tr := newFakeTransport()
	tr.sendErr = boom
	h := NewHandler(tr, state.NewDirectory[*Session](), "", Options{})

	err := h.HandleEvent(context.Background(), trigger("body"))
	require.ErrorIs(t, err, boom)
	sess, ok := h.Sessions().Lookup(userID)
	require.True(t, ok)
	assert.Equal(t, StateInit, sess.State())
}

func TestHandlerSerializesSessionEvents(t *testing.T) {
	tr := newFakeTransport()
	h := NewHandler(tr, nil, "", Options{})
	ctx := context.Background()
	require.NoError(t, h.HandleEvent(ctx, trigger("body")))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.HandleEvent(ctx, choice("Bug"))
		}()
	}
	wg.Wait()

	// Five choices complete the conversation; the rest are ignored in Init.
	sess, _ := h.Sessions().Lookup(userID)
	assert.Equal(t, StateInit, sess.State())
	assert.Equal(t, Draft{}, sess.Draft())
	summaries := 0
	for _, s := range tr.sentTexts() {
		if s == "Creating Bug: body Bug Bug Bug Bug" {
			summaries++
		}
	}
	assert.Equal(t, 1, summaries)
}

func newTestBot(t *testing.T) *tele.Bot {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Token: "123:test", Offline: true})
	require.NoError(t, err)
	return b
}

func TestEventFromContext(t *testing.T) {
	b := newTestBot(t)
	sender := &tele.User{ID: userID}
	group := &tele.Chat{ID: chatID, Type: tele.ChatGroup}

	t.Run("reply text", func(t *testing.T) {
		c := b.NewContext(tele.Update{Message: &tele.Message{
			ID:      10,
			Sender:  sender,
			Chat:    group,
			Text:    "/todo",
			ReplyTo: &tele.Message{ID: 9, Caption: "screenshot of the bug"},
		}})
		ev, ok := EventFromContext(c, DefaultChoiceKey).(TextEvent)
		require.True(t, ok)
		assert.Equal(t, chatID, ev.ChatID)
		assert.Equal(t, userID, ev.UserID)
		assert.Equal(t, 10, ev.MessageID)
		require.NotNil(t, ev.ReplyTo)
		assert.Equal(t, "screenshot of the bug", ev.ReplyTo.Text)
	})

	t.Run("encoded callback", func(t *testing.T) {
		c := b.NewContext(tele.Update{Callback: &tele.Callback{
			Sender:  sender,
			Message: &tele.Message{ID: 501, Chat: group},
			Data:    callbacks.Encode(DefaultChoiceKey, "BAC"),
		}})
		ev, ok := EventFromContext(c, DefaultChoiceKey).(ChoiceEvent)
		require.True(t, ok)
		assert.Equal(t, chatID, ev.ChatID)
		assert.Equal(t, 501, ev.MessageID)
		assert.Equal(t, "BAC", ev.Value)
	})

	t.Run("callback without message uses sender", func(t *testing.T) {
		c := b.NewContext(tele.Update{Callback: &tele.Callback{Sender: sender, Data: "Bug"}})
		ev, ok := EventFromContext(c, DefaultChoiceKey).(ChoiceEvent)
		require.True(t, ok)
		assert.Equal(t, userID, ev.ChatID)
		assert.Equal(t, "Bug", ev.Value)
	})

	t.Run("foreign callback", func(t *testing.T) {
		c := b.NewContext(tele.Update{Callback: &tele.Callback{Sender: sender, Data: callbacks.Encode("other", "x")}})
		ev := EventFromContext(c, DefaultChoiceKey)
		assert.IsType(t, UnsupportedEvent{}, ev)
		assert.Equal(t, "callback", ev.Kind())
	})

	t.Run("media without caption", func(t *testing.T) {
		c := b.NewContext(tele.Update{Message: &tele.Message{
			ID:     12,
			Sender: sender,
			Chat:   group,
			Photo:  &tele.Photo{},
		}})
		ev := EventFromContext(c, DefaultChoiceKey)
		assert.Equal(t, "media", ev.Kind())
		_, uid := ev.Sender()
		assert.Equal(t, userID, uid)
	})
}

func TestIsCommand(t *testing.T) {
	assert.True(t, isCommand("/todo", "/todo", ""))
	assert.True(t, isCommand("  /todo extra words", "/todo", ""))
	assert.True(t, isCommand("/todo@Bot", "/todo", "bot"))
	assert.False(t, isCommand("/todo@Other", "/todo", "bot"))
	assert.False(t, isCommand("todo", "/todo", ""))
	assert.False(t, isCommand("", "/todo", ""))
}

func TestHandlerActive(t *testing.T) {
	h := NewHandler(newFakeTransport(), nil, "", Options{})
	ctx := context.Background()
	assert.False(t, h.Active(userID))

	require.NoError(t, h.HandleEvent(ctx, text("not a trigger")))
	assert.False(t, h.Active(userID), "session in Init is not active")

	require.NoError(t, h.HandleEvent(ctx, trigger("body")))
	assert.True(t, h.Active(userID))
}
