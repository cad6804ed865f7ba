package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/todobot/core/logger"
)

func TestBuildContextCarriesUpdateMeta(t *testing.T) {
	b, err := tele.NewBot(tele.Settings{Token: "123:test", Offline: true})
	require.NoError(t, err)

	c := b.NewContext(tele.Update{ID: 77, Message: &tele.Message{
		ID:     1,
		Sender: &tele.User{ID: 5},
		Chat:   &tele.Chat{ID: -9},
		Text:   "hi",
	}})

	ctx := BuildContext(c)
	assert.Equal(t, "77:-9:5", logger.RIDFrom(ctx))
	assert.Equal(t, 77, logger.UpdateIDFrom(ctx))
	assert.Equal(t, int64(5), logger.UserIDFrom(ctx))
	assert.Equal(t, int64(-9), logger.ChatIDFrom(ctx))

	again := WithHandler(c, "todo")
	assert.Equal(t, "todo", logger.HandlerFrom(again))
	stored, ok := ContextFrom(c)
	require.True(t, ok)
	assert.Equal(t, "todo", logger.HandlerFrom(stored))
}
