package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/todobot/core/logger"
	"github.com/m3rciful/todobot/core/metrics"
	"github.com/m3rciful/todobot/core/telegram/helpers"
)

func newBot(t *testing.T) *tele.Bot {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Token: "123:test", Offline: true})
	require.NoError(t, err)
	return b
}

func message(b *tele.Bot, updateID int, userID, chatID int64) tele.Context {
	return b.NewContext(tele.Update{ID: updateID, Message: &tele.Message{
		ID:     updateID,
		Sender: &tele.User{ID: userID},
		Chat:   &tele.Chat{ID: chatID},
		Text:   "hello",
	}})
}

func counting(calls *int) tele.HandlerFunc {
	return func(tele.Context) error {
		*calls++
		return nil
	}
}

func TestUpdateKind(t *testing.T) {
	assert.Equal(t, KindCallback, UpdateKind(tele.Update{Callback: &tele.Callback{}}))
	assert.Equal(t, KindMessage, UpdateKind(tele.Update{Message: &tele.Message{Text: "x"}}))
	assert.Equal(t, KindMedia, UpdateKind(tele.Update{Message: &tele.Message{Photo: &tele.Photo{}}}))
	assert.Equal(t, KindEdited, UpdateKind(tele.Update{EditedMessage: &tele.Message{}}))
	assert.Equal(t, KindOther, UpdateKind(tele.Update{}))
}

func TestAllowedChats(t *testing.T) {
	b := newBot(t)
	calls, rejected := 0, 0
	mw := AllowedChatsMiddleware(AccessOptions{
		AllowedChats: []int64{-1},
		OnReject:     counting(&rejected),
	})
	h := mw(counting(&calls))

	require.NoError(t, h(message(b, 1, 5, -1)))
	require.NoError(t, h(message(b, 2, 5, -2)))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, rejected)

	open := AllowedChatsMiddleware(AccessOptions{})(counting(&calls))
	require.NoError(t, open(message(b, 3, 5, -2)))
	assert.Equal(t, 2, calls)
}

func TestRateLimit(t *testing.T) {
	b := newBot(t)
	calls, limited := 0, 0
	h := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Hour,
		OnLimited: counting(&limited),
	})(counting(&calls))

	require.NoError(t, h(message(b, 1, 5, 5)))
	require.NoError(t, h(message(b, 2, 5, 5)))
	require.NoError(t, h(message(b, 3, 6, 6)))
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, limited)

	excluded := RateLimitMiddleware(RateLimitOptions{
		Interval: time.Hour,
		Exclude:  map[string]struct{}{KindMessage: {}},
	})(counting(&calls))
	require.NoError(t, excluded(message(b, 4, 5, 5)))
	require.NoError(t, excluded(message(b, 5, 5, 5)))
	assert.Equal(t, 4, calls)
}

func TestRecoverTurnsPanicIntoError(t *testing.T) {
	b := newBot(t)
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	err := h(message(b, 1, 5, 5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	plain := errors.New("plain")
	assert.ErrorIs(t, RecoverMiddleware(func(tele.Context) error { return plain })(message(b, 2, 5, 5)), plain)
}

func TestLoggerMiddlewareSetsRID(t *testing.T) {
	b := newBot(t)
	c := message(b, 42, 5, -7)
	require.NoError(t, LoggerMiddleware(func(c tele.Context) error {
		ctx, ok := helpers.ContextFrom(c)
		require.True(t, ok)
		assert.Equal(t, "42:-7:5", logger.RIDFrom(ctx))
		return nil
	})(c))
	assert.Equal(t, "42:-7:5", c.Get("rid"))
}

func TestUpdateMetrics(t *testing.T) {
	b := newBot(t)
	rec := metrics.New()
	calls := 0
	h := UpdateMetricsMiddleware(rec)(counting(&calls))
	require.NoError(t, h(message(b, 1, 5, 5)))
	require.NoError(t, h(b.NewContext(tele.Update{Callback: &tele.Callback{Sender: &tele.User{ID: 5}}})))

	assert.Equal(t, 2, calls)
	assert.Contains(t, scrape(t, rec), `todobot_updates_total{kind="callback"} 1`)
	assert.Contains(t, scrape(t, rec), `todobot_updates_total{kind="message"} 1`)
}

func scrape(t *testing.T, rec *metrics.Recorder) string {
	t.Helper()
	w := httptest.NewRecorder()
	metrics.Handler(rec).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}
