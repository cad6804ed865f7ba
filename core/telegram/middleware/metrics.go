package middleware

import (
	"github.com/m3rciful/todobot/core/metrics"

	tele "gopkg.in/telebot.v4"
)

// UpdateMetricsMiddleware counts every update by kind.
func UpdateMetricsMiddleware(rec *metrics.Recorder) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			rec.IncUpdate(UpdateKind(c.Update()))
			return next(c)
		}
	}
}
