package tasks

import (
	"context"
	"log/slog"

	"github.com/m3rciful/todobot/core/logger"
)

// LogSink writes tasks to the structured log.
type LogSink struct{}

// Name implements Sink.
func (LogSink) Name() string { return "log" }

// Record implements Sink.
func (LogSink) Record(ctx context.Context, t Task) error {
	logger.Info(ctx, logger.CompTasks, "task.recorded",
		slog.String("status", "ok"),
		slog.String("task_id", t.ID.String()),
		slog.String("sink", "log"),
		slog.String("type", t.Type),
		slog.String("board", t.Board),
		slog.String("severity", t.Severity),
		slog.String("assignee", t.Assignee),
		slog.String("header", logger.SanitizeLimit(t.Header, 128)),
		slog.String("body", logger.SanitizeLimit(t.Body, 256)),
	)
	return nil
}
