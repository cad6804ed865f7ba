package tasks

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/todobot/core/logger"
	"github.com/m3rciful/todobot/core/metrics"
	"github.com/m3rciful/todobot/core/worker"
)

// Recorder hands tasks to a sink through a worker pool.
// When the pool is saturated or closed the task is recorded inline.
type Recorder struct {
	sink    Sink
	pool    *worker.Pool
	metrics *metrics.Recorder
}

// NewRecorder builds a recorder. A nil pool records synchronously.
func NewRecorder(sink Sink, pool *worker.Pool, rec *metrics.Recorder) *Recorder {
	if sink == nil {
		sink = LogSink{}
	}
	return &Recorder{sink: sink, pool: pool, metrics: rec}
}

// Submit implements Submitter. Failures are logged and counted, never returned.
func (r *Recorder) Submit(ctx context.Context, t Task) {
	if r.pool != nil {
		err := r.pool.Enqueue(ctx, "task.record", func(jobCtx context.Context) error {
			return r.record(jobCtx, t)
		})
		if err == nil {
			return
		}
		if !errors.Is(err, worker.ErrQueueFull) && !errors.Is(err, worker.ErrQueueClosed) {
			logger.Error(ctx, logger.CompTasks, "task.enqueue",
				slog.String("status", "fail"),
				slog.String("task_id", t.ID.String()),
				slog.String("err", err.Error()),
			)
			return
		}
		logger.Warn(ctx, logger.CompTasks, "task.enqueue",
			slog.String("status", "skip"),
			slog.String("task_id", t.ID.String()),
			slog.String("cause", err.Error()),
		)
	}
	if err := r.record(ctx, t); err != nil {
		logger.Error(ctx, logger.CompTasks, "task.record",
			slog.String("status", "fail"),
			slog.String("task_id", t.ID.String()),
			slog.String("sink", r.sink.Name()),
			slog.String("err", err.Error()),
		)
	}
}

func (r *Recorder) record(ctx context.Context, t Task) error {
	err := r.sink.Record(ctx, t)
	r.metrics.ObserveTask(r.sink.Name(), logger.Status(err))
	if err == nil {
		logger.Debug(ctx, logger.CompTasks, "task.record",
			slog.String("status", "ok"),
			slog.String("task_id", t.ID.String()),
			slog.String("sink", r.sink.Name()),
		)
	}
	return err
}

// Close drains pending tasks.
func (r *Recorder) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}
