// Package tasks records finalized dialogue drafts.
package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Task is a finalized dialogue draft.
type Task struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Type      string    `json:"type" db:"type"`
	Body      string    `json:"body" db:"body"`
	Header    string    `json:"header" db:"header"`
	Board     string    `json:"board" db:"board"`
	Severity  string    `json:"severity" db:"severity"`
	Assignee  string    `json:"assignee" db:"assignee"`
	ChatID    int64     `json:"chat_id" db:"chat_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Sink persists or forwards a task.
type Sink interface {
	Name() string
	Record(ctx context.Context, t Task) error
}

// Submitter accepts finalized tasks. Implementations must not block on slow sinks.
type Submitter interface {
	Submit(ctx context.Context, t Task)
}

// New stamps a task with a fresh id and creation time.
func New(t Task) Task {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	return t
}
