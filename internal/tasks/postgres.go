package tasks

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const insertTaskSQL = `INSERT INTO tasks (id, type, body, header, board, severity, assignee, chat_id, user_id, created_at)
VALUES (:id, :type, :body, :header, :board, :severity, :assignee, :chat_id, :user_id, :created_at)`

const recentTasksSQL = `SELECT id, type, body, header, board, severity, assignee, chat_id, user_id, created_at
FROM tasks WHERE chat_id = $1 ORDER BY created_at DESC LIMIT $2`

// PostgresStore keeps tasks in the tasks table.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps db.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Name implements Sink.
func (s *PostgresStore) Name() string { return "postgres" }

// Record implements Sink.
func (s *PostgresStore) Record(ctx context.Context, t Task) error {
	if _, err := s.db.NamedExecContext(ctx, insertTaskSQL, t); err != nil {
		return fmt.Errorf("tasks: insert %s: %w", t.ID, err)
	}
	return nil
}

// Recent returns up to limit newest tasks created in chatID.
func (s *PostgresStore) Recent(ctx context.Context, chatID int64, limit int) ([]Task, error) {
	var out []Task
	if err := s.db.SelectContext(ctx, &out, recentTasksSQL, chatID, limit); err != nil {
		return nil, fmt.Errorf("tasks: select recent: %w", err)
	}
	return out, nil
}
