package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/todobot/core/worker"
)

func sampleTask() Task {
	return New(Task{
		Type:     "Bug",
		Body:     "Fix the thing",
		Header:   "Broken button",
		Board:    "BAC",
		Severity: "High",
		Assignee: "None",
		ChatID:   42,
		UserID:   7,
	})
}

func TestNewStampsIDAndTime(t *testing.T) {
	task := sampleTask()
	assert.NotEqual(t, uuid.Nil, task.ID)
	assert.False(t, task.CreatedAt.IsZero())

	fixed := uuid.New()
	assert.Equal(t, fixed, New(Task{ID: fixed}).ID)
}

func TestPostgresStoreRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(sqlx.NewDb(db, "postgres"))
	task := sampleTask()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tasks")).
		WithArgs(sqlmock.AnyArg(), "Bug", "Fix the thing", "Broken button", "BAC", "High", "None", int64(42), int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Record(context.Background(), task))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreRecordError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("connection reset")
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tasks")).WillReturnError(boom)

	err = NewPostgresStore(sqlx.NewDb(db, "postgres")).Record(context.Background(), sampleTask())
	assert.ErrorIs(t, err, boom)
}

func TestPostgresStoreRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "type", "body", "header", "board", "severity", "assignee", "chat_id", "user_id", "created_at"}).
		AddRow(id.String(), "Task", "b", "h", "FRONT", "Low", "A", 42, 7, created)
	mock.ExpectQuery(regexp.QuoteMeta("FROM tasks WHERE chat_id = $1")).WithArgs(int64(42), 5).WillReturnRows(rows)

	got, err := NewPostgresStore(sqlx.NewDb(db, "postgres")).Recent(context.Background(), 42, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, "FRONT", got[0].Board)
	assert.Equal(t, created, got[0].CreatedAt)
}

func TestRedisQueueRecord(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	q := NewRedisQueue(client, "todobot:")
	assert.Equal(t, "todobot:tasks", q.Key())

	task := sampleTask()
	require.NoError(t, q.Record(context.Background(), task))

	items, err := mr.List("todobot:tasks")
	require.NoError(t, err)
	require.Len(t, items, 1)

	var decoded Task
	require.NoError(t, json.Unmarshal([]byte(items[0]), &decoded))
	assert.Equal(t, task.ID, decoded.ID)
	assert.Equal(t, "Broken button", decoded.Header)
}

func TestRedisQueueUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	assert.Error(t, NewRedisQueue(client, "").Record(context.Background(), sampleTask()))
}

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := ConnectRedis(context.Background(), RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	require.NoError(t, client.Close())
}

type memorySink struct {
	mu    sync.Mutex
	tasks []Task
	fails int
}

func (s *memorySink) Name() string { return "memory" }

func (s *memorySink) Record(_ context.Context, t Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fails > 0 {
		s.fails--
		return errors.New("temporary")
	}
	s.tasks = append(s.tasks, t)
	return nil
}

func (s *memorySink) recorded() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Task(nil), s.tasks...)
}

func TestRecorderAsyncWithRetry(t *testing.T) {
	sink := &memorySink{fails: 1}
	pool := worker.NewPool(worker.Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	rec := NewRecorder(sink, pool, nil)

	task := sampleTask()
	rec.Submit(context.Background(), task)
	rec.Close()

	got := sink.recorded()
	require.Len(t, got, 1)
	assert.Equal(t, task.ID, got[0].ID)
}

func TestRecorderFallsBackToInline(t *testing.T) {
	sink := &memorySink{}
	pool := worker.NewPool(worker.Options{Workers: 1})
	pool.Close()

	NewRecorder(sink, pool, nil).Submit(context.Background(), sampleTask())
	assert.Len(t, sink.recorded(), 1)

	inline := &memorySink{}
	NewRecorder(inline, nil, nil).Submit(context.Background(), sampleTask())
	assert.Len(t, inline.recorded(), 1)
}

func TestRecorderSwallowsSinkErrors(t *testing.T) {
	sink := &memorySink{fails: 1}
	assert.NotPanics(t, func() {
		NewRecorder(sink, nil, nil).Submit(context.Background(), sampleTask())
	})
	assert.Empty(t, sink.recorded())
}
