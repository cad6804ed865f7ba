package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/todobot/internal/dialog"
	"github.com/m3rciful/todobot/internal/tasks"
)

const sampleConfig = `
telegram:
  token: "123:abc"
  run_mode: polling
dialog:
  per_row: 2
  boards:
    - label: Backend
      value: BAC
    - value: OPS
tasks:
  sink: log
  workers: 1
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "longpoll", cfg.Telegram.RunMode)
	assert.Equal(t, dialog.DefaultTrigger, cfg.Dialog.Trigger)
	assert.Equal(t, SinkLog, cfg.Tasks.Sink)
	assert.Equal(t, 64, cfg.Tasks.QueueSize)
	assert.Equal(t, 1, cfg.Tasks.Workers)
	assert.Equal(t, 10, cfg.Tasks.RecentLimit)
	assert.Same(t, &cfg.Config, cfg.CoreConfig())

	choices := cfg.Dialog.Choices()
	require.Len(t, choices.Boards, 2)
	assert.Equal(t, "OPS", choices.Boards[1].Label)
	assert.Equal(t, dialog.DefaultChoices().Types, choices.Types)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DIALOG_TRIGGER", "/task")
	t.Setenv("TASKS_SINK", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "/task", cfg.Dialog.Trigger)
	assert.Equal(t, SinkRedis, cfg.Tasks.Sink)
	assert.Equal(t, defaultRedisPrefix, cfg.Redis.Prefix)
}

func TestNormalizeRejectsInvalidConfig(t *testing.T) {
	base := func() Config {
		var c Config
		c.Telegram.Token = "123:abc"
		return c
	}
	cases := map[string]func(c *Config){
		"trigger without slash": func(c *Config) { c.Dialog.Trigger = "todo" },
		"addressed trigger":     func(c *Config) { c.Dialog.Trigger = "/todo@bot" },
		"negative per row":      func(c *Config) { c.Dialog.PerRow = -1 },
		"empty choice value":    func(c *Config) { c.Dialog.Types = []ChoiceConfig{{Label: "x"}} },
		"unknown sink":          func(c *Config) { c.Tasks.Sink = "kafka" },
		"postgres without host": func(c *Config) { c.Tasks.Sink = SinkPostgres },
		"redis without addr":    func(c *Config) { c.Tasks.Sink = SinkRedis },
		"missing token":         func(c *Config) { c.Telegram.Token = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(&c)
			assert.Error(t, c.Normalize())
		})
	}
}

func offlineBot(t *testing.T) *tele.Bot {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Token: "123:test", Offline: true})
	require.NoError(t, err)
	return b
}

func TestRunOptionsWireDialogue(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	a, err := New(cfg, nil, nil)
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close()) }()

	opts, err := a.runOptions(offlineBot(t))
	require.NoError(t, err)

	var endpoints []any
	for _, r := range opts.Routes {
		endpoints = append(endpoints, r.Endpoint)
	}
	assert.ElementsMatch(t, []any{"/todo", tele.OnCallback, tele.OnText, tele.OnMedia}, endpoints)

	_, _, ok := opts.Registry.LookupCommand("/todo")
	assert.True(t, ok)
	_, _, ok = opts.Registry.LookupCommand("/tasks")
	assert.False(t, ok, "listing needs the postgres sink")
	_, ok = opts.Registry.GetCallback(dialog.DefaultChoiceKey)
	assert.True(t, ok)
	assert.NotEmpty(t, opts.Middlewares)
	assert.False(t, a.handler.Active(1))
}

func TestNewPostgresSink(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	cfg.Tasks.Sink = SinkPostgres

	_, err = New(cfg, nil, nil)
	assert.Error(t, err)

	a, err := New(cfg, sqlx.NewDb(raw, "sqlmock"), nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres", a.sink.Name())

	opts, err := a.runOptions(offlineBot(t))
	require.NoError(t, err)
	_, _, ok := opts.Registry.LookupCommand("/tasks")
	assert.True(t, ok)

	require.NoError(t, a.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewRedisSink(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	cfg.Tasks.Sink = SinkRedis
	cfg.Redis.Prefix = "test:"

	_, err = New(cfg, nil, nil)
	assert.Error(t, err)

	a, err := New(cfg, nil, rdb)
	require.NoError(t, err)
	a.recorder.Submit(context.Background(), tasks.New(tasks.Task{Type: "Bug", Header: "h"}))
	require.Eventually(t, func() bool {
		n, _ := rdb.LLen(context.Background(), "test:tasks").Result()
		return n == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, a.Close())
}

func TestFormatRecent(t *testing.T) {
	assert.Equal(t, textNoTasks, formatRecent(nil))
	got := formatRecent([]tasks.Task{
		{Type: "Bug", Header: "Broken button", Board: "BAC", Severity: "High", Assignee: "A"},
		{Type: "Task", Header: "Docs", Board: "FRONT", Severity: "Low", Assignee: "None"},
	})
	assert.Equal(t, "1. Bug: Broken button (BAC, High, A)\n2. Task: Docs (FRONT, Low, None)", got)
}
