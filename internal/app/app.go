// Package app wires the todo bot from its configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/todobot/core/bootstrap"
	corecmd "github.com/m3rciful/todobot/core/cmd"
	"github.com/m3rciful/todobot/core/logger"
	"github.com/m3rciful/todobot/core/metrics"
	coretelegram "github.com/m3rciful/todobot/core/telegram"
	"github.com/m3rciful/todobot/core/telegram/commands"
	"github.com/m3rciful/todobot/core/telegram/router"
	"github.com/m3rciful/todobot/core/telegram/state"
	"github.com/m3rciful/todobot/core/telegram/transport"
	"github.com/m3rciful/todobot/core/worker"
	"github.com/m3rciful/todobot/internal/dialog"
	"github.com/m3rciful/todobot/internal/tasks"

	tele "gopkg.in/telebot.v4"
)

// RecentLister lists the newest tasks of a chat.
type RecentLister interface {
	Recent(ctx context.Context, chatID int64, limit int) ([]tasks.Task, error)
}

// App holds the long-lived components of a running bot.
type App struct {
	cfg      *Config
	db       *sqlx.DB
	redis    *redis.Client
	metrics  *metrics.Recorder
	sink     tasks.Sink
	recent   RecentLister
	recorder *tasks.Recorder
	handler  *dialog.Handler
}

// New builds the app on top of already connected storage. db is required for the
// postgres sink and rdb for the redis sink.
func New(cfg *Config, db *sqlx.DB, rdb *redis.Client) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	a := &App{cfg: cfg, db: db, redis: rdb, metrics: metrics.New()}

	switch cfg.Tasks.Sink {
	case SinkPostgres:
		if db == nil {
			return nil, fmt.Errorf("app: postgres sink needs a database connection")
		}
		store := tasks.NewPostgresStore(db)
		a.sink, a.recent = store, store
	case SinkRedis:
		if rdb == nil {
			return nil, fmt.Errorf("app: redis sink needs a redis client")
		}
		a.sink = tasks.NewRedisQueue(rdb, cfg.Redis.Prefix)
	default:
		a.sink = tasks.LogSink{}
	}

	pool := worker.NewPool(worker.Options{
		Name:         logger.CompTasks,
		QueueSize:    cfg.Tasks.QueueSize,
		Workers:      cfg.Tasks.Workers,
		MaxRetries:   cfg.Tasks.MaxRetries,
		RetryBackoff: time.Duration(cfg.Tasks.RetryBackoffMS) * time.Millisecond,
		MaxDuration:  time.Duration(cfg.Tasks.TimeoutMS) * time.Millisecond,
	})
	a.recorder = tasks.NewRecorder(a.sink, pool, a.metrics)
	return a, nil
}

// Bootstrap implements the cmd bootstrap hook: it initializes logging, storage and
// the app.
func Bootstrap(ctx context.Context, carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}

	opts := bootstrap.Options{Config: &cfg.Config}
	if cfg.Tasks.Sink == SinkPostgres {
		opts.Database = &cfg.Database
	}
	res, err := bootstrap.Run(ctx, opts)
	if err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if cfg.Tasks.Sink == SinkRedis {
		if rdb, err = tasks.ConnectRedis(ctx, cfg.Redis); err != nil {
			_ = res.Close()
			return nil, err
		}
	}

	a, err := New(cfg, res.DB, rdb)
	if err != nil {
		_ = res.Close()
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, err
	}
	logger.Info(ctx, logger.CompApp, "app.bootstrap",
		slog.String("status", "ok"),
		slog.String("sink", a.sink.Name()),
		slog.String("trigger", cfg.Dialog.Trigger),
	)
	return a, nil
}

// TelegramRunOptions implements cmd.TelegramApp.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	bot, err := coretelegram.NewBot(&a.cfg.Config)
	if err != nil {
		return coretelegram.RunOptions{}, err
	}
	return a.runOptions(bot)
}

func (a *App) runOptions(bot *tele.Bot) (coretelegram.RunOptions, error) {
	botName := a.cfg.Dialog.BotName
	if botName == "" && bot.Me != nil {
		botName = bot.Me.Username
	}

	tr := transport.New(bot, transport.Options{Unique: dialog.DefaultChoiceKey, PerRow: a.cfg.Dialog.PerRow})
	a.handler = dialog.NewHandler(tr, state.NewDirectory[*dialog.Session](), dialog.DefaultChoiceKey, dialog.Options{
		Trigger: a.cfg.Dialog.Trigger,
		BotName: botName,
		Choices: a.cfg.Dialog.Choices(),
		Tasks:   a.recorder,
		Metrics: a.metrics,
	})

	reg := coretelegram.NewRegistry()
	reg.RegisterCommand(a.cfg.Dialog.Trigger, commands.Command{
		Handler:     a.handler.Handle,
		Description: "Create a task from the replied message",
	})
	if a.recent != nil {
		reg.RegisterCommand("/tasks", commands.Command{
			Handler:     a.listTasks,
			Description: "Show the latest tasks of this chat",
		})
	}
	if err := reg.RegisterCallback(dialog.DefaultChoiceKey, a.handler.Handle); err != nil {
		return coretelegram.RunOptions{}, err
	}

	routes := router.CommandRoutes(reg)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(a.handler, reg, router.TextOptions{})...)

	return coretelegram.RunOptions{
		Config:      &a.cfg.Config,
		Bot:         bot,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Config, a.metrics, nil),
		Routes:      routes,
		OnStart:     a.start,
		OnStop: func(context.Context, coretelegram.Runtime) error {
			return a.Close()
		},
	}, nil
}

func (a *App) start(ctx context.Context, _ coretelegram.Runtime) error {
	addr := a.cfg.Metrics.Listen
	if addr == "" {
		return nil
	}
	srv := metrics.NewServer(addr, a.metrics)
	go func() {
		if err := srv.Run(ctx); err != nil {
			logger.Error(ctx, logger.CompMetrics, "server.stop",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}()
	return nil
}

// Close drains the task queue and releases storage connections.
func (a *App) Close() error {
	a.recorder.Close()
	var firstErr error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			firstErr = err
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
