package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/todobot/core/logger"
)

// RedisConfig holds the Redis connection used by the task queue.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
	Prefix   string `yaml:"prefix" envconfig:"REDIS_PREFIX"`
}

// ConnectRedis opens a client and verifies it with PING.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		logger.Error(ctx, logger.CompTasks, "redis.connect",
			slog.String("status", "fail"),
			slog.String("host", cfg.Addr),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info(ctx, logger.CompTasks, "redis.connect",
		slog.String("status", "ok"),
		slog.String("host", cfg.Addr),
		slog.Int("db", cfg.DB),
		slog.Duration("duration", logger.Took(start)),
	)
	return client, nil
}

// RedisQueue pushes JSON encoded tasks onto a list for a downstream consumer.
type RedisQueue struct {
	client redis.UniversalClient
	key    string
}

// NewRedisQueue pushes to the list named prefix + "tasks".
func NewRedisQueue(client redis.UniversalClient, prefix string) *RedisQueue {
	return &RedisQueue{client: client, key: prefix + "tasks"}
}

// Name implements Sink.
func (q *RedisQueue) Name() string { return "redis" }

// Key returns the list name.
func (q *RedisQueue) Key() string { return q.key }

// Record implements Sink.
func (q *RedisQueue) Record(ctx context.Context, t Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("tasks: encode %s: %w", t.ID, err)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("tasks: lpush %s: %w", q.key, err)
	}
	return nil
}
