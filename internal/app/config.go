package app

import (
	"fmt"
	"strings"

	coreconfig "github.com/m3rciful/todobot/core/config"
	"github.com/m3rciful/todobot/core/database"
	"github.com/m3rciful/todobot/core/telegram/transport"
	"github.com/m3rciful/todobot/internal/dialog"
	"github.com/m3rciful/todobot/internal/tasks"
)

// Task sinks selectable with tasks.sink.
const (
	SinkLog      = "log"
	SinkPostgres = "postgres"
	SinkRedis    = "redis"
)

const defaultRedisPrefix = "todobot:"

// ChoiceConfig is one answer button.
type ChoiceConfig struct {
	Label string `yaml:"label"`
	Value string `yaml:"value"`
}

// DialogConfig configures the /todo conversation.
type DialogConfig struct {
	Trigger string `yaml:"trigger" envconfig:"DIALOG_TRIGGER"`
	// BotName restricts addressed triggers (/todo@name) to this bot.
	BotName string `yaml:"bot_name" envconfig:"DIALOG_BOT_NAME"`
	PerRow  int    `yaml:"per_row" envconfig:"DIALOG_PER_ROW"`

	Types      []ChoiceConfig `yaml:"types"`
	Boards     []ChoiceConfig `yaml:"boards"`
	Severities []ChoiceConfig `yaml:"severities"`
	Assignees  []ChoiceConfig `yaml:"assignees"`
}

// Choices converts the configured sets, keeping the defaults for empty ones.
func (d DialogConfig) Choices() dialog.Choices {
	def := dialog.DefaultChoices()
	return dialog.Choices{
		Types:      choicesOr(d.Types, def.Types),
		Boards:     choicesOr(d.Boards, def.Boards),
		Severities: choicesOr(d.Severities, def.Severities),
		Assignees:  choicesOr(d.Assignees, def.Assignees),
	}
}

func choicesOr(cfg []ChoiceConfig, fallback []transport.Choice) []transport.Choice {
	if len(cfg) == 0 {
		return fallback
	}
	out := make([]transport.Choice, 0, len(cfg))
	for _, c := range cfg {
		out = append(out, transport.Choice{Label: c.Label, Value: c.Value})
	}
	return out
}

// TasksConfig selects where finished drafts go and how they are delivered.
type TasksConfig struct {
	Sink           string `yaml:"sink" envconfig:"TASKS_SINK"`
	QueueSize      int    `yaml:"queue_size" envconfig:"TASKS_QUEUE_SIZE"`
	Workers        int    `yaml:"workers" envconfig:"TASKS_WORKERS"`
	MaxRetries     int    `yaml:"max_retries" envconfig:"TASKS_MAX_RETRIES"`
	RetryBackoffMS int    `yaml:"retry_backoff_ms" envconfig:"TASKS_RETRY_BACKOFF_MS"`
	TimeoutMS      int    `yaml:"timeout_ms" envconfig:"TASKS_TIMEOUT_MS"`
	// RecentLimit caps the /tasks listing.
	RecentLimit int `yaml:"recent_limit" envconfig:"TASKS_RECENT_LIMIT"`
}

// Config is the full bot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Dialog   DialogConfig      `yaml:"dialog"`
	Tasks    TasksConfig       `yaml:"tasks"`
	Database database.Config   `yaml:"database"`
	Redis    tasks.RedisConfig `yaml:"redis"`
}

// CoreConfig implements cmd.ConfigCarrier.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads path (YAML plus environment overrides) and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.LoadInto(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the configuration and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}

	d := &c.Dialog
	d.Trigger = strings.TrimSpace(d.Trigger)
	if d.Trigger == "" {
		d.Trigger = dialog.DefaultTrigger
	}
	if !strings.HasPrefix(d.Trigger, "/") || strings.ContainsAny(d.Trigger, " @") {
		return fmt.Errorf("dialog.trigger must be a bare command such as /todo, got %q", d.Trigger)
	}
	d.BotName = strings.TrimPrefix(strings.TrimSpace(d.BotName), "@")
	if d.PerRow < 0 {
		return fmt.Errorf("dialog.per_row must be >= 0")
	}
	for name, set := range map[string][]ChoiceConfig{
		"types": d.Types, "boards": d.Boards, "severities": d.Severities, "assignees": d.Assignees,
	} {
		for i := range set {
			set[i].Value = strings.TrimSpace(set[i].Value)
			if set[i].Value == "" {
				return fmt.Errorf("dialog.%s[%d].value is required", name, i)
			}
			if set[i].Label == "" {
				set[i].Label = set[i].Value
			}
		}
	}

	t := &c.Tasks
	t.Sink = strings.ToLower(strings.TrimSpace(t.Sink))
	if t.Sink == "" {
		t.Sink = SinkLog
	}
	if t.QueueSize <= 0 {
		t.QueueSize = 64
	}
	if t.Workers <= 0 {
		t.Workers = 2
	}
	if t.MaxRetries < 0 {
		return fmt.Errorf("tasks.max_retries must be >= 0")
	}
	if t.RetryBackoffMS <= 0 {
		t.RetryBackoffMS = 500
	}
	if t.TimeoutMS <= 0 {
		t.TimeoutMS = 10_000
	}
	if t.RecentLimit <= 0 {
		t.RecentLimit = 10
	}

	switch t.Sink {
	case SinkLog:
	case SinkPostgres:
		if err := c.Database.Normalize(); err != nil {
			return err
		}
	case SinkRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return fmt.Errorf("redis.addr is required when tasks.sink is 'redis'")
		}
		if c.Redis.Prefix == "" {
			c.Redis.Prefix = defaultRedisPrefix
		}
	default:
		return fmt.Errorf("invalid tasks.sink %q; allowed: log, postgres, redis", c.Tasks.Sink)
	}
	return nil
}
