package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/todobot/core/config"
	coretelegram "github.com/m3rciful/todobot/core/telegram"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type app struct{ opts coretelegram.RunOptions }

func (a app) TelegramRunOptions() (coretelegram.RunOptions, error) { return a.opts, nil }

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("TODOBOT_TEST_CONFIG", "/env.yaml")

	p, err := ResolveConfigPath(Options{ConfigPath: "/flag.yaml", ConfigEnvVar: "TODOBOT_TEST_CONFIG"})
	require.NoError(t, err)
	assert.Equal(t, "/flag.yaml", p)

	p, err = ResolveConfigPath(Options{ConfigEnvVar: "TODOBOT_TEST_CONFIG", DefaultConfigPath: "/default.yaml"})
	require.NoError(t, err)
	assert.Equal(t, "/env.yaml", p)

	p, err = ResolveConfigPath(Options{ConfigEnvVar: "TODOBOT_TEST_UNSET", DefaultConfigPath: "/default.yaml"})
	require.NoError(t, err)
	assert.Equal(t, "/default.yaml", p)

	_, err = ResolveConfigPath(Options{ConfigEnvVar: "TODOBOT_TEST_UNSET"})
	assert.Error(t, err)
}

func TestRunWiresLifecycleHooks(t *testing.T) {
	var hooks []string
	shutdown := 0
	err := Run(Options{
		ConfigPath: "config.yaml",
		Context:    context.Background(),
		LoadConfig: func(path string) (ConfigCarrier, error) {
			assert.Equal(t, "config.yaml", path)
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) {
			return app{opts: coretelegram.RunOptions{
				OnStart: func(context.Context, coretelegram.Runtime) error {
					hooks = append(hooks, "start")
					return nil
				},
				OnStop: func(context.Context, coretelegram.Runtime) error {
					hooks = append(hooks, "stop")
					return nil
				},
			}}, nil
		},
		ShutdownLogger: func() error {
			shutdown++
			return nil
		},
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			require.NoError(t, opts.OnStart(ctx, coretelegram.Runtime{}))
			return opts.OnStop(ctx, coretelegram.Runtime{})
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "stop"}, hooks)
	assert.Equal(t, 1, shutdown)
}

func TestRunPropagatesFailures(t *testing.T) {
	boom := errors.New("boom")
	load := func(string) (ConfigCarrier, error) { return carrier{cfg: &coreconfig.Config{}}, nil }

	assert.Error(t, Run(Options{}))
	assert.ErrorIs(t, Run(Options{
		ConfigPath: "x",
		LoadConfig: func(string) (ConfigCarrier, error) { return nil, boom },
		Bootstrap:  func(context.Context, ConfigCarrier) (TelegramApp, error) { return nil, nil },
	}), boom)
	assert.Error(t, Run(Options{
		ConfigPath: "x",
		LoadConfig: func(string) (ConfigCarrier, error) { return carrier{}, nil },
		Bootstrap:  func(context.Context, ConfigCarrier) (TelegramApp, error) { return nil, nil },
	}))
	assert.ErrorIs(t, Run(Options{
		ConfigPath:     "x",
		Context:        context.Background(),
		LoadConfig:     load,
		Bootstrap:      func(context.Context, ConfigCarrier) (TelegramApp, error) { return nil, boom },
		ShutdownLogger: func() error { return nil },
	}), boom)
}
