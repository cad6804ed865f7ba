package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/m3rciful/todobot/core/buildinfo"
	corecmd "github.com/m3rciful/todobot/core/cmd"
	"github.com/m3rciful/todobot/core/database"
	"github.com/m3rciful/todobot/core/logger"
	"github.com/m3rciful/todobot/internal/app"
)

const defaultConfigPath = "config.yaml"

func newRootCmd() *cobra.Command {
	var configPath string

	runOptions := func() corecmd.Options {
		return corecmd.Options{
			ConfigPath:        configPath,
			DefaultConfigPath: defaultConfigPath,
			LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
				return app.Load(path)
			},
			Bootstrap: app.Bootstrap,
		}
	}

	root := &cobra.Command{
		Use:           "todobot",
		Short:         "Telegram bot that turns replied messages into tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(*cobra.Command, []string) error {
			return corecmd.Run(runOptions())
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config (defaults to $CONFIG_PATH, then "+defaultConfigPath+")")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Start the bot",
			RunE: func(*cobra.Command, []string) error {
				return corecmd.Run(runOptions())
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations and exit",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return migrate(cmd.Context(), runOptions())
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print build information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "todobot %s\n", buildinfo.String())
			},
		},
	)
	return root
}

func migrate(ctx context.Context, opts corecmd.Options) error {
	path, err := corecmd.ResolveConfigPath(opts)
	if err != nil {
		return err
	}
	cfg, err := app.Load(path)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := cfg.Database.Normalize(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := logger.Init(&cfg.Config); err != nil {
		return fmt.Errorf("migrate: logger init failed: %w", err)
	}
	defer func() { _ = logger.Shutdown() }()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return database.RunMigrations(ctx, cfg.Database)
}
