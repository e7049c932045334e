package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/maauso/dubsync/internal/config"
)

// commandContext lazily loads configuration shared by subcommands.
type commandContext struct {
	cfg    *config.Config
	logger *slog.Logger
}

func (c *commandContext) ensureConfig(cmd *cobra.Command) (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	// Logs go to stderr so stdout stays parseable.
	c.logger = cfg.NewLoggerTo(cmd.ErrOrStderr())
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "dubsync",
		Short:         "Synchronize a dubbed audio track against a master using silence boundaries",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newSyncCommand(ctx))
	rootCmd.AddCommand(newAnalyzeCommand(ctx))
	rootCmd.AddCommand(newPlanCommand())

	return rootCmd
}
