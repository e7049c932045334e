package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maauso/dubsync/internal/bootstrap"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Print duration, channel count and codec of a media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			deps, err := bootstrap.NewDependencies(cfg, ctx.logger)
			if err != nil {
				return err
			}

			// Relative paths resolve against the current directory.
			info, err := deps.SyncService.Analyze(cmd.Context(), ".", args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, info)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Duration: %.3fs\n", info.Duration)
			fmt.Fprintf(out, "Channels: %d\n", info.Channels)
			fmt.Fprintf(out, "Codec:    %s\n", info.Codec)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
