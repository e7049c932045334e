package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maauso/dubsync/internal/bootstrap"
	"github.com/maauso/dubsync/internal/job"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var workDir string
	var pushToS3 bool
	var noiseDB float64
	var minSilence float64
	var outputName string
	var keepIntermediates bool
	var showTimeline bool

	cmd := &cobra.Command{
		Use:   "sync <master> <dub>",
		Short: "Run the full synchronization pipeline in the foreground",
		Long: "Extracts PCM from both tracks, detects silences in the dub, builds the\n" +
			"composite timeline and renders the synchronized output into the work dir.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("work-dir") {
				cfg.WorkDir = workDir
			}
			if flags.Changed("noise-db") {
				cfg.SilenceNoiseDB = noiseDB
			}
			if flags.Changed("min-silence") {
				cfg.SilenceMinSec = minSilence
			}
			if flags.Changed("output") {
				cfg.OutputName = outputName
			}
			if flags.Changed("keep-intermediates") {
				cfg.KeepIntermediates = keepIntermediates
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			deps, err := bootstrap.NewDependencies(cfg, ctx.logger)
			if err != nil {
				return err
			}

			result, err := deps.SyncService.Run(cmd.Context(), job.SyncInput{
				MasterName: args[0],
				DubName:    args[1],
				WorkDir:    cfg.WorkDir,
				PushToS3:   pushToS3,
			})
			if err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if showTimeline {
				fmt.Fprintln(out, renderSegments(result.Segments, shouldColorize(out)))
			}
			fmt.Fprintf(out, "Rendered %s (%d segments)\n", result.OutputPath, len(result.Segments))
			if result.OutputURL != "" {
				fmt.Fprintf(out, "Published to %s\n", result.OutputURL)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&workDir, "work-dir", "w", "", "Directory holding the inputs and receiving the output (default WORK_DIR)")
	cmd.Flags().BoolVar(&pushToS3, "push-to-s3", false, "Upload the rendered output to the configured S3 bucket")
	cmd.Flags().Float64Var(&noiseDB, "noise-db", -60, "Silence threshold in dB (default SILENCE_NOISE_DB)")
	cmd.Flags().Float64Var(&minSilence, "min-silence", 0.5, "Minimum silence length in seconds (default SILENCE_MIN_DURATION_SEC)")
	cmd.Flags().StringVarP(&outputName, "output", "o", "", "Output file name (default OUTPUT_NAME)")
	cmd.Flags().BoolVar(&keepIntermediates, "keep-intermediates", true, "Keep PCM files and the concat manifest")
	cmd.Flags().BoolVar(&showTimeline, "timeline", false, "Print the built timeline")

	return cmd
}
