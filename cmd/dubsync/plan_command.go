package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maauso/dubsync/internal/timeline"
)

type planOutput struct {
	NonSilent []timeline.Interval `json:"non_silent"`
	Segments  []timeline.Segment  `json:"segments"`
	Span      float64             `json:"span"`
}

func newPlanCommand() *cobra.Command {
	var masterDuration float64
	var dubDuration float64
	var silenceFlags []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the timeline for given durations and dub silences without touching media",
		Example: "  dubsync plan --master-duration 10 --dub-duration 8 --silence 2:3\n" +
			"  dubsync plan --master-duration 5400 --dub-duration 5390 --silence 61.2:62 --json",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			silences := make([]timeline.Silence, 0, len(silenceFlags))
			for _, raw := range silenceFlags {
				s, err := parseSilence(raw)
				if err != nil {
					return err
				}
				silences = append(silences, s)
			}

			nonSilent, err := timeline.Merge(silences, dubDuration)
			if err != nil {
				return err
			}
			segments, err := timeline.Build(nonSilent, masterDuration, dubDuration)
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, planOutput{
					NonSilent: nonSilent,
					Segments:  segments,
					Span:      timeline.Span(segments),
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Non-silent intervals in dub: %d\n", len(nonSilent))
			fmt.Fprintln(out, renderSegments(segments, shouldColorize(out)))
			return nil
		},
	}

	cmd.Flags().Float64Var(&masterDuration, "master-duration", 0, "Master track duration in seconds")
	cmd.Flags().Float64Var(&dubDuration, "dub-duration", 0, "Dub track duration in seconds")
	cmd.Flags().StringArrayVar(&silenceFlags, "silence", nil, "Silence in the dub as start:end seconds (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("master-duration")
	_ = cmd.MarkFlagRequired("dub-duration")

	return cmd
}

// parseSilence parses a "start:end" pair in seconds.
func parseSilence(raw string) (timeline.Silence, error) {
	startRaw, endRaw, ok := strings.Cut(raw, ":")
	if !ok {
		return timeline.Silence{}, fmt.Errorf("invalid silence %q: want start:end", raw)
	}
	start, err := strconv.ParseFloat(strings.TrimSpace(startRaw), 64)
	if err != nil {
		return timeline.Silence{}, fmt.Errorf("invalid silence start %q: %w", startRaw, err)
	}
	end, err := strconv.ParseFloat(strings.TrimSpace(endRaw), 64)
	if err != nil {
		return timeline.Silence{}, fmt.Errorf("invalid silence end %q: %w", endRaw, err)
	}
	return timeline.Silence{Start: start, End: end}, nil
}
