package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/maauso/dubsync/internal/timeline"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderSegments formats a timeline as a table with one row per segment.
func renderSegments(segments []timeline.Segment, colorize bool) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Source", "In", "Out", "Length"})

	for i, seg := range segments {
		source := string(seg.Source)
		if colorize {
			source = sourceColor(seg.Source).Sprint(source)
		}
		tw.AppendRow(table.Row{
			i + 1,
			source,
			formatSeconds(seg.In),
			formatSeconds(seg.Out),
			formatSeconds(seg.Duration()),
		})
	}
	tw.AppendFooter(table.Row{"", "", "", "Total", formatSeconds(timeline.Span(segments))})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})

	return tw.Render()
}

func sourceColor(src timeline.Source) text.Colors {
	if src == timeline.SourceDub {
		return text.Colors{text.FgGreen}
	}
	return text.Colors{text.FgBlue}
}

func formatSeconds(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
