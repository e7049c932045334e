package media

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/maauso/dubsync/internal/timeline"
)

// WriteManifest writes segments as an ffmpeg concat demuxer script.
// Each segment becomes a file/inpoint/outpoint record pointing at the PCM
// file registered for its source in sources.
func WriteManifest(w io.Writer, segments []timeline.Segment, sources map[timeline.Source]string) error {
	bw := bufio.NewWriter(w)
	for i, seg := range segments {
		path, ok := sources[seg.Source]
		if !ok || path == "" {
			return fmt.Errorf("%w: segment %d has no file for source %q", timeline.ErrValidation, i, seg.Source)
		}
		// Escape single quotes in path
		escaped := strings.ReplaceAll(path, "'", `'\''`)
		if _, err := fmt.Fprintf(bw, "file '%s'\ninpoint %s\noutpoint %s\n",
			escaped, formatSeconds(seg.In), formatSeconds(seg.Out)); err != nil {
			return fmt.Errorf("write manifest: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
