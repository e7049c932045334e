package media

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/maauso/dubsync/internal/timeline"
)

var (
	silenceStartRe = regexp.MustCompile(`silence_start:\s*(-?\d+(?:\.\d+)?(?:[eE][-+]?\d+)?)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*(-?\d+(?:\.\d+)?(?:[eE][-+]?\d+)?)`)
)

// ParseSilenceMarkers pairs the silence_start and silence_end markers printed
// by ffmpeg's silencedetect filter, in order of appearance.
//
// Returns timeline.ErrValidation when the number of start markers differs
// from the number of end markers. ffmpeg may report a start marker slightly
// below zero; such values are clamped to 0.
func ParseSilenceMarkers(output string) ([]timeline.Silence, error) {
	starts, err := parseMarkers(silenceStartRe, output)
	if err != nil {
		return nil, err
	}
	ends, err := parseMarkers(silenceEndRe, output)
	if err != nil {
		return nil, err
	}

	if len(starts) != len(ends) {
		return nil, fmt.Errorf("%w: %d silence_start markers but %d silence_end markers",
			timeline.ErrValidation, len(starts), len(ends))
	}

	silences := make([]timeline.Silence, len(starts))
	for i := range starts {
		silences[i] = timeline.Silence{Start: max(starts[i], 0), End: max(ends[i], 0)}
	}
	return silences, nil
}

func parseMarkers(re *regexp.Regexp, output string) ([]float64, error) {
	matches := re.FindAllStringSubmatch(output, -1)
	values := make([]float64, 0, len(matches))
	for _, m := range matches {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad silence marker %q: %w", timeline.ErrValidation, m[0], err)
		}
		values = append(values, v)
	}
	return values, nil
}
