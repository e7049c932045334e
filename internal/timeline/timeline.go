// Package timeline reconciles detected dub silences against the master
// runtime. Merge turns silence intervals into the dub's non-silent spans and
// Build stitches those spans and master fill into one gap-free segment list
// covering the master's full duration.
//
// Everything in this package is pure: no I/O, no shared state.
package timeline

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrValidation is returned for malformed interval input.
	ErrValidation = errors.New("timeline: validation error")
	// ErrInvalidDuration is returned when a track duration is non-positive or not finite.
	ErrInvalidDuration = errors.New("timeline: invalid duration")
)

// Source identifies which track a segment is cut from.
type Source string

const (
	// SourceMaster is the reference track whose duration defines the output length.
	SourceMaster Source = "master"
	// SourceDub is the replacement-language track.
	SourceDub Source = "dub"
)

// IsValid reports whether s is a known source.
func (s Source) IsValid() bool {
	return s == SourceMaster || s == SourceDub
}

// Silence is a detected span of near-silence in the dub, in seconds.
type Silence struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Interval is a non-silent span of the dub, in seconds.
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment is one slice of a source track placed on the output timeline.
// In and Out are positions on the output timeline, which is aligned with
// both source tracks.
type Segment struct {
	Source Source  `json:"source"`
	In     float64 `json:"in"`
	Out    float64 `json:"out"`
}

// Duration returns the length of the segment in seconds.
func (s Segment) Duration() float64 {
	return s.Out - s.In
}

// String returns a human-readable representation for logging.
func (s Segment) String() string {
	return fmt.Sprintf("%s %.3f-%.3f", s.Source, s.In, s.Out)
}

// Span returns the total output duration covered by segments.
func Span(segments []Segment) float64 {
	var total float64
	for _, s := range segments {
		total += s.Duration()
	}
	return total
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func checkDuration(name string, d float64) error {
	if !finite(d) || d <= 0 {
		return fmt.Errorf("%w: %s duration %v", ErrInvalidDuration, name, d)
	}
	return nil
}
