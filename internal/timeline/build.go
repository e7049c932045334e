package timeline

import (
	"fmt"
	"math"
)

// Build lays the dub's non-silent intervals onto the master timeline.
//
// Dub audio is used wherever the dub is speaking; master audio fills the
// dub's silences and any runtime past the end of the dub. Every cut is
// clamped against both durations independently. The returned segments are
// contiguous on the output timeline: the first starts at 0, each starts
// where the previous ended and the last ends at masterDuration. Zero-length
// segments are never emitted.
//
// nonSilent must be sorted, non-overlapping and start within the dub, which
// is what Merge produces. Build checks this rather than assuming it.
func Build(nonSilent []Interval, masterDuration, dubDuration float64) ([]Segment, error) {
	if err := checkDuration("master", masterDuration); err != nil {
		return nil, err
	}
	if err := checkDuration("dub", dubDuration); err != nil {
		return nil, err
	}
	if err := checkIntervals(nonSilent, dubDuration); err != nil {
		return nil, err
	}

	b := builder{segments: make([]Segment, 0, 2*len(nonSilent)+1)}
	i := 0
	for b.current < masterDuration {
		if i >= len(nonSilent) {
			b.emit(SourceMaster, masterDuration)
			break
		}

		ns := nonSilent[i]
		nsEnd := math.Min(ns.End, dubDuration)

		if b.current < ns.Start {
			b.emit(SourceMaster, math.Min(ns.Start, math.Min(dubDuration, masterDuration)))
		}
		if b.current >= ns.Start {
			b.emit(SourceDub, math.Min(nsEnd, masterDuration))
			i++
		}
	}

	return b.segments, nil
}

type builder struct {
	segments []Segment
	current  float64
}

// emit appends a segment from the cursor to out and advances the cursor.
// Spans that would not move the cursor forward are dropped.
func (b *builder) emit(src Source, out float64) {
	if out <= b.current {
		return
	}
	b.segments = append(b.segments, Segment{Source: src, In: b.current, Out: out})
	b.current = out
}

func checkIntervals(intervals []Interval, dubDuration float64) error {
	prevEnd := 0.0
	for i, iv := range intervals {
		if !finite(iv.Start) || !finite(iv.End) {
			return fmt.Errorf("%w: interval %d has non-finite bound", ErrValidation, i)
		}
		if iv.Start < 0 || iv.End < iv.Start {
			return fmt.Errorf("%w: interval %d is inverted or negative (%v, %v)", ErrValidation, i, iv.Start, iv.End)
		}
		if iv.Start > dubDuration {
			return fmt.Errorf("%w: interval %d starts at %v past dub end %v", ErrValidation, i, iv.Start, dubDuration)
		}
		if iv.Start < prevEnd {
			return fmt.Errorf("%w: interval %d overlaps or is out of order", ErrValidation, i)
		}
		prevEnd = iv.End
	}
	return nil
}
