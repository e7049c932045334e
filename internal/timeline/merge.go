package timeline

import (
	"fmt"
	"math"
	"sort"
)

// Merge returns the non-silent complement of silences within [0, dubDuration].
//
// The input may be unsorted and may contain overlapping or duplicate
// intervals; it is not modified. The result is sorted by start and its
// intervals never overlap. An empty silence list yields the whole dub, and a
// dub duration of zero yields no intervals.
func Merge(silences []Silence, dubDuration float64) ([]Interval, error) {
	if !finite(dubDuration) || dubDuration < 0 {
		return nil, fmt.Errorf("%w: dub duration %v", ErrInvalidDuration, dubDuration)
	}
	for i, s := range silences {
		if !finite(s.Start) || !finite(s.End) {
			return nil, fmt.Errorf("%w: silence %d has non-finite bound", ErrValidation, i)
		}
		if s.Start < 0 || s.End < s.Start {
			return nil, fmt.Errorf("%w: silence %d is inverted or negative (%v, %v)", ErrValidation, i, s.Start, s.End)
		}
	}

	sorted := make([]Silence, len(silences))
	copy(sorted, silences)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	intervals := make([]Interval, 0, len(sorted)+1)
	prevEnd := 0.0
	for _, s := range sorted {
		if prevEnd >= dubDuration {
			break
		}
		if s.Start > prevEnd {
			intervals = append(intervals, Interval{Start: prevEnd, End: math.Min(s.Start, dubDuration)})
		}
		prevEnd = math.Max(prevEnd, s.End)
	}
	if dubDuration > prevEnd {
		intervals = append(intervals, Interval{Start: prevEnd, End: dubDuration})
	}

	return intervals, nil
}
