package timeline

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name      string
		nonSilent []Interval
		master    float64
		dub       float64
		want      []Segment
	}{
		{
			name:      "master longer than dub",
			nonSilent: []Interval{{0, 2.0}, {3.0, 10.0}},
			master:    12.0,
			dub:       10.0,
			want: []Segment{
				{SourceDub, 0, 2.0},
				{SourceMaster, 2.0, 3.0},
				{SourceDub, 3.0, 10.0},
				{SourceMaster, 10.0, 12.0},
			},
		},
		{
			name:   "no speech in the dub",
			master: 8,
			dub:    6,
			want:   []Segment{{SourceMaster, 0, 8}},
		},
		{
			name:      "dub longer than master is cut at the master end",
			nonSilent: []Interval{{1, 4}, {6, 15}},
			master:    10,
			dub:       15,
			want: []Segment{
				{SourceMaster, 0, 1},
				{SourceDub, 1, 4},
				{SourceMaster, 4, 6},
				{SourceDub, 6, 10},
			},
		},
		{
			name:      "speech starting after the master ends",
			nonSilent: []Interval{{12, 14}},
			master:    10,
			dub:       15,
			want:      []Segment{{SourceMaster, 0, 10}},
		},
		{
			name:      "interval end past dub is clamped",
			nonSilent: []Interval{{0, 11}},
			master:    12,
			dub:       10,
			want: []Segment{
				{SourceDub, 0, 10},
				{SourceMaster, 10, 12},
			},
		},
		{
			name:      "touching intervals",
			nonSilent: []Interval{{0, 2}, {2, 5}},
			master:    5,
			dub:       5,
			want: []Segment{
				{SourceDub, 0, 2},
				{SourceDub, 2, 5},
			},
		},
		{
			name:      "zero length interval is skipped",
			nonSilent: []Interval{{0, 2}, {3, 3}, {4, 5}},
			master:    5,
			dub:       5,
			want: []Segment{
				{SourceDub, 0, 2},
				{SourceMaster, 2, 3},
				{SourceMaster, 3, 4},
				{SourceDub, 4, 5},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Build(tt.nonSilent, tt.master, tt.dub)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.InDelta(t, tt.master, Span(got), 1e-9)
		})
	}
}

func TestBuild_Rejects(t *testing.T) {
	tests := []struct {
		name      string
		nonSilent []Interval
		master    float64
		dub       float64
		wantErr   error
	}{
		{"zero master", nil, 0, 10, ErrInvalidDuration},
		{"negative dub", nil, 10, -1, ErrInvalidDuration},
		{"NaN master", nil, math.NaN(), 10, ErrInvalidDuration},
		{"infinite dub", nil, 10, math.Inf(1), ErrInvalidDuration},
		{"NaN bound", []Interval{{0, math.NaN()}}, 10, 10, ErrValidation},
		{"inverted interval", []Interval{{3, 2}}, 10, 10, ErrValidation},
		{"negative start", []Interval{{-1, 2}}, 10, 10, ErrValidation},
		{"start past dub end", []Interval{{11, 12}}, 20, 10, ErrValidation},
		{"overlapping", []Interval{{0, 3}, {2, 4}}, 10, 10, ErrValidation},
		{"unsorted", []Interval{{5, 6}, {1, 2}}, 10, 10, ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.nonSilent, tt.master, tt.dub)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBuild_CoversMasterFromMergedSilences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 500; run++ {
		dub := 1 + rng.Float64()*120
		master := 1 + rng.Float64()*120
		nonSilent, err := Merge(randomSilences(rng, dub, rng.Intn(15)), dub)
		require.NoError(t, err)

		segments, err := Build(nonSilent, master, dub)
		require.NoError(t, err)
		require.NotEmpty(t, segments)

		cursor := 0.0
		for i, seg := range segments {
			assert.Equal(t, cursor, seg.In, "run %d segment %d does not start at the cursor", run, i)
			assert.Greater(t, seg.Out, seg.In, "run %d segment %d is empty", run, i)
			assert.True(t, seg.Source.IsValid())
			switch seg.Source {
			case SourceMaster:
				assert.LessOrEqual(t, seg.Out, master)
			case SourceDub:
				assert.LessOrEqual(t, seg.Out, dub)
				assert.LessOrEqual(t, seg.Out, master)
			}
			cursor = seg.Out
		}
		assert.Equal(t, master, cursor, "run %d does not end at the master duration", run)
	}
}

func TestMergeThenBuild(t *testing.T) {
	nonSilent, err := Merge([]Silence{{2.0, 3.0}}, 10.0)
	require.NoError(t, err)

	segments, err := Build(nonSilent, 12.0, 10.0)
	require.NoError(t, err)

	assert.Equal(t, []Segment{
		{SourceDub, 0, 2.0},
		{SourceMaster, 2.0, 3.0},
		{SourceDub, 3.0, 10.0},
		{SourceMaster, 10.0, 12.0},
	}, segments)
	assert.Equal(t, 12.0, Span(segments))
}

func TestSegment_String(t *testing.T) {
	assert.Equal(t, "dub 1.500-3.000", Segment{SourceDub, 1.5, 3}.String())
}
