package media

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

var _ Prober = (*FFprobe)(nil)

// FFprobe implements Prober using ffmpeg-go's ffprobe wrapper.
// The ffprobe binary is resolved via PATH.
type FFprobe struct{}

// NewFFprobe creates a new FFprobe.
func NewFFprobe() *FFprobe {
	return &FFprobe{}
}

// probeOutput is the subset of ffprobe's -show_format -show_streams JSON we read.
type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Channels  int    `json:"channels"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe returns the duration of path and the layout of its first audio stream.
func (p *FFprobe) Probe(ctx context.Context, path string) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, fmt.Errorf("ffprobe cancelled: %w", err)
	}

	out, err := ffmpeg.Probe(path)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s: %w", ErrProbe, path, err)
	}

	info, err := parseProbeOutput(out)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s: %w", ErrProbe, path, err)
	}
	return info, nil
}

func parseProbeOutput(out string) (Info, error) {
	var data probeOutput
	if err := json.Unmarshal([]byte(out), &data); err != nil {
		return Info{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	for _, s := range data.Streams {
		if s.CodecType != "audio" {
			continue
		}
		duration, err := strconv.ParseFloat(data.Format.Duration, 64)
		if err != nil {
			return Info{}, fmt.Errorf("parse duration %q: %w", data.Format.Duration, err)
		}
		return Info{
			Duration: duration,
			Channels: s.Channels,
			Codec:    s.CodecName,
		}, nil
	}

	return Info{}, ErrNoAudioStream
}
