// Package media wraps the external audio tools the sync pipeline depends on:
// ffprobe for metadata, ffmpeg for PCM extraction, silence detection and the
// final concat render.
package media

import (
	"context"
	"errors"

	"github.com/maauso/dubsync/internal/timeline"
)

// Static errors for media operations.
var (
	// ErrProbe is returned when metadata cannot be read from a file.
	ErrProbe = errors.New("media: probe failed")
	// ErrExtract is returned when PCM extraction fails.
	ErrExtract = errors.New("media: pcm extraction failed")
	// ErrDetect is returned when silence detection cannot run.
	ErrDetect = errors.New("media: silence detection failed")
	// ErrRender is returned when the final transcode fails.
	ErrRender = errors.New("media: render failed")
	// ErrNoAudioStream is returned when a probed file has no audio stream.
	ErrNoAudioStream = errors.New("media: no audio stream")
)

// Info is the audio metadata of a media file.
type Info struct {
	// Duration is the container duration in seconds.
	Duration float64 `json:"duration"`
	// Channels is the channel count of the first audio stream.
	Channels int `json:"channels"`
	// Codec is the codec name of the first audio stream.
	Codec string `json:"codec"`
}

// Prober reads audio metadata.
type Prober interface {
	// Probe returns the metadata of the file at path.
	// Fails with ErrProbe on unreadable or non-audio input.
	Probe(ctx context.Context, path string) (Info, error)
}

// Extractor decodes a media file's first audio stream to PCM.
type Extractor interface {
	// ExtractPCM writes the first audio stream of src to dst as 32-bit float PCM.
	ExtractPCM(ctx context.Context, src, dst string) error
}

// SilenceOpts configures silence detection.
type SilenceOpts struct {
	// NoiseDB is the level in dB below which audio counts as silence.
	NoiseDB float64
	// MinDuration is the shortest silence reported, in seconds.
	MinDuration float64
}

// SilenceDetector finds spans of near-silence in an audio file.
type SilenceDetector interface {
	// DetectSilence returns the raw silence intervals of the file, in
	// detection order. Fails with timeline.ErrValidation when the detector
	// output has unpaired markers.
	DetectSilence(ctx context.Context, path string, opts SilenceOpts) ([]timeline.Silence, error)
}

// RenderOpts configures the final encode.
type RenderOpts struct {
	// Codec is the output audio codec, e.g. "eac3".
	Codec string
	// Bitrate is the output bitrate, e.g. "640k".
	Bitrate string
	// Channels is the output channel count. Zero keeps the input layout.
	Channels int
}

// Renderer concatenates the segments listed in a concat manifest into one file.
type Renderer interface {
	// Render encodes the manifest at manifestPath into output.
	// Fails with ErrRender when the transcoder fails.
	Render(ctx context.Context, manifestPath, output string, opts RenderOpts) error
}
