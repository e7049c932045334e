package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/maauso/dubsync/internal/timeline"
)

// Compile-time interface checks.
var (
	_ Extractor       = (*FFmpeg)(nil)
	_ SilenceDetector = (*FFmpeg)(nil)
	_ Renderer        = (*FFmpeg)(nil)
)

// FFmpeg implements Extractor, SilenceDetector and Renderer using the ffmpeg CLI.
// Command lines are assembled with ffmpeg-go and run with exec.CommandContext
// so cancellation and stderr capture stay under our control.
type FFmpeg struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
}

// NewFFmpeg creates a new FFmpeg.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpeg(ffmpegPath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpeg{ffmpegPath: ffmpegPath}
}

// ExtractPCM decodes the first audio stream of src into a float PCM file at dst.
func (f *FFmpeg) ExtractPCM(ctx context.Context, src, dst string) error {
	if _, err := f.run(ctx, extractArgs(src, dst)); err != nil {
		return fmt.Errorf("%w: %w", ErrExtract, err)
	}
	return nil
}

// DetectSilence runs the silencedetect filter over path and pairs the
// reported markers into intervals.
func (f *FFmpeg) DetectSilence(ctx context.Context, path string, opts SilenceOpts) ([]timeline.Silence, error) {
	// silencedetect reports on stderr
	stderr, err := f.run(ctx, silenceArgs(path, opts))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDetect, err)
	}
	return ParseSilenceMarkers(stderr)
}

// Render concatenates the manifest entries and encodes them into output.
func (f *FFmpeg) Render(ctx context.Context, manifestPath, output string, opts RenderOpts) error {
	if _, err := f.run(ctx, renderArgs(manifestPath, output, opts)); err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	return nil
}

func extractArgs(src, dst string) []string {
	return ffmpeg.Input(src).
		Output(dst, ffmpeg.KwArgs{
			"map":    "0:a:0",
			"acodec": "pcm_f32le",
		}).
		GlobalArgs("-hide_banner", "-nostdin").
		OverWriteOutput().
		GetArgs()
}

func silenceArgs(path string, opts SilenceOpts) []string {
	filter := fmt.Sprintf("silencedetect=noise=%sdB:d=%s",
		strconv.FormatFloat(opts.NoiseDB, 'f', -1, 64),
		strconv.FormatFloat(opts.MinDuration, 'f', -1, 64),
	)
	return ffmpeg.Input(path).
		Output("-", ffmpeg.KwArgs{
			"af": filter,
			"f":  "null",
		}).
		GlobalArgs("-hide_banner", "-nostdin").
		GetArgs()
}

func renderArgs(manifestPath, output string, opts RenderOpts) []string {
	out := ffmpeg.KwArgs{}
	if opts.Codec != "" {
		out["c:a"] = opts.Codec
	}
	if opts.Bitrate != "" {
		out["b:a"] = opts.Bitrate
	}
	if opts.Channels > 0 {
		out["ac"] = strconv.Itoa(opts.Channels)
	}
	return ffmpeg.Input(manifestPath, ffmpeg.KwArgs{
		"f":    "concat",
		"safe": "0",
	}).
		Output(output, out).
		GlobalArgs("-hide_banner", "-nostdin").
		OverWriteOutput().
		GetArgs()
}

// run executes ffmpeg with args and returns its stderr output.
// A failed run is reported as *FFmpegError carrying stderr.
func (f *FFmpeg) run(ctx context.Context, args []string) (string, error) {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return "", &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return stderr.String(), nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}
