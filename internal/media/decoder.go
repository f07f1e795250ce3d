package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/keagan/reelcut/internal/clips"
	"github.com/keagan/reelcut/internal/ffmpeg"
	"github.com/nfnt/resize"
	"github.com/rs/zerolog"
)

// ErrNoFFmpeg is returned for operations that need ffmpeg when none is
// configured.
var ErrNoFFmpeg = errors.New("ffmpeg is not available")

// Info is what the timeline needs to know about a source file.
type Info struct {
	Path     string
	Title    string
	Duration float64
	Type     clips.Type
	Width    int
	Height   int
	// FrameRate is 0 for audio and when the container does not say
	FrameRate float64
}

// Decoder probes media files and decodes single frames.
type Decoder interface {
	Probe(ctx context.Context, path string) (*Info, error)
	Frame(ctx context.Context, path string, at float64) (image.Image, error)
}

// FFmpegDecoder decodes through an ffmpeg executor. mp3, flac and wav
// files are probed natively, so audio-only projects work without ffmpeg.
type FFmpegDecoder struct {
	logger zerolog.Logger
	exec   *ffmpeg.Executor
	width  int
}

// NewFFmpegDecoder creates a decoder. exec may be nil; frameWidth scales
// decoded frames when positive.
func NewFFmpegDecoder(logger zerolog.Logger, exec *ffmpeg.Executor, frameWidth int) *FFmpegDecoder {
	return &FFmpegDecoder{
		logger: logger.With().Str("component", "media").Logger(),
		exec:   exec,
		width:  frameWidth,
	}
}

func (d *FFmpegDecoder) Probe(ctx context.Context, path string) (*Info, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	if IsNativeAudio(path) {
		dur, err := AudioDuration(path)
		if err == nil {
			return &Info{Path: path, Title: Title(path), Duration: dur, Type: clips.Audio}, nil
		}
		d.logger.Warn().Err(err).Str("path", path).Msg("native probe failed, trying ffmpeg")
	}

	if d.exec == nil {
		return nil, fmt.Errorf("probe %s: %w", path, ErrNoFFmpeg)
	}
	mi, err := d.exec.ProbeMedia(ctx, path)
	if err != nil {
		return nil, err
	}

	info := &Info{
		Path:      path,
		Title:     Title(path),
		Duration:  mi.Duration,
		Width:     mi.Width,
		Height:    mi.Height,
		FrameRate: mi.FPS,
	}
	switch {
	case mi.HasVideo && mi.HasAudio:
		info.Type = clips.Both
	case mi.HasVideo:
		info.Type = clips.Video
	default:
		info.Type = clips.Audio
	}
	return info, nil
}

func (d *FFmpegDecoder) Frame(ctx context.Context, path string, at float64) (image.Image, error) {
	if d.exec == nil {
		return nil, fmt.Errorf("frame of %s: %w", path, ErrNoFFmpeg)
	}
	return d.exec.ExtractFrame(ctx, path, at, d.width)
}

// Thumbnail scales img to fit within maxWidth x maxHeight, keeping its
// aspect ratio. Images already small enough are returned unchanged.
func Thumbnail(img image.Image, maxWidth, maxHeight uint) image.Image {
	return resize.Thumbnail(maxWidth, maxHeight, img, resize.Lanczos3)
}
