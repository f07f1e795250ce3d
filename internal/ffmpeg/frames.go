package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/keagan/reelcut/pkg/util"
)

// ExtractFrame decodes the frame shown at the given source time. A
// positive width scales the frame, keeping its aspect ratio.
func (e *Executor) ExtractFrame(ctx context.Context, input string, at float64, width int) (image.Image, error) {
	if input == "" {
		return nil, fmt.Errorf("input path is required")
	}
	if at < 0 {
		return nil, fmt.Errorf("negative timestamp %.3f", at)
	}

	args := []string{
		"-ss", util.FormatSeconds(at),
		"-i", input,
		"-frames:v", "1",
	}
	if vf := NewFilterBuilder().Scale(width, -1).Build(); vf != "" {
		args = append(args, "-vf", vf)
	}
	args = append(args, "-f", "image2pipe", "-vcodec", "png", "-")

	out, err := e.Capture(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("extract frame at %.3f: %w", at, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no frame at %.3f in %s", at, input)
	}

	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}

// GenerateThumbnail writes a JPEG thumbnail of the frame at a timestamp
func (e *Executor) GenerateThumbnail(ctx context.Context, input, output string, at float64, width int, progressFunc ProgressFunc) error {
	if input == "" {
		return fmt.Errorf("input path is required")
	}
	if output == "" {
		return fmt.Errorf("output path is required")
	}

	e.logger.Info().
		Str("input", input).
		Str("output", output).
		Float64("at", at).
		Msg("generating thumbnail")

	args := []string{
		"-ss", util.FormatSeconds(at),
		"-i", input,
		"-vframes", "1",
	}
	if vf := NewFilterBuilder().Scale(width, -1).Build(); vf != "" {
		args = append(args, "-vf", vf)
	}
	args = append(args, "-q:v", "2", output)

	opts := RunOptions{
		Args:            args,
		ProgressHandler: progressFunc,
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("thumbnail generation")
		},
	}

	return e.Run(ctx, opts)
}
