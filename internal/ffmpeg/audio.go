package ffmpeg

import (
	"context"
	"fmt"
)

// AudioFormat defines audio extraction format options
type AudioFormat struct {
	Codec      string
	SampleRate int
	Channels   int
	Bitrate    string
}

// WaveformFormat returns the mono 16-bit PCM format waveform peaks are
// computed from.
func WaveformFormat(sampleRate int) AudioFormat {
	if sampleRate <= 0 {
		sampleRate = 8000
	}
	return AudioFormat{
		Codec:      "pcm_s16le",
		SampleRate: sampleRate,
		Channels:   1,
	}
}

// ExtractAudio extracts the audio stream of input into output. start and
// duration are in seconds; a non-positive duration extracts to the end.
func (e *Executor) ExtractAudio(ctx context.Context, input, output string, start, duration float64, format AudioFormat, progressFunc ProgressFunc) error {
	if input == "" || output == "" {
		return fmt.Errorf("input and output paths are required")
	}

	e.logger.Info().
		Str("input", input).
		Str("output", output).
		Str("codec", format.Codec).
		Int("sample_rate", format.SampleRate).
		Msg("extracting audio")

	args := []string{}
	if start > 0 {
		args = append(args, "-ss", fmt.Sprintf("%.3f", start))
	}
	args = append(args, "-i", input)
	if duration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.3f", duration))
	}
	args = append(args,
		"-vn",
		"-acodec", format.Codec,
		"-ar", fmt.Sprintf("%d", format.SampleRate),
		"-ac", fmt.Sprintf("%d", format.Channels),
	)

	if format.Bitrate != "" {
		args = append(args, "-b:a", format.Bitrate)
	}

	args = append(args, output)

	opts := RunOptions{
		Args:            args,
		ProgressHandler: progressFunc,
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("audio extraction")
		},
	}

	return e.Run(ctx, opts)
}
