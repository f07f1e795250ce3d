package media

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/go-audio/wav"
	"github.com/keagan/reelcut/internal/clips"
	"github.com/keagan/reelcut/pkg/util"
	"github.com/mewkiz/flac"
	"github.com/tcolgate/mp3"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported media format")
	ErrInvalidAudio      = errors.New("invalid audio data")
)

// nativeAudio lists the formats whose length is read without ffmpeg.
var nativeAudio = map[string]bool{
	".mp3":  true,
	".flac": true,
	".wav":  true,
}

// IsNativeAudio reports whether path can be measured without ffmpeg.
func IsNativeAudio(path string) bool {
	return nativeAudio[util.GetExtension(path)]
}

// AudioDuration returns the length in seconds of an mp3, flac or wav file.
func AudioDuration(path string) (float64, error) {
	switch ext := util.GetExtension(path); ext {
	case ".mp3":
		return durationMP3(path)
	case ".flac":
		return durationFLAC(path)
	case ".wav":
		return durationWAV(path)
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// durationMP3 sums decoded frame durations. A file with no decodable frame
// is an error; a truncated tail keeps what was read.
func durationMP3(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var total time.Duration
	var skipped int
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) || frames > 0 {
				break
			}
			return 0, fmt.Errorf("%w: %s: %v", ErrInvalidAudio, path, err)
		}
		total += fr.Duration()
		frames++
	}
	if frames == 0 {
		return 0, fmt.Errorf("%w: %s has no frames", ErrInvalidAudio, path)
	}
	return total.Seconds(), nil
}

// durationFLAC reads the STREAMINFO block.
func durationFLAC(path string) (float64, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	si := stream.Info
	if si.NSamples == 0 || si.SampleRate == 0 {
		return 0, fmt.Errorf("%w: flac stream missing sample info", ErrInvalidAudio)
	}
	return float64(si.NSamples) / float64(si.SampleRate), nil
}

func durationWAV(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("%w: invalid wav file", ErrInvalidAudio)
	}
	if err := dec.FwdToPCM(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}
	frameSize := int64(dec.BitDepth/8) * int64(dec.NumChans)
	if dec.SampleRate == 0 || frameSize <= 0 {
		return 0, fmt.Errorf("%w: invalid wav header", ErrInvalidAudio)
	}
	frames := dec.PCMLen() / frameSize
	return float64(frames) / float64(dec.SampleRate), nil
}

// Title returns the embedded title tag, falling back to the file name
// without its extension.
func Title(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	f, err := os.Open(path)
	if err != nil {
		return name
	}
	defer f.Close()

	md, err := tag.ReadFrom(f)
	if err != nil || strings.TrimSpace(md.Title()) == "" {
		return name
	}
	return strings.TrimSpace(md.Title())
}

// Peaks reads a wav stream and reduces it to peaksPerSecond absolute peak
// values per second of audio, normalized to [0, 1]. Channels are mixed by
// taking the loudest.
func Peaks(r io.ReadSeeker, peaksPerSecond int) (*clips.Waveform, error) {
	if peaksPerSecond <= 0 {
		return nil, fmt.Errorf("peaks per second must be positive, got %d", peaksPerSecond)
	}

	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: invalid wav file", ErrInvalidAudio)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}

	channels := buf.Format.NumChannels
	rate := buf.Format.SampleRate
	if channels <= 0 || rate <= 0 {
		return nil, fmt.Errorf("%w: missing format", ErrInvalidAudio)
	}
	depth := buf.SourceBitDepth
	if depth <= 0 {
		depth = int(dec.BitDepth)
	}
	if depth <= 0 {
		return nil, fmt.Errorf("%w: missing bit depth", ErrInvalidAudio)
	}
	full := math.Pow(2, float64(depth-1))

	frameCount := len(buf.Data) / channels
	bucket := rate / peaksPerSecond
	if bucket < 1 {
		bucket = 1
	}

	peaks := make([]float32, 0, frameCount/bucket+1)
	var peak float64
	for i := 0; i < frameCount; i++ {
		for ch := 0; ch < channels; ch++ {
			v := math.Abs(float64(buf.Data[i*channels+ch])) / full
			if v > peak {
				peak = v
			}
		}
		if (i+1)%bucket == 0 {
			peaks = append(peaks, float32(math.Min(peak, 1)))
			peak = 0
		}
	}
	if frameCount%bucket != 0 {
		peaks = append(peaks, float32(math.Min(peak, 1)))
	}

	return &clips.Waveform{Peaks: peaks, SampleRate: peaksPerSecond}, nil
}
