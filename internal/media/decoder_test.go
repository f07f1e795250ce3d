package media

import (
	"context"
	"errors"
	"image"
	"math"
	"testing"

	"github.com/keagan/reelcut/internal/clips"
	"github.com/rs/zerolog"
)

func TestProbeNativeAudioWithoutFFmpeg(t *testing.T) {
	path := writeWav(t, 8000, 12000, func(int) int { return 0 })
	d := NewFFmpegDecoder(zerolog.Nop(), nil, 0)

	info, err := d.Probe(context.Background(), path)
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if info.Type != clips.Audio {
		t.Errorf("expected audio type, got %s", info.Type)
	}
	if math.Abs(info.Duration-1.5) > 0.01 {
		t.Errorf("expected 1.5s, got %v", info.Duration)
	}
	if info.Title != "tone" {
		t.Errorf("expected title tone, got %q", info.Title)
	}
}

func TestDecoderNeedsFFmpegForVideo(t *testing.T) {
	d := NewFFmpegDecoder(zerolog.Nop(), nil, 0)
	if _, err := d.Frame(context.Background(), "a.mp4", 1); !errors.Is(err, ErrNoFFmpeg) {
		t.Errorf("expected ErrNoFFmpeg, got %v", err)
	}
	if _, err := d.Probe(context.Background(), "/does/not/exist.mp4"); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestThumbnail(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 400, 200))
	thumb := Thumbnail(src, 100, 100)
	if b := thumb.Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Errorf("expected 100x50, got %v", b)
	}
}
