package media

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeWav writes a mono 16-bit file whose samples are produced by gen.
func writeWav(t *testing.T, sampleRate, frames int, gen func(i int) int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	data := make([]int, frames)
	for i := range data {
		data[i] = gen(i)
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write wav failed: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close wav failed: %v", err)
	}
	return path
}

func TestAudioDurationWav(t *testing.T) {
	path := writeWav(t, 8000, 16000, func(int) int { return 0 })

	dur, err := AudioDuration(path)
	if err != nil {
		t.Fatalf("duration failed: %v", err)
	}
	if math.Abs(dur-2.0) > 0.01 {
		t.Errorf("expected 2s, got %v", dur)
	}
}

func TestAudioDurationUnsupported(t *testing.T) {
	if _, err := AudioDuration("clip.mov"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
	if IsNativeAudio("clip.mov") || !IsNativeAudio("SONG.MP3") {
		t.Error("native audio detection is wrong")
	}
}

func TestAudioDurationInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.wav")
	if err := os.WriteFile(path, []byte("not a wav file at all"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := AudioDuration(path); !errors.Is(err, ErrInvalidAudio) {
		t.Errorf("expected ErrInvalidAudio, got %v", err)
	}
}

func TestTitleFallsBackToFileName(t *testing.T) {
	path := writeWav(t, 8000, 800, func(int) int { return 0 })
	if got := Title(path); got != "tone" {
		t.Errorf("expected file name title, got %q", got)
	}
	if got := Title("/missing/voice over.mp3"); got != "voice over" {
		t.Errorf("expected %q, got %q", "voice over", got)
	}
}

func TestPeaks(t *testing.T) {
	// first second silent, second second at half scale
	path := writeWav(t, 8000, 16000, func(i int) int {
		if i < 8000 {
			return 0
		}
		if i%2 == 0 {
			return 16384
		}
		return -16384
	})
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	w, err := Peaks(bytes.NewReader(raw), 4)
	if err != nil {
		t.Fatalf("peaks failed: %v", err)
	}
	if w.SampleRate != 4 {
		t.Errorf("expected 4 peaks per second, got %d", w.SampleRate)
	}
	if len(w.Peaks) != 8 {
		t.Fatalf("expected 8 peaks, got %d", len(w.Peaks))
	}
	for i, p := range w.Peaks {
		want := float32(0)
		if i >= 4 {
			want = 0.5
		}
		if math.Abs(float64(p-want)) > 1e-3 {
			t.Errorf("peak %d: expected %v, got %v", i, want, p)
		}
	}
}

func TestPeaksRejectsGarbage(t *testing.T) {
	if _, err := Peaks(bytes.NewReader([]byte("nope")), 10); !errors.Is(err, ErrInvalidAudio) {
		t.Errorf("expected ErrInvalidAudio, got %v", err)
	}
	if _, err := Peaks(bytes.NewReader(nil), 0); err == nil {
		t.Error("expected error for zero peaks per second")
	}
}
