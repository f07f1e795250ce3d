package ffmpeg

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// skipIfNoFFmpeg skips the test if ffmpeg is not available
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH - install with: brew install ffmpeg")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH - install with: brew install ffmpeg")
	}
}

// generateTestVideo renders a two second 320x240 clip with a sine tone.
func generateTestVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.mp4")
	cmd := exec.Command("ffmpeg", "-f", "lavfi", "-i", "sine=frequency=1000:duration=2",
		"-f", "lavfi", "-i", "testsrc=duration=2:size=320x240:rate=30",
		"-pix_fmt", "yuv420p", "-shortest", "-y", path)
	if err := cmd.Run(); err != nil {
		t.Skipf("could not generate test video: %v", err)
	}
	return path
}

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	skipIfNoFFmpeg(t)
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	e, err := New(logger, 2, "", "")
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	return e
}

func TestFilterBuilder(t *testing.T) {
	fb := NewFilterBuilder()
	filter := fb.Scale(1920, 1080).FPS(30).Build()

	expected := "scale=1920:1080,fps=30.000000"
	if filter != expected {
		t.Errorf("expected %q, got %q", expected, filter)
	}
}

func TestFilterBuilderEmpty(t *testing.T) {
	fb := NewFilterBuilder()
	filter := fb.Build()

	if filter != "" {
		t.Errorf("expected empty string, got %q", filter)
	}
}

func TestFilterBuilderScaleKeepsAspect(t *testing.T) {
	if got := NewFilterBuilder().Scale(160, -1).Build(); got != "scale=160:-1" {
		t.Errorf("expected scale=160:-1, got %q", got)
	}
	if got := NewFilterBuilder().Scale(0, -1).Custom("hflip").Build(); got != "hflip" {
		t.Errorf("zero width should add no scale, got %q", got)
	}
}

func TestParseProbe(t *testing.T) {
	raw := `{
		"format": {"duration": "12.500000", "bit_rate": "800000"},
		"streams": [
			{"codec_type": "video", "codec_name": "h264", "width": 1280, "height": 720, "r_frame_rate": "30000/1001"},
			{"codec_type": "audio", "codec_name": "aac", "bit_rate": "128000", "sample_rate": "48000", "channels": 2}
		]
	}`
	info, err := parseProbe([]byte(raw))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if info.Duration != 12.5 {
		t.Errorf("expected duration 12.5, got %v", info.Duration)
	}
	if !info.HasVideo || !info.HasAudio {
		t.Errorf("expected video and audio, got %+v", info)
	}
	if info.Width != 1280 || info.Height != 720 {
		t.Errorf("expected 1280x720, got %dx%d", info.Width, info.Height)
	}
	if info.FPS < 29.9 || info.FPS > 30 {
		t.Errorf("expected ~29.97 fps, got %v", info.FPS)
	}
	if info.SampleRate != 48000 || info.Channels != 2 {
		t.Errorf("expected 48000 Hz stereo, got %d Hz %d ch", info.SampleRate, info.Channels)
	}
}

func TestParseProbeCoverArt(t *testing.T) {
	raw := `{
		"format": {"duration": "3.0"},
		"streams": [
			{"codec_type": "audio", "codec_name": "mp3"},
			{"codec_type": "video", "codec_name": "mjpeg", "disposition": {"attached_pic": 1}}
		]
	}`
	info, err := parseProbe([]byte(raw))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if info.HasVideo {
		t.Error("cover art should not count as video")
	}

	if _, err := parseProbe([]byte(`{"format": {}, "streams": []}`)); err == nil {
		t.Error("expected error for a file without streams")
	}
}

func TestStreamOutputProgress(t *testing.T) {
	out := strings.Join([]string{
		"frame=30",
		"fps=29.5",
		"bitrate=512.0kbits/s",
		"out_time_us=1000000",
		"speed=1.02x",
		"progress=continue",
		"frame=60",
		"out_time_us=2000000",
		"progress=end",
	}, "\n")

	var got []Progress
	var lines int
	streamOutput(strings.NewReader(out), func(p *Progress) {
		got = append(got, *p)
	}, func(string) {
		lines++
	})

	if lines != 9 {
		t.Errorf("expected 9 log lines, got %d", lines)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 progress updates, got %d", len(got))
	}
	if got[0].Frame != 30 || got[0].Seconds != 1 || got[0].Speed != "1.02x" {
		t.Errorf("unexpected first update %+v", got[0])
	}
	if got[1].Frame != 60 || got[1].Seconds != 2 || got[1].Speed != "" {
		t.Errorf("progress should reset between blocks, got %+v", got[1])
	}
}

func TestExecutorCreation(t *testing.T) {
	e := newTestExecutor(t)
	if e.ffmpegPath == "" {
		t.Error("ffmpeg path is empty")
	}
	if e.ffprobePath == "" {
		t.Error("ffprobe path is empty")
	}
	t.Logf("ffmpeg: %s", e.ffmpegPath)
	t.Logf("ffprobe: %s", e.ffprobePath)
}

func TestExecutorMissingBinary(t *testing.T) {
	if _, err := New(zerolog.Nop(), 1, "definitely-not-ffmpeg", ""); err == nil {
		t.Error("expected error for a missing binary")
	}
}

func TestProbeMedia(t *testing.T) {
	e := newTestExecutor(t)
	path := generateTestVideo(t)

	info, err := e.ProbeMedia(context.Background(), path)
	if err != nil {
		t.Fatalf("ProbeMedia failed: %v", err)
	}
	if info.Width != 320 || info.Height != 240 {
		t.Errorf("expected 320x240, got %dx%d", info.Width, info.Height)
	}
	if info.Duration < 1.9 || info.Duration > 2.2 {
		t.Errorf("expected ~2s duration, got %v", info.Duration)
	}
	if !info.HasAudio {
		t.Error("expected an audio stream")
	}
}

func TestProbeMediaInvalidFile(t *testing.T) {
	e := newTestExecutor(t)
	ctx := context.Background()

	if _, err := e.ProbeMedia(ctx, "nonexistent.mp4"); err == nil {
		t.Error("ProbeMedia should fail for non-existent file")
	}

	invalidPath := filepath.Join(t.TempDir(), "invalid.txt")
	if err := os.WriteFile(invalidPath, []byte("not a video"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := e.ProbeMedia(ctx, invalidPath); err == nil {
		t.Error("ProbeMedia should fail for invalid video file")
	}
}

func TestExtractFrame(t *testing.T) {
	e := newTestExecutor(t)
	path := generateTestVideo(t)

	img, err := e.ExtractFrame(context.Background(), path, 1.0, 160)
	if err != nil {
		t.Fatalf("ExtractFrame failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 160 || b.Dy() != 120 {
		t.Errorf("expected 160x120 frame, got %v", b)
	}
}

func TestExtractAudio(t *testing.T) {
	e := newTestExecutor(t)
	path := generateTestVideo(t)
	out := filepath.Join(t.TempDir(), "audio.wav")

	err := e.ExtractAudio(context.Background(), path, out, 0.5, 1.0, WaveformFormat(8000), nil)
	if err != nil {
		t.Fatalf("ExtractAudio failed: %v", err)
	}
	stat, err := os.Stat(out)
	if err != nil {
		t.Fatalf("output file was not created: %v", err)
	}
	// one second of 8 kHz mono 16-bit PCM plus the header
	if stat.Size() < 15000 {
		t.Errorf("audio output too small: %d bytes", stat.Size())
	}
}
