package pipeline

import (
	"time"

	"github.com/keagan/reelcut/internal/clips"
	"github.com/keagan/reelcut/internal/config"
	"github.com/keagan/reelcut/internal/media"
	"github.com/keagan/reelcut/internal/timeline"
)

// Config holds pipeline-specific configuration
type Config struct {
	Workers int
	TempDir string

	Timeline timeline.Options

	FrameWidth  int
	FrameHeight int
	CacheSize   int
	CacheTTL    time.Duration

	PeaksPerSecond int
	// SampleRate is the rate audio is resampled to before peak reduction
	SampleRate int
}

// ConfigFrom derives pipeline settings from the application config.
func ConfigFrom(app *config.Config) *Config {
	return &Config{
		Workers:        app.Concurrency,
		TempDir:        app.TempDir,
		Timeline:       app.TimelineOptions(),
		FrameWidth:     app.Preview.Width,
		FrameHeight:    app.Preview.Height,
		CacheSize:      app.Preview.CacheSize,
		CacheTTL:       app.Preview.CacheTTL,
		PeaksPerSecond: app.Waveform.PeaksPerSecond,
		SampleRate:     app.Waveform.SampleRate,
	}
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.Workers <= 0 {
		out.Workers = 4
	}
	if out.Timeline.PixelsPerUnit <= 0 {
		out.Timeline = timeline.DefaultOptions()
	}
	if out.FrameWidth <= 0 || out.FrameHeight <= 0 {
		out.FrameWidth, out.FrameHeight = 640, 360
	}
	if out.CacheSize <= 0 {
		out.CacheSize = 64
	}
	if out.CacheTTL <= 0 {
		out.CacheTTL = 30 * time.Second
	}
	if out.PeaksPerSecond <= 0 {
		out.PeaksPerSecond = 50
	}
	return &out
}

// ImportOptions places imported media on a timeline
type ImportOptions struct {
	// TrackID selects the target track. Negative picks the first unlocked
	// track matching the media type, creating one if needed.
	TrackID int
	Start   float64
}

// ImportResult describes a clip created from a media file
type ImportResult struct {
	ClipID  string
	TrackID int
	Info    *media.Info
}

// WaveformResult carries peaks computed by a worker back to the goroutine
// that owns the timeline
type WaveformResult struct {
	ClipID   string
	Waveform *clips.Waveform
	Err      error
}

// waveformJob is a snapshot of the clip fields a worker needs, taken before
// the workers start so they never touch the timeline.
type waveformJob struct {
	clipID   string
	mediaRef string
	offset   float64
	duration float64
}
