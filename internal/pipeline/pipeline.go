package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/keagan/reelcut/internal/clips"
	"github.com/keagan/reelcut/internal/compositor"
	"github.com/keagan/reelcut/internal/config"
	"github.com/keagan/reelcut/internal/ffmpeg"
	"github.com/keagan/reelcut/internal/media"
	"github.com/keagan/reelcut/internal/metrics"
	"github.com/keagan/reelcut/internal/project"
	"github.com/keagan/reelcut/internal/timeline"
	"github.com/keagan/reelcut/pkg/util"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Pipeline ties media decoding, rendering and project storage to the
// timelines edited on the calling goroutine.
type Pipeline struct {
	logger  zerolog.Logger
	config  *Config
	ffmpeg  *ffmpeg.Executor
	decoder media.Decoder
	cache   *compositor.FrameCache
	store   *project.Store
	metrics *metrics.Metrics
}

// New creates a new pipeline instance. A missing ffmpeg is not fatal:
// native audio files can still be imported and their waveforms computed.
func New(logger zerolog.Logger, cfg *Config, appCfg *config.Config, m *metrics.Metrics) (*Pipeline, error) {
	if appCfg == nil {
		return nil, fmt.Errorf("application config is required")
	}
	if cfg == nil {
		cfg = ConfigFrom(appCfg)
	}
	cfg = cfg.withDefaults()

	exec, err := ffmpeg.New(logger, appCfg.FFmpeg.Threads, appCfg.FFmpeg.BinaryPath, appCfg.FFmpeg.ProbePath)
	if err != nil {
		logger.Warn().Err(err).Msg("ffmpeg unavailable, video decoding disabled")
		exec = nil
	}

	decoder := media.NewFFmpegDecoder(logger, exec, cfg.FrameWidth)
	return newPipeline(logger, cfg, exec, decoder, m), nil
}

func newPipeline(logger zerolog.Logger, cfg *Config, exec *ffmpeg.Executor, decoder media.Decoder, m *metrics.Metrics) *Pipeline {
	cfg = cfg.withDefaults()
	return &Pipeline{
		logger:  logger.With().Str("component", "pipeline").Logger(),
		config:  cfg,
		ffmpeg:  exec,
		decoder: decoder,
		cache:   compositor.NewFrameCache(cfg.CacheSize, cfg.CacheTTL),
		store:   project.NewStore(logger, cfg.Timeline),
		metrics: m,
	}
}

// Close releases pipeline resources
func (p *Pipeline) Close() error {
	p.cache.Clear()
	return nil
}

// HasFFmpeg reports whether video decoding is available.
func (p *Pipeline) HasFFmpeg() bool { return p.ffmpeg != nil }

// NewProject returns a registry holding a fresh main timeline with the
// default track layout.
func (p *Pipeline) NewProject(name string) *timeline.Registry {
	return timeline.NewRegistry(timeline.NewDefault(name, p.config.Timeline))
}

func (p *Pipeline) Open(path string) (*timeline.Registry, error) {
	reg, err := p.store.Load(path)
	if err != nil {
		return nil, err
	}
	p.cache.Clear()
	p.updateMetrics(reg)
	return reg, nil
}

func (p *Pipeline) Save(path string, reg *timeline.Registry) error {
	if err := p.store.Save(path, reg); err != nil {
		return err
	}
	p.updateMetrics(reg)
	return nil
}

func (p *Pipeline) updateMetrics(reg *timeline.Registry) {
	if p.metrics != nil {
		p.metrics.UpdateTimeline(reg.Main())
	}
}

// ImportMedia probes path and places it on tl as a new clip spanning the
// whole source.
func (p *Pipeline) ImportMedia(ctx context.Context, tl *timeline.Timeline, path string, opts ImportOptions) (*ImportResult, error) {
	if path == "" {
		return nil, fmt.Errorf("media path cannot be empty")
	}

	info, err := p.decoder.Probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to probe %s: %w", path, err)
	}
	if info.Duration <= 0 {
		return nil, fmt.Errorf("media %s has no duration", path)
	}

	trackID := opts.TrackID
	if trackID < 0 {
		typ := clips.Video
		if info.Type == clips.Audio {
			typ = clips.Audio
		}
		track, err := tl.FindOrCreateTrack(typ)
		if err != nil {
			return nil, err
		}
		trackID = track.ID
	} else if track := tl.Track(trackID); track != nil && !track.Accepts(info.Type) {
		return nil, fmt.Errorf("import %s media onto %s track %d: %w", info.Type, track.Type, trackID, timeline.ErrInvalidTrack)
	}

	id, err := tl.AddClip(trackID, path, opts.Start, info.Duration)
	if err != nil {
		return nil, err
	}
	c := tl.Clip(id)
	c.Name = info.Title
	c.SourceDuration = info.Duration
	if info.Width > 0 && info.Height > 0 {
		c.Metadata[clips.MetaWidth] = fmt.Sprint(info.Width)
		c.Metadata[clips.MetaHeight] = fmt.Sprint(info.Height)
	}
	if info.FrameRate > 0 {
		c.Metadata[clips.MetaFrameRate] = strconv.FormatFloat(info.FrameRate, 'f', -1, 64)
	}

	p.logger.Info().
		Str("clip", id).
		Str("path", path).
		Int("track", trackID).
		Float64("duration", info.Duration).
		Msg("media imported")

	return &ImportResult{ClipID: id, TrackID: trackID, Info: info}, nil
}

// GenerateWaveforms computes peaks for every audio-bearing media clip on
// tl. Decoding runs on a bounded worker pool; the results are attached on
// the calling goroutine once all workers finish. Per-clip failures are
// logged and skipped. It returns the number of waveforms attached.
func (p *Pipeline) GenerateWaveforms(ctx context.Context, tl *timeline.Timeline) (int, error) {
	var jobs []waveformJob
	for _, c := range tl.Clips() {
		if !c.Type.HasAudio() || c.MediaRef == "" {
			continue
		}
		jobs = append(jobs, waveformJob{
			clipID:   c.ID,
			mediaRef: c.MediaRef,
			offset:   c.MediaOffset,
			duration: c.Duration,
		})
	}
	if len(jobs) == 0 {
		return 0, nil
	}

	p.logger.Info().
		Int("clips", len(jobs)).
		Int("workers", p.config.Workers).
		Msg("generating waveforms")

	results := make(chan WaveformResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Workers)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			w, err := p.waveform(gctx, job)
			results <- WaveformResult{ClipID: job.clipID, Waveform: w, Err: err}
			return nil
		})
	}
	err := g.Wait()
	close(results)
	if err != nil {
		return 0, err
	}

	attached := 0
	for r := range results {
		if r.Err != nil {
			p.logger.Warn().Err(r.Err).Str("clip", r.ClipID).Msg("waveform failed")
			continue
		}
		if tl.AttachWaveform(r.ClipID, r.Waveform) {
			attached++
		}
	}
	if p.metrics != nil {
		p.metrics.AddWaveforms(attached)
	}
	return attached, nil
}

func (p *Pipeline) waveform(ctx context.Context, job waveformJob) (*clips.Waveform, error) {
	if util.GetExtension(job.mediaRef) == ".wav" {
		f, err := os.Open(job.mediaRef)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		w, err := media.Peaks(f, p.config.PeaksPerSecond)
		if err != nil {
			return nil, err
		}
		return trimPeaks(w, job.offset, job.duration), nil
	}

	if p.ffmpeg == nil {
		return nil, fmt.Errorf("waveform of %s: %w", job.mediaRef, media.ErrNoFFmpeg)
	}

	tmp, err := util.TempPath(p.config.TempDir, "reelcut_peaks_", ".wav")
	if err != nil {
		return nil, err
	}
	defer util.CleanupFiles(tmp)

	format := ffmpeg.WaveformFormat(p.config.SampleRate)
	if err := p.ffmpeg.ExtractAudio(ctx, job.mediaRef, tmp, job.offset, job.duration, format, nil); err != nil {
		return nil, err
	}

	f, err := os.Open(tmp)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return media.Peaks(f, p.config.PeaksPerSecond)
}

// trimPeaks keeps the peaks covering [offset, offset+duration) of the
// source.
func trimPeaks(w *clips.Waveform, offset, duration float64) *clips.Waveform {
	rate := float64(w.SampleRate)
	from := int(math.Floor(offset * rate))
	to := int(math.Ceil((offset + duration) * rate))
	from = min(max(from, 0), len(w.Peaks))
	to = min(max(to, from), len(w.Peaks))
	return &clips.Waveform{
		Peaks:      append([]float32(nil), w.Peaks[from:to]...),
		SampleRate: w.SampleRate,
	}
}

// RenderFrame composites the frame of tl at time t. tl may be the main
// timeline or any nested timeline of reg.
func (p *Pipeline) RenderFrame(ctx context.Context, reg *timeline.Registry, tl *timeline.Timeline, t float64) (*image.RGBA, error) {
	comp := compositor.New(p.logger, p.decoder, reg, p.cache, p.config.FrameWidth, p.config.FrameHeight)

	start := time.Now()
	img, err := comp.Frame(ctx, tl, t)
	if p.metrics != nil {
		p.metrics.ObserveRender(time.Since(start), err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to render frame at %s: %w", util.FormatSeconds(t), err)
	}

	p.logger.Debug().
		Str("timeline", tl.ID).
		Float64("time", t).
		Dur("took", time.Since(start)).
		Msg("frame rendered")
	return img, nil
}

// Thumbnail writes a JPEG still of a source file at time at, scaled to
// width. Unlike RenderFrame it reads the media directly, without a
// timeline.
func (p *Pipeline) Thumbnail(ctx context.Context, path string, at float64, output string, width int) error {
	if p.ffmpeg == nil {
		return fmt.Errorf("thumbnail of %s: %w", path, media.ErrNoFFmpeg)
	}
	if err := util.EnsureDir(filepath.Dir(output)); err != nil {
		return err
	}
	return p.ffmpeg.GenerateThumbnail(ctx, path, output, at, width, nil)
}

// WriteFrame encodes img as PNG at path, shrinking it to fit maxWidth x
// maxHeight when both are positive.
func WriteFrame(path string, img image.Image, maxWidth, maxHeight uint) error {
	if path == "" {
		return errors.New("output path cannot be empty")
	}
	if maxWidth > 0 && maxHeight > 0 {
		img = media.Thumbnail(img, maxWidth, maxHeight)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	return util.WriteFileAtomic(path, buf.Bytes(), 0o644)
}
