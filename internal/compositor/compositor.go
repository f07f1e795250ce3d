package compositor

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"

	"github.com/keagan/reelcut/internal/clips"
	"github.com/keagan/reelcut/internal/effects"
	"github.com/keagan/reelcut/internal/keyframes"
	"github.com/keagan/reelcut/internal/timeline"
	"github.com/rs/zerolog"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// defaultFrameRate is assumed for clips imported without a known rate.
const defaultFrameRate = 25.0

// FrameSource decodes the frame of a media file at a source time.
type FrameSource interface {
	Frame(ctx context.Context, mediaRef string, at float64) (image.Image, error)
}

// Compositor renders the video tracks of a timeline into a single frame.
// Tracks are drawn in order, so later tracks cover earlier ones; within a
// track, a later-starting clip covers an earlier one.
type Compositor struct {
	logger     zerolog.Logger
	source     FrameSource
	registry   *timeline.Registry
	cache      *FrameCache
	width      int
	height     int
	background color.RGBA
}

// New creates a compositor producing width x height frames. registry
// resolves nested clips and may be nil; cache may be nil.
func New(logger zerolog.Logger, source FrameSource, registry *timeline.Registry, cache *FrameCache, width, height int) *Compositor {
	return &Compositor{
		logger:     logger.With().Str("component", "compositor").Logger(),
		source:     source,
		registry:   registry,
		cache:      cache,
		width:      width,
		height:     height,
		background: color.RGBA{A: 255},
	}
}

// Frame renders tl at time t.
func (c *Compositor) Frame(ctx context.Context, tl *timeline.Timeline, t float64) (*image.RGBA, error) {
	canvas := image.NewRGBA(image.Rect(0, 0, c.width, c.height))
	xdraw.Draw(canvas, canvas.Bounds(), image.NewUniform(c.background), image.Point{}, xdraw.Src)

	if err := c.drawTimeline(ctx, canvas, tl, t); err != nil {
		return nil, err
	}
	return canvas, nil
}

func (c *Compositor) drawTimeline(ctx context.Context, canvas *image.RGBA, tl *timeline.Timeline, t float64) error {
	for _, track := range tl.Tracks() {
		if track.Type != clips.Video || !tl.Audible(track) {
			continue
		}
		trackOpacity := track.Automation(timeline.ParamOpacity).Effective(t, 1)

		for _, clip := range visibleAt(track.ClipsAt(t), t) {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !clip.Type.HasVideo() {
				continue
			}
			frame, err := c.clipFrame(ctx, clip, t)
			if err != nil {
				return fmt.Errorf("clip %s at %.3f: %w", clip.ID, t, err)
			}
			if frame == nil {
				continue
			}
			if expr := clip.Metadata[effects.MetadataKey]; expr != "" {
				chain, err := effects.ParseChain(expr)
				if err != nil {
					return fmt.Errorf("clip %s: %w", clip.ID, err)
				}
				frame = effects.Chain(frame, chain...)
			}
			var anim map[string][]float64
			if clip.Animation != nil {
				anim = clip.Animation.EvaluateAll(clip.LocalTime(t))
			}
			c.place(canvas, frame, anim, trackOpacity)
		}
	}
	return nil
}

// clipFrame returns the source frame of one clip, rendering nested
// timelines recursively.
func (c *Compositor) clipFrame(ctx context.Context, clip *clips.Clip, t float64) (*image.RGBA, error) {
	if clip.IsNested() {
		at := clip.SourceTime(t)
		if c.registry == nil {
			return nil, nil
		}
		child, err := c.registry.Get(clip.NestedID)
		if err != nil {
			return nil, err
		}
		nested := image.NewRGBA(image.Rect(0, 0, c.width, c.height))
		if err := c.drawTimeline(ctx, nested, child, at); err != nil {
			return nil, err
		}
		return nested, nil
	}

	at := sourceTime(clip, t)
	key := frameKey(clip.MediaRef, at)
	if c.cache != nil {
		if frame, ok := c.cache.Get(key); ok {
			return frame, nil
		}
	}

	img, err := c.source.Frame(ctx, clip.MediaRef, at)
	if err != nil {
		return nil, err
	}
	frame := effects.ToRGBA(img)
	if c.cache != nil {
		c.cache.Set(key, frame)
	}
	c.logger.Debug().Str("media", clip.MediaRef).Float64("at", at).Msg("decoded frame")
	return frame, nil
}

// visibleAt drops clips that end exactly at t when another clip carries on
// past it, so a cut shows only the incoming clip.
func visibleAt(active []*clips.Clip, t float64) []*clips.Clip {
	var out []*clips.Clip
	for _, clip := range active {
		if t < clip.EndTime()-keyframes.Epsilon {
			out = append(out, clip)
		}
	}
	if len(out) == 0 {
		return active
	}
	return out
}

// sourceTime is the media position decoded for t. No frame starts at a
// clip's out point, so the last frame interval maps to the frame before it.
func sourceTime(clip *clips.Clip, t float64) float64 {
	at := clip.SourceTime(t)
	step := 1 / defaultFrameRate
	if fps, err := strconv.ParseFloat(clip.Metadata[clips.MetaFrameRate], 64); err == nil && fps > 0 {
		step = 1 / fps
	}
	if last := clip.MediaOffset + clip.Duration - step; at > last {
		at = math.Max(clip.MediaOffset, last)
	}
	return at
}

// place draws frame onto canvas, fitted to the canvas and then scaled,
// rotated (degrees) and offset (pixels from center) by the clip animation.
func (c *Compositor) place(canvas, frame *image.RGBA, anim map[string][]float64, trackOpacity float64) {
	opacity := trackOpacity
	if v, ok := anim[keyframes.Opacity]; ok {
		opacity *= v[0]
	}
	if opacity <= 0 {
		return
	}
	if opacity < 1 {
		fade, err := effects.New(effects.Opacity, opacity)
		if err != nil {
			c.logger.Warn().Err(err).Msg("skipping fade")
		} else {
			frame = fade.Apply(frame)
		}
	}

	sx, sy := 1.0, 1.0
	if v, ok := anim[keyframes.Scale]; ok {
		sx, sy = v[0], v[1]
	}
	px, py := 0.0, 0.0
	if v, ok := anim[keyframes.Position]; ok {
		px, py = v[0], v[1]
	}
	theta := 0.0
	if v, ok := anim[keyframes.Rotation]; ok {
		theta = v[0] * math.Pi / 180
	}

	sb := frame.Bounds()
	if sb.Empty() || sx == 0 || sy == 0 {
		return
	}
	fit := math.Min(float64(c.width)/float64(sb.Dx()), float64(c.height)/float64(sb.Dy()))

	c.logger.Trace().
		Float64("opacity", opacity).
		Float64("scale_x", sx).
		Float64("scale_y", sy).
		Float64("rotation", theta).
		Msg("placing frame")

	xdraw.BiLinear.Transform(canvas, placement(sb, fit*sx, fit*sy, theta, float64(c.width)/2+px, float64(c.height)/2+py), frame, sb, xdraw.Over, nil)
}

// placement maps source pixels to canvas pixels: center the source on the
// origin, scale, rotate, then move to (cx, cy).
func placement(src image.Rectangle, a, d, theta, cx, cy float64) f64.Aff3 {
	cos, sin := math.Cos(theta), math.Sin(theta)
	hw := float64(src.Min.X) + float64(src.Dx())/2
	hh := float64(src.Min.Y) + float64(src.Dy())/2
	return f64.Aff3{
		cos * a, -sin * d, cx - cos*a*hw + sin*d*hh,
		sin * a, cos * d, cy - sin*a*hw - cos*d*hh,
	}
}
