package clips

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/keagan/reelcut/internal/keyframes"
)

// Type is the kind of media a clip carries
type Type string

const (
	Video Type = "video"
	Audio Type = "audio"
	Both  Type = "both"
)

// ParseType validates a clip type name
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(s)); t {
	case Video, Audio, Both:
		return t, nil
	}
	return "", fmt.Errorf("unknown clip type %q", s)
}

// HasVideo reports whether clips of this type produce frames
func (t Type) HasVideo() bool { return t == Video || t == Both }

// HasAudio reports whether clips of this type produce samples
func (t Type) HasAudio() bool { return t == Audio || t == Both }

// Waveform holds display peaks computed off the command goroutine
type Waveform struct {
	Peaks []float32
	// SampleRate is the number of peaks per second of source
	SampleRate int
}

// Split divides the peaks at fraction frac of their length
func (w *Waveform) Split(frac float64) (*Waveform, *Waveform) {
	if w == nil {
		return nil, nil
	}
	n := int(math.Round(float64(len(w.Peaks)) * frac))
	if n < 0 {
		n = 0
	}
	if n > len(w.Peaks) {
		n = len(w.Peaks)
	}
	left := &Waveform{Peaks: append([]float32(nil), w.Peaks[:n]...), SampleRate: w.SampleRate}
	right := &Waveform{Peaks: append([]float32(nil), w.Peaks[n:]...), SampleRate: w.SampleRate}
	return left, right
}

// Metadata keys filled in when media is imported
const (
	MetaWidth     = "width"
	MetaHeight    = "height"
	MetaFrameRate = "fps"
)

// Clip is a time-bounded placement of a media reference on a track
type Clip struct {
	ID        string
	Name      string
	StartTime float64
	Duration  float64
	TrackID   int
	Type      Type
	Selected  bool

	// MediaRef is the source file path, or empty for nested clips
	MediaRef string
	// MediaOffset is where playback starts inside the source
	MediaOffset float64
	// SourceDuration is the intrinsic source length, 0 when unknown
	SourceDuration float64
	// NestedID references another timeline instead of a media file
	NestedID string

	Animation *keyframes.Manager
	Metadata  map[string]string

	waveform atomic.Pointer[Waveform]
}

// NewID returns a fresh clip id
func NewID() string {
	return uuid.NewString()
}

// New creates a clip with a fresh id
func New(name, mediaRef string, start, duration float64, trackID int, typ Type) *Clip {
	if typ == "" {
		typ = Video
	}
	return &Clip{
		ID:        NewID(),
		Name:      name,
		StartTime: start,
		Duration:  duration,
		TrackID:   trackID,
		Type:      typ,
		MediaRef:  mediaRef,
		Animation: keyframes.NewManager(),
		Metadata:  make(map[string]string),
	}
}

func (c *Clip) EndTime() float64 {
	return c.StartTime + c.Duration
}

// Contains reports whether t lies in [StartTime, EndTime], inclusive
func (c *Clip) Contains(t float64) bool {
	return t >= c.StartTime && t <= c.EndTime()
}

// Overlaps reports whether the clip intersects [start, end]
func (c *Clip) Overlaps(start, end float64) bool {
	return c.StartTime <= end && c.EndTime() >= start
}

// LocalTime converts a timeline time to clip-local time
func (c *Clip) LocalTime(t float64) float64 {
	return t - c.StartTime
}

// SourceTime converts a timeline time to a position inside the media
func (c *Clip) SourceTime(t float64) float64 {
	return c.MediaOffset + c.LocalTime(t)
}

func (c *Clip) IsNested() bool {
	return c.NestedID != ""
}

// SetWaveform attaches display peaks. Safe to call concurrently with readers.
func (c *Clip) SetWaveform(w *Waveform) {
	c.waveform.Store(w)
}

// Waveform returns the attached peaks, or nil
func (c *Clip) Waveform() *Waveform {
	return c.waveform.Load()
}

// Clone deep-copies the clip under a new id. The waveform is shared since
// it is never mutated after being attached.
func (c *Clip) Clone() *Clip {
	out := &Clip{
		ID:             NewID(),
		Name:           c.Name,
		StartTime:      c.StartTime,
		Duration:       c.Duration,
		TrackID:        c.TrackID,
		Type:           c.Type,
		MediaRef:       c.MediaRef,
		MediaOffset:    c.MediaOffset,
		SourceDuration: c.SourceDuration,
		NestedID:       c.NestedID,
		Metadata:       make(map[string]string, len(c.Metadata)),
	}
	if c.Animation != nil {
		out.Animation = c.Animation.Clone()
	} else {
		out.Animation = keyframes.NewManager()
	}
	for k, v := range c.Metadata {
		out.Metadata[k] = v
	}
	if w := c.Waveform(); w != nil {
		out.SetWaveform(w)
	}
	return out
}

// SortByStart orders clips by start time, keeping insertion order on ties
func SortByStart(list []*Clip) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].StartTime < list[j].StartTime
	})
}
