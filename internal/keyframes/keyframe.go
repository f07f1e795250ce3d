package keyframes

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Epsilon is the tolerance used when matching keyframe times.
const Epsilon = 1e-6

// ErrUnsupportedInterpolation is returned when a track is evaluated with a
// mode other than Linear.
var ErrUnsupportedInterpolation = errors.New("unsupported interpolation")

// Interpolation selects how values between two keyframes are computed.
type Interpolation int

const (
	Linear Interpolation = iota
	EaseInOut
	Hold
)

func (i Interpolation) String() string {
	switch i {
	case Linear:
		return "linear"
	case EaseInOut:
		return "ease_in_out"
	case Hold:
		return "hold"
	default:
		return fmt.Sprintf("interpolation(%d)", int(i))
	}
}

// ParseInterpolation maps a name back to its Interpolation.
func ParseInterpolation(s string) (Interpolation, error) {
	switch s {
	case "", "linear":
		return Linear, nil
	case "ease_in_out":
		return EaseInOut, nil
	case "hold":
		return Hold, nil
	}
	return Linear, fmt.Errorf("%w: %q", ErrUnsupportedInterpolation, s)
}

// Keyframe is a single control point of an animated scalar.
type Keyframe struct {
	Time  float64 `yaml:"time"`
	Value float64 `yaml:"value"`
}

// Track holds the keyframes of one scalar, sorted by time with unique times.
type Track struct {
	keyframes []Keyframe
}

// NewTrack creates an empty keyframe track
func NewTrack() *Track {
	return &Track{}
}

// search returns the index of the first keyframe whose time is not before
// time-Epsilon.
func (t *Track) search(time float64) int {
	return sort.Search(len(t.keyframes), func(i int) bool {
		return t.keyframes[i].Time >= time-Epsilon
	})
}

// Add inserts a keyframe, overwriting the value of an existing keyframe at
// the same time.
func (t *Track) Add(time, value float64) {
	i := t.search(time)
	if i < len(t.keyframes) && math.Abs(t.keyframes[i].Time-time) <= Epsilon {
		t.keyframes[i].Value = value
		return
	}

	t.keyframes = append(t.keyframes, Keyframe{})
	copy(t.keyframes[i+1:], t.keyframes[i:])
	t.keyframes[i] = Keyframe{Time: time, Value: value}
}

// Remove deletes the keyframe at time and reports whether one was found.
func (t *Track) Remove(time float64) bool {
	i := t.search(time)
	if i >= len(t.keyframes) || math.Abs(t.keyframes[i].Time-time) > Epsilon {
		return false
	}
	t.keyframes = append(t.keyframes[:i], t.keyframes[i+1:]...)
	return true
}

// Evaluate returns the linearly interpolated value at time.
func (t *Track) Evaluate(time float64) float64 {
	v, _ := t.EvaluateWith(time, Linear)
	return v
}

// EvaluateWith evaluates the track using the given interpolation mode.
// Values are clamped to the first and last keyframe outside their range.
func (t *Track) EvaluateWith(time float64, mode Interpolation) (float64, error) {
	if mode != Linear {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedInterpolation, mode)
	}

	n := len(t.keyframes)
	if n == 0 {
		return 0, nil
	}
	if time <= t.keyframes[0].Time {
		return t.keyframes[0].Value, nil
	}
	if time >= t.keyframes[n-1].Time {
		return t.keyframes[n-1].Value, nil
	}

	// first keyframe strictly after time; 1 <= i <= n-1 here
	i := sort.Search(n, func(i int) bool { return t.keyframes[i].Time > time })
	k1, k2 := t.keyframes[i-1], t.keyframes[i]
	factor := (time - k1.Time) / (k2.Time - k1.Time)
	return k1.Value + (k2.Value-k1.Value)*factor, nil
}

// InRange returns keyframes with start <= time <= end in time order.
func (t *Track) InRange(start, end float64) []Keyframe {
	var out []Keyframe
	for _, kf := range t.keyframes {
		if kf.Time >= start && kf.Time <= end {
			out = append(out, kf)
		}
	}
	return out
}

// Keyframes returns a copy of all keyframes.
func (t *Track) Keyframes() []Keyframe {
	out := make([]Keyframe, len(t.keyframes))
	copy(out, t.keyframes)
	return out
}

func (t *Track) Len() int { return len(t.keyframes) }

// Clear removes every keyframe.
func (t *Track) Clear() {
	t.keyframes = nil
}

// Clone returns an independent copy of the track.
func (t *Track) Clone() *Track {
	return &Track{keyframes: t.Keyframes()}
}

// Slice returns the part of the track between from and to, re-based so that
// from becomes time zero. Boundary keyframes are inserted so the sliced
// track evaluates identically over the interval.
func (t *Track) Slice(from, to float64) *Track {
	out := NewTrack()
	if len(t.keyframes) == 0 || to < from {
		return out
	}

	out.Add(0, t.Evaluate(from))
	for _, kf := range t.InRange(from, to) {
		out.Add(kf.Time-from, kf.Value)
	}
	out.Add(to-from, t.Evaluate(to))
	return out
}
