package timeline

import (
	"fmt"
	"math"

	"github.com/keagan/reelcut/internal/keyframes"
)

// Automation parameter names created by default.
const (
	ParamVolume  = "volume"
	ParamPan     = "pan"
	ParamOpacity = "opacity"
)

// Automation is a per-track parameter curve clamped to [Min, Max].
type Automation struct {
	TrackID   int
	Parameter string
	Min       float64
	Max       float64
	Enabled   bool

	points *keyframes.Track
}

func NewAutomation(trackID int, parameter string) *Automation {
	return &Automation{
		TrackID:   trackID,
		Parameter: parameter,
		Min:       0,
		Max:       1,
		points:    keyframes.NewTrack(),
	}
}

// SetRange changes the clamp range and re-clamps existing points.
func (a *Automation) SetRange(min, max float64) error {
	if math.IsNaN(min) || math.IsNaN(max) || min > max {
		return fmt.Errorf("invalid automation range [%v, %v]", min, max)
	}
	a.Min, a.Max = min, max
	for _, kf := range a.points.Keyframes() {
		a.points.Add(kf.Time, a.clamp(kf.Value))
	}
	return nil
}

func (a *Automation) clamp(v float64) float64 {
	return math.Max(a.Min, math.Min(a.Max, v))
}

// Add writes a point, clamped to the range, and returns the stored value.
func (a *Automation) Add(time, value float64) float64 {
	v := a.clamp(value)
	a.points.Add(time, v)
	return v
}

func (a *Automation) Remove(time float64) bool {
	return a.points.Remove(time)
}

// Value interpolates the curve at time. An empty curve sits at the middle
// of its range.
func (a *Automation) Value(time float64) float64 {
	if a.points.Len() == 0 {
		return (a.Min + a.Max) / 2
	}
	return a.points.Evaluate(time)
}

// Effective returns Value when the curve is enabled and has points, else
// fallback.
func (a *Automation) Effective(time, fallback float64) float64 {
	if a == nil || !a.Enabled || a.points.Len() == 0 {
		return fallback
	}
	return a.points.Evaluate(time)
}

func (a *Automation) Keyframes() []keyframes.Keyframe {
	return a.points.Keyframes()
}

func (a *Automation) Len() int { return a.points.Len() }

func (a *Automation) Clear() { a.points.Clear() }
