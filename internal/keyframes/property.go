package keyframes

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrUnknownComponent = errors.New("unknown property component")
	ErrInvalidValue     = errors.New("invalid keyframe value")
)

// Well-known property names.
const (
	Position = "position"
	Scale    = "scale"
	Rotation = "rotation"
	Opacity  = "opacity"
	Anchor   = "anchor"
)

var componentNames = []string{"x", "y", "z"}

// ComponentsFor returns the component names a property is built with.
func ComponentsFor(name string) []string {
	switch name {
	case Position, Scale, Anchor:
		return []string{"x", "y"}
	default:
		return []string{"x"}
	}
}

// Property is a named animated value made of one to three component tracks.
type Property struct {
	name       string
	components []string
	tracks     map[string]*Track
}

func NewProperty(name string) *Property {
	comps := ComponentsFor(name)
	p := &Property{
		name:       name,
		components: comps,
		tracks:     make(map[string]*Track, len(comps)),
	}
	for _, c := range comps {
		p.tracks[c] = NewTrack()
	}
	return p
}

func (p *Property) Name() string { return p.name }

// Components returns the component names in construction order.
func (p *Property) Components() []string {
	out := make([]string, len(p.components))
	copy(out, p.components)
	return out
}

// Track returns the keyframe track of one component, or nil.
func (p *Property) Track(component string) *Track {
	return p.tracks[component]
}

// Add writes a keyframe. A scalar value goes to component, or "x" when
// component is empty. A slice of two or three values fans out over x, y, z
// in order; components the property doesn't have are skipped.
func (p *Property) Add(time float64, value any, component string) error {
	switch v := value.(type) {
	case float64:
		return p.addScalar(time, v, component)
	case float32:
		return p.addScalar(time, float64(v), component)
	case int:
		return p.addScalar(time, float64(v), component)
	case []float64:
		return p.Set(time, v...)
	case [2]float64:
		return p.Set(time, v[:]...)
	case [3]float64:
		return p.Set(time, v[:]...)
	default:
		return fmt.Errorf("%w: %T", ErrInvalidValue, value)
	}
}

// Set writes one value per component starting at x.
func (p *Property) Set(time float64, values ...float64) error {
	if len(values) == 1 {
		return p.addScalar(time, values[0], "")
	}
	if len(values) < 2 || len(values) > 3 {
		return fmt.Errorf("%w: expected 2 or 3 values, got %d", ErrInvalidValue, len(values))
	}
	for i, v := range values {
		if err := checkFinite(v); err != nil {
			return err
		}
		if track, ok := p.tracks[componentNames[i]]; ok {
			track.Add(time, v)
		}
	}
	return nil
}

func (p *Property) addScalar(time, value float64, component string) error {
	if component == "" {
		component = "x"
	}
	track, ok := p.tracks[component]
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownComponent, p.name, component)
	}
	if err := checkFinite(value); err != nil {
		return err
	}
	track.Add(time, value)
	return nil
}

func checkFinite(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidValue, v)
	}
	return nil
}

// Remove deletes the keyframe at time from one component, or from every
// component when component is empty.
func (p *Property) Remove(time float64, component string) {
	if component != "" {
		if track, ok := p.tracks[component]; ok {
			track.Remove(time)
		}
		return
	}
	for _, track := range p.tracks {
		track.Remove(time)
	}
}

// Evaluate returns one value per component, in construction order.
func (p *Property) Evaluate(time float64) []float64 {
	out := make([]float64, len(p.components))
	for i, c := range p.components {
		out[i] = p.tracks[c].Evaluate(time)
	}
	return out
}

// Scalar evaluates the first component.
func (p *Property) Scalar(time float64) float64 {
	return p.tracks[p.components[0]].Evaluate(time)
}

// HasKeyframes reports whether any component is animated.
func (p *Property) HasKeyframes() bool {
	for _, track := range p.tracks {
		if track.Len() > 0 {
			return true
		}
	}
	return false
}

// Times returns the sorted union of keyframe times across components.
func (p *Property) Times() []float64 {
	var times []float64
	for _, c := range p.components {
		for _, kf := range p.tracks[c].keyframes {
			times = append(times, kf.Time)
		}
	}
	return uniqueSorted(times)
}

func (p *Property) Clone() *Property {
	out := &Property{
		name:       p.name,
		components: p.Components(),
		tracks:     make(map[string]*Track, len(p.tracks)),
	}
	for c, track := range p.tracks {
		out.tracks[c] = track.Clone()
	}
	return out
}

// Slice re-bases every component track onto [from, to].
func (p *Property) Slice(from, to float64) *Property {
	out := &Property{
		name:       p.name,
		components: p.Components(),
		tracks:     make(map[string]*Track, len(p.tracks)),
	}
	for c, track := range p.tracks {
		out.tracks[c] = track.Slice(from, to)
	}
	return out
}

func uniqueSorted(times []float64) []float64 {
	sort.Float64s(times)
	out := times[:0]
	for _, t := range times {
		if len(out) > 0 && math.Abs(out[len(out)-1]-t) <= Epsilon {
			continue
		}
		out = append(out, t)
	}
	return out
}
