package keyframes

import "sort"

// Manager holds the animated properties of one clip. Times are local to
// the clip.
type Manager struct {
	properties map[string]*Property
}

func NewManager() *Manager {
	return &Manager{properties: make(map[string]*Property)}
}

// Property returns the named property, creating it on first use.
func (m *Manager) Property(name string) *Property {
	p, ok := m.properties[name]
	if !ok {
		p = NewProperty(name)
		m.properties[name] = p
	}
	return p
}

// Lookup returns the named property without creating it.
func (m *Manager) Lookup(name string) (*Property, bool) {
	p, ok := m.properties[name]
	return p, ok
}

// AddKeyframe writes a keyframe on the named property.
func (m *Manager) AddKeyframe(property string, time float64, value any, component string) error {
	return m.Property(property).Add(time, value, component)
}

// RemoveKeyframe removes a keyframe; unknown properties are ignored.
func (m *Manager) RemoveKeyframe(property string, time float64, component string) {
	if p, ok := m.properties[property]; ok {
		p.Remove(time, component)
	}
}

// EvaluateAll evaluates every animated property at time.
func (m *Manager) EvaluateAll(time float64) map[string][]float64 {
	out := make(map[string][]float64, len(m.properties))
	for name, p := range m.properties {
		if p.HasKeyframes() {
			out[name] = p.Evaluate(time)
		}
	}
	return out
}

func (m *Manager) HasKeyframes() bool {
	for _, p := range m.properties {
		if p.HasKeyframes() {
			return true
		}
	}
	return false
}

// KeyframeTimes returns every keyframe time of every property, sorted and
// de-duplicated.
func (m *Manager) KeyframeTimes() []float64 {
	var times []float64
	for _, p := range m.properties {
		times = append(times, p.Times()...)
	}
	return uniqueSorted(times)
}

// Properties returns the property names in sorted order.
func (m *Manager) Properties() []string {
	names := make([]string, 0, len(m.properties))
	for name := range m.properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Manager) Clone() *Manager {
	out := NewManager()
	for name, p := range m.properties {
		out.properties[name] = p.Clone()
	}
	return out
}

// Slice re-bases every animated property onto [from, to].
func (m *Manager) Slice(from, to float64) *Manager {
	out := NewManager()
	for name, p := range m.properties {
		if p.HasKeyframes() {
			out.properties[name] = p.Slice(from, to)
		}
	}
	return out
}
