package timeline

import (
	"fmt"
	"math"
	"strings"
)

// Tool is the current interpretation of a pointer gesture.
type Tool int

const (
	ToolSelect Tool = iota
	ToolRazor
	ToolHand
	ToolSlip
	ToolSlide
	ToolRipple
	ToolRolling
	ToolZoom
)

var toolNames = [...]string{
	ToolSelect:  "select",
	ToolRazor:   "razor",
	ToolHand:    "hand",
	ToolSlip:    "slip",
	ToolSlide:   "slide",
	ToolRipple:  "ripple",
	ToolRolling: "rolling",
	ToolZoom:    "zoom",
}

func (t Tool) String() string {
	if t.valid() {
		return toolNames[t]
	}
	return fmt.Sprintf("tool(%d)", int(t))
}

func (t Tool) valid() bool {
	return t >= 0 && int(t) < len(toolNames)
}

// ParseTool maps a tool name to its Tool.
func ParseTool(s string) (Tool, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range toolNames {
		if name == s {
			return Tool(i), nil
		}
	}
	return ToolSelect, fmt.Errorf("%w: %q", ErrUnknownTool, s)
}

func (tl *Timeline) Tool() Tool { return tl.tool }

func (tl *Timeline) SetTool(tool Tool) error {
	if !tool.valid() {
		return fmt.Errorf("%w: %d", ErrUnknownTool, int(tool))
	}
	tl.tool = tool
	tl.emit(Event{Kind: ToolChanged})
	return nil
}

// Gesture is an in-progress pointer interaction. Nothing is committed until
// Release; a failed Release or a Cancel leaves the timeline as it was
// before the gesture.
type Gesture interface {
	Update(trackID int, t float64)
	Release() error
	Cancel()
}

// PointerDown starts the gesture the current tool assigns to a press at
// time t on a track. A nil Gesture with a nil error means the press was
// handled immediately or hit nothing.
func (tl *Timeline) PointerDown(trackID int, t float64) (Gesture, error) {
	track, err := tl.trackOrErr(trackID)
	if err != nil {
		return nil, err
	}

	switch tl.tool {
	case ToolHand:
		return &panGesture{tl: tl, grab: t, origin: tl.scrollOffset}, nil
	case ToolZoom:
		return nil, tl.ZoomAround(t, 2)
	}

	c := track.ClipAt(t)
	if c == nil {
		if tl.tool == ToolSelect {
			tl.ClearSelection()
		}
		return nil, nil
	}
	id := c.ID

	switch tl.tool {
	case ToolSelect:
		if err := tl.Select(id, false); err != nil {
			return nil, err
		}
		return &moveGesture{tl: tl, clipID: id, grab: t - c.StartTime, start: c.StartTime, trackID: track.ID}, nil

	case ToolRazor:
		_, _, err := tl.SplitClip(id, t)
		return nil, err

	case ToolRipple:
		return &editGesture{grab: t, apply: func(d float64) error { return tl.RippleTrim(id, d) }}, nil

	case ToolSlip:
		// dragging right reveals earlier source material
		return &editGesture{grab: t, apply: func(d float64) error { return tl.SlipClip(id, -d) }}, nil

	case ToolSlide:
		return &editGesture{grab: t, apply: func(d float64) error { return tl.SlideClip(id, d) }}, nil

	case ToolRolling:
		prev, next := track.neighbours(c)
		if t >= c.StartTime+c.Duration/2 && next != nil && adjacent(c, next) {
			nextID := next.ID
			return &editGesture{grab: t, apply: func(d float64) error { return tl.RollEdit(id, nextID, d) }}, nil
		}
		if prev != nil && adjacent(prev, c) {
			prevID := prev.ID
			return &editGesture{grab: t, apply: func(d float64) error { return tl.RollEdit(prevID, id, d) }}, nil
		}
		return nil, fmt.Errorf("rolling edit on %s: no touching neighbour: %w", id, ErrInvalidEdit)
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownTool, tl.tool)
}

// ZoomAround scales the zoom by factor keeping time t at the same pixel.
func (tl *Timeline) ZoomAround(t, factor float64) error {
	x := tl.TimeToPixel(t)
	if err := tl.SetZoom(tl.pixelsPerUnit * factor); err != nil {
		return err
	}
	tl.SetScroll(t*tl.pixelsPerUnit - x)
	return nil
}

// moveGesture drags a clip with snapping, committing on release.
type moveGesture struct {
	tl      *Timeline
	clipID  string
	grab    float64
	start   float64
	trackID int
}

func (g *moveGesture) Update(trackID int, t float64) {
	g.start = g.tl.SnapTime(math.Max(0, t-g.grab), g.clipID)
	if g.tl.Track(trackID) != nil {
		g.trackID = trackID
	}
}

// Preview returns where the clip would land on release.
func (g *moveGesture) Preview() (start float64, trackID int) {
	return g.start, g.trackID
}

func (g *moveGesture) Release() error {
	return g.tl.MoveClip(g.clipID, g.start, g.trackID)
}

func (g *moveGesture) Cancel() {}

// panGesture scrolls the view.
type panGesture struct {
	tl     *Timeline
	grab   float64
	origin float64
}

func (g *panGesture) Update(_ int, t float64) {
	g.tl.SetScroll(g.origin - (t-g.grab)*g.tl.pixelsPerUnit)
}

func (g *panGesture) Release() error { return nil }

func (g *panGesture) Cancel() { g.tl.SetScroll(g.origin) }

// editGesture applies a trim-style edit with the dragged delta on release.
type editGesture struct {
	grab  float64
	delta float64
	apply func(delta float64) error
}

func (g *editGesture) Update(_ int, t float64) { g.delta = t - g.grab }

func (g *editGesture) Delta() float64 { return g.delta }

func (g *editGesture) Release() error {
	if g.delta == 0 {
		return nil
	}
	return g.apply(g.delta)
}

func (g *editGesture) Cancel() { g.delta = 0 }
