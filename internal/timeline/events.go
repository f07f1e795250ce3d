package timeline

import (
	"fmt"
	"sync"
)

// EventKind identifies what changed on a timeline.
type EventKind int

const (
	ClipAdded EventKind = iota
	ClipMoved
	ClipSplit
	ClipRemoved
	ClipTrimmed
	ClipSelected
	ClipAnimated
	WaveformAttached
	TrackAdded
	TrackRemoved
	TrackChanged
	PlayheadMoved
	ZoomChanged
	ScrollChanged
	ToolChanged
	SnapChanged
)

var eventNames = [...]string{
	ClipAdded:        "clip_added",
	ClipMoved:        "clip_moved",
	ClipSplit:        "clip_split",
	ClipRemoved:      "clip_removed",
	ClipTrimmed:      "clip_trimmed",
	ClipSelected:     "clip_selected",
	ClipAnimated:     "clip_animated",
	WaveformAttached: "waveform_attached",
	TrackAdded:       "track_added",
	TrackRemoved:     "track_removed",
	TrackChanged:     "track_changed",
	PlayheadMoved:    "playhead_moved",
	ZoomChanged:      "zoom_changed",
	ScrollChanged:    "scroll_changed",
	ToolChanged:      "tool_changed",
	SnapChanged:      "snap_changed",
}

func (k EventKind) String() string {
	if k >= 0 && int(k) < len(eventNames) {
		return eventNames[k]
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is published after every successful mutation.
type Event struct {
	Kind       EventKind
	TimelineID string
	ClipID     string
	TrackID    int
	Time       float64
}

const subscriberBuffer = 64

// broadcaster fans events out to subscriber channels. A subscriber whose
// buffer is full misses the event; the command goroutine never blocks.
type broadcaster struct {
	mu        sync.Mutex
	listeners []chan Event
}

// Subscribe returns a channel receiving every future event.
func (tl *Timeline) Subscribe() <-chan Event {
	tl.events.mu.Lock()
	defer tl.events.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	tl.events.listeners = append(tl.events.listeners, ch)
	return ch
}

// Unsubscribe stops delivery to ch and closes it.
func (tl *Timeline) Unsubscribe(ch <-chan Event) {
	tl.events.mu.Lock()
	defer tl.events.mu.Unlock()

	for i, listener := range tl.events.listeners {
		if listener == ch {
			close(listener)
			tl.events.listeners = append(tl.events.listeners[:i], tl.events.listeners[i+1:]...)
			return
		}
	}
}

func (tl *Timeline) emit(e Event) {
	e.TimelineID = tl.ID

	tl.events.mu.Lock()
	defer tl.events.mu.Unlock()

	for _, listener := range tl.events.listeners {
		select {
		case listener <- e:
		default:
		}
	}
}
