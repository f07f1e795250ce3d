package timeline

import (
	"fmt"
	"math"
	"strings"

	"github.com/keagan/reelcut/internal/clips"
)

// Gap is an empty span on a track. End is +Inf for the trailing gap.
type Gap struct {
	Start float64
	End   float64
}

// Track is an ordered lane of clips of one type plus its automation curves.
type Track struct {
	ID     int
	Name   string
	Type   clips.Type
	Muted  bool
	Locked bool
	Solo   bool

	clips      []*clips.Clip
	automation []*Automation
}

// NewTrack creates a track with the default automation curves for its type:
// volume and pan for audio, opacity for video.
func NewTrack(id int, name string, typ clips.Type) *Track {
	t := &Track{ID: id, Name: name, Type: typ}
	switch typ {
	case clips.Audio:
		t.automation = append(t.automation, NewAutomation(id, ParamVolume), NewAutomation(id, ParamPan))
	case clips.Video:
		t.automation = append(t.automation, NewAutomation(id, ParamOpacity))
	}
	return t
}

func (t *Track) index(id string) int {
	for i, c := range t.clips {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Clip returns the clip with the given id, or nil.
func (t *Track) Clip(id string) *clips.Clip {
	if i := t.index(id); i >= 0 {
		return t.clips[i]
	}
	return nil
}

// Clips returns the clips sorted by start time.
func (t *Track) Clips() []*clips.Clip {
	out := make([]*clips.Clip, len(t.clips))
	copy(out, t.clips)
	return out
}

func (t *Track) Len() int { return len(t.clips) }

// AddClip inserts a clip, keeping the track sorted by start time.
func (t *Track) AddClip(c *clips.Clip) error {
	if t.Locked {
		return fmt.Errorf("add %s to track %d: %w", c.ID, t.ID, ErrTrackLocked)
	}
	if !t.Accepts(c.Type) {
		return fmt.Errorf("%s clip %s on %s track %d: %w", c.Type, c.ID, t.Type, t.ID, ErrInvalidTrack)
	}
	t.insert(c)
	return nil
}

// Accepts reports whether clips of typ can live on the track. Video tracks
// take clips with frames, audio tracks clips with samples.
func (t *Track) Accepts(typ clips.Type) bool {
	switch t.Type {
	case clips.Video:
		return typ.HasVideo()
	case clips.Audio:
		return typ.HasAudio()
	}
	return true
}

func (t *Track) insert(c *clips.Clip) {
	c.TrackID = t.ID
	t.clips = append(t.clips, c)
	clips.SortByStart(t.clips)
}

// detach removes a clip regardless of lock state and returns it.
func (t *Track) detach(id string) *clips.Clip {
	i := t.index(id)
	if i < 0 {
		return nil
	}
	c := t.clips[i]
	t.clips = append(t.clips[:i], t.clips[i+1:]...)
	return c
}

// MoveClip changes a clip's start time. It returns false without touching
// anything when the track is locked, the clip is unknown or start is
// negative.
func (t *Track) MoveClip(id string, start float64) bool {
	if t.Locked || start < 0 || math.IsNaN(start) {
		return false
	}
	c := t.Clip(id)
	if c == nil {
		return false
	}
	c.StartTime = start
	clips.SortByStart(t.clips)
	return true
}

// SplitClip cuts a clip at a timeline time strictly inside it. The original
// clip becomes the left half; the right half is a new clip with a new id
// whose media offset is advanced by the cut position.
func (t *Track) SplitClip(id string, at float64) (*clips.Clip, *clips.Clip, error) {
	if t.Locked {
		return nil, nil, fmt.Errorf("split on track %d: %w", t.ID, ErrTrackLocked)
	}
	left := t.Clip(id)
	if left == nil {
		return nil, nil, fmt.Errorf("split %s: %w", id, ErrClipNotFound)
	}
	if at <= left.StartTime || at >= left.EndTime() {
		return nil, nil, fmt.Errorf("split %s at %.3f: %w", id, at, ErrInvalidSplit)
	}

	local := at - left.StartTime
	base := strings.TrimSuffix(left.Name, " (1)")

	right := left.Clone()
	right.Name = base + " (2)"
	right.StartTime = at
	right.Duration = left.Duration - local
	right.MediaOffset = left.MediaOffset + local
	right.Selected = false

	if left.Animation != nil && left.Animation.HasKeyframes() {
		right.Animation = left.Animation.Slice(local, left.Duration)
		left.Animation = left.Animation.Slice(0, local)
	}
	if w := left.Waveform(); w != nil {
		lw, rw := w.Split(local / left.Duration)
		left.SetWaveform(lw)
		right.SetWaveform(rw)
	}

	left.Name = base + " (1)"
	left.Duration = local

	t.insert(right)
	return left, right, nil
}

// RemoveClip deletes a clip. Removing an unknown id is a no-op.
func (t *Track) RemoveClip(id string) error {
	if t.Locked {
		return fmt.Errorf("remove %s from track %d: %w", id, t.ID, ErrTrackLocked)
	}
	t.detach(id)
	return nil
}

// ClipAt returns the first clip, in start order, whose span contains time.
func (t *Track) ClipAt(time float64) *clips.Clip {
	for _, c := range t.clips {
		if c.Contains(time) {
			return c
		}
	}
	return nil
}

// ClipsAt returns every clip whose span contains time.
func (t *Track) ClipsAt(time float64) []*clips.Clip {
	var out []*clips.Clip
	for _, c := range t.clips {
		if c.Contains(time) {
			out = append(out, c)
		}
	}
	return out
}

// ClipsInRange returns clips intersecting [start, end].
func (t *Track) ClipsInRange(start, end float64) []*clips.Clip {
	var out []*clips.Clip
	for _, c := range t.clips {
		if c.Overlaps(start, end) {
			out = append(out, c)
		}
	}
	return out
}

// End is the largest clip end time on the track, or 0.
func (t *Track) End() float64 {
	end := 0.0
	for _, c := range t.clips {
		end = math.Max(end, c.EndTime())
	}
	return end
}

// Gaps lists the empty spans on the track, ending with an open gap after
// the last clip.
func (t *Track) Gaps() []Gap {
	if len(t.clips) == 0 {
		return []Gap{{Start: 0, End: math.Inf(1)}}
	}

	var gaps []Gap
	cursor := 0.0
	for _, c := range t.clips {
		if c.StartTime > cursor {
			gaps = append(gaps, Gap{Start: cursor, End: c.StartTime})
		}
		cursor = math.Max(cursor, c.EndTime())
	}
	return append(gaps, Gap{Start: cursor, End: math.Inf(1)})
}

// neighbours returns the clips directly before and after c on the track.
func (t *Track) neighbours(c *clips.Clip) (prev, next *clips.Clip) {
	i := t.index(c.ID)
	if i > 0 {
		prev = t.clips[i-1]
	}
	if i >= 0 && i+1 < len(t.clips) {
		next = t.clips[i+1]
	}
	return prev, next
}

// Automation returns the curve for a parameter, or nil.
func (t *Track) Automation(parameter string) *Automation {
	for _, a := range t.automation {
		if a.Parameter == parameter {
			return a
		}
	}
	return nil
}

// Automations returns every curve on the track.
func (t *Track) Automations() []*Automation {
	out := make([]*Automation, len(t.automation))
	copy(out, t.automation)
	return out
}

// EnsureAutomation returns the curve for a parameter, creating it if needed.
func (t *Track) EnsureAutomation(parameter string) *Automation {
	if a := t.Automation(parameter); a != nil {
		return a
	}
	a := NewAutomation(t.ID, parameter)
	t.automation = append(t.automation, a)
	return a
}
