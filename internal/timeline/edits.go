package timeline

import (
	"fmt"
	"math"

	"github.com/keagan/reelcut/internal/clips"
)

// timeEpsilon decides whether two clip edges touch.
const timeEpsilon = 1e-6

func (tl *Timeline) editable(id string) (*Track, *clips.Clip, error) {
	t, c := tl.locate(id)
	if c == nil {
		return nil, nil, fmt.Errorf("edit %s: %w", id, ErrClipNotFound)
	}
	if t.Locked {
		return nil, nil, fmt.Errorf("edit %s on track %d: %w", id, t.ID, ErrTrackLocked)
	}
	return t, c, nil
}

// fitsSource reports whether [offset, offset+duration] lies inside the
// clip's source media. Unknown source lengths only bound the offset.
func fitsSource(c *clips.Clip, offset, duration float64) bool {
	if offset < -timeEpsilon || duration <= 0 {
		return false
	}
	if c.SourceDuration > 0 && offset+duration > c.SourceDuration+timeEpsilon {
		return false
	}
	return true
}

// rebase shifts a clip's local animation so that local time from becomes
// zero, keeping duration seconds of it.
func rebase(c *clips.Clip, from, duration float64) {
	if c.Animation != nil && c.Animation.HasKeyframes() {
		c.Animation = c.Animation.Slice(from, from+duration)
	}
}

func adjacent(left, right *clips.Clip) bool {
	return math.Abs(left.EndTime()-right.StartTime) <= timeEpsilon
}

// TrimClip sets the part of the source a clip plays to [in, out] without
// moving its start or any other clip. Keyframes stay on the source frames
// they were set on. The waveform is dropped and must be regenerated.
func (tl *Timeline) TrimClip(id string, in, out float64) error {
	t, c, err := tl.editable(id)
	if err != nil {
		return err
	}
	if math.IsNaN(in) || math.IsNaN(out) || math.IsInf(out, 0) || !fitsSource(c, in, out-in) {
		return fmt.Errorf("trim %s to [%.3f, %.3f]: %w", id, in, out, ErrInvalidEdit)
	}

	in = math.Max(0, in)
	rebase(c, in-c.MediaOffset, out-in)
	c.MediaOffset = in
	c.Duration = out - in
	c.SetWaveform(nil)
	tl.emit(Event{Kind: ClipTrimmed, ClipID: id, TrackID: t.ID, Time: c.EndTime()})
	return nil
}

// RippleTrim changes a clip's length by delta and shifts every clip that
// started at or after its old end by the same amount.
func (tl *Timeline) RippleTrim(id string, delta float64) error {
	t, c, err := tl.editable(id)
	if err != nil {
		return err
	}
	duration := c.Duration + delta
	if !fitsSource(c, c.MediaOffset, duration) {
		return fmt.Errorf("ripple %s by %.3f: %w", id, delta, ErrInvalidEdit)
	}

	oldEnd := c.EndTime()
	c.Duration = duration
	for _, other := range t.clips {
		if other != c && other.StartTime >= oldEnd-timeEpsilon {
			other.StartTime += delta
		}
	}
	clips.SortByStart(t.clips)
	tl.emit(Event{Kind: ClipTrimmed, ClipID: id, TrackID: t.ID, Time: c.EndTime()})
	return nil
}

// RippleDelete removes a clip and pulls every later clip on the track back
// by its duration.
func (tl *Timeline) RippleDelete(id string) error {
	t, c, err := tl.editable(id)
	if err != nil {
		return err
	}

	end := c.EndTime()
	t.detach(id)
	for _, other := range t.clips {
		if other.StartTime >= end-timeEpsilon {
			other.StartTime = math.Max(0, other.StartTime-c.Duration)
		}
	}
	clips.SortByStart(t.clips)
	tl.emit(Event{Kind: ClipRemoved, ClipID: id, TrackID: t.ID, Time: c.StartTime})
	return nil
}

// RollEdit moves the cut between two touching clips by delta. The left
// clip's out point and the right clip's in point move together so the
// track's content span is unchanged.
func (tl *Timeline) RollEdit(leftID, rightID string, delta float64) error {
	t, left, err := tl.editable(leftID)
	if err != nil {
		return err
	}
	right := t.Clip(rightID)
	if right == nil {
		return fmt.Errorf("roll %s: %w on track %d", rightID, ErrClipNotFound, t.ID)
	}
	if !adjacent(left, right) {
		return fmt.Errorf("roll %s/%s: clips do not touch: %w", leftID, rightID, ErrInvalidEdit)
	}

	leftDuration := left.Duration + delta
	rightDuration := right.Duration - delta
	rightOffset := right.MediaOffset + delta
	if !fitsSource(left, left.MediaOffset, leftDuration) || !fitsSource(right, rightOffset, rightDuration) {
		return fmt.Errorf("roll %s/%s by %.3f: %w", leftID, rightID, delta, ErrInvalidEdit)
	}

	left.Duration = leftDuration
	rebase(right, delta, rightDuration)
	right.StartTime += delta
	right.Duration = rightDuration
	right.MediaOffset = rightOffset
	clips.SortByStart(t.clips)
	tl.emit(Event{Kind: ClipTrimmed, ClipID: leftID, TrackID: t.ID, Time: right.StartTime})
	tl.emit(Event{Kind: ClipTrimmed, ClipID: rightID, TrackID: t.ID, Time: right.StartTime})
	return nil
}

// SlipClip changes which part of the source a clip plays without moving it
// on the timeline.
func (tl *Timeline) SlipClip(id string, delta float64) error {
	t, c, err := tl.editable(id)
	if err != nil {
		return err
	}
	offset := c.MediaOffset + delta
	if !fitsSource(c, offset, c.Duration) {
		return fmt.Errorf("slip %s by %.3f: %w", id, delta, ErrInvalidEdit)
	}
	c.MediaOffset = math.Max(0, offset)
	tl.emit(Event{Kind: ClipTrimmed, ClipID: id, TrackID: t.ID, Time: c.StartTime})
	return nil
}

// SlideClip moves a clip by delta between its touching neighbours: the
// previous one grows by delta and the next one shrinks by delta.
func (tl *Timeline) SlideClip(id string, delta float64) error {
	t, c, err := tl.editable(id)
	if err != nil {
		return err
	}

	prev, next := t.neighbours(c)
	if prev != nil && !adjacent(prev, c) {
		prev = nil
	}
	if next != nil && !adjacent(c, next) {
		next = nil
	}

	start := c.StartTime + delta
	if start < 0 {
		return fmt.Errorf("slide %s by %.3f: %w", id, delta, ErrInvalidEdit)
	}
	if prev != nil && !fitsSource(prev, prev.MediaOffset, prev.Duration+delta) {
		return fmt.Errorf("slide %s by %.3f: %w", id, delta, ErrInvalidEdit)
	}
	if next != nil && !fitsSource(next, next.MediaOffset+delta, next.Duration-delta) {
		return fmt.Errorf("slide %s by %.3f: %w", id, delta, ErrInvalidEdit)
	}

	c.StartTime = start
	if prev != nil {
		prev.Duration += delta
	}
	if next != nil {
		rebase(next, delta, next.Duration-delta)
		next.StartTime += delta
		next.Duration -= delta
		next.MediaOffset += delta
	}
	clips.SortByStart(t.clips)
	tl.emit(Event{Kind: ClipMoved, ClipID: id, TrackID: t.ID, Time: start})
	return nil
}
