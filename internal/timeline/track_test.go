package timeline

import (
	"errors"
	"math"
	"testing"

	"github.com/keagan/reelcut/internal/clips"
	"github.com/keagan/reelcut/internal/keyframes"
)

func newVideoTrack() *Track {
	return NewTrack(0, "Video 1", clips.Video)
}

func TestTrackKeepsClipsSorted(t *testing.T) {
	track := newVideoTrack()
	for _, start := range []float64{8, 2, 5} {
		if err := track.AddClip(clips.New("c", "a.mp4", start, 1, 0, clips.Video)); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}

	got := track.Clips()
	for i := 1; i < len(got); i++ {
		if got[i-1].StartTime > got[i].StartTime {
			t.Fatalf("clips not sorted: %v then %v", got[i-1].StartTime, got[i].StartTime)
		}
	}

	if !track.MoveClip(got[0].ID, 20) {
		t.Fatal("move failed")
	}
	if track.Clips()[2].ID != got[0].ID {
		t.Error("moved clip should be last after re-sort")
	}
}

func TestLockedTrackRejectsMutation(t *testing.T) {
	track := newVideoTrack()
	c := clips.New("c", "a.mp4", 0, 4, 0, clips.Video)
	if err := track.AddClip(c); err != nil {
		t.Fatal(err)
	}
	track.Locked = true

	if err := track.AddClip(clips.New("d", "b.mp4", 5, 1, 0, clips.Video)); !errors.Is(err, ErrTrackLocked) {
		t.Errorf("add: expected ErrTrackLocked, got %v", err)
	}
	if track.MoveClip(c.ID, 2) {
		t.Error("move on locked track should fail")
	}
	if _, _, err := track.SplitClip(c.ID, 2); !errors.Is(err, ErrTrackLocked) {
		t.Errorf("split: expected ErrTrackLocked, got %v", err)
	}
	if err := track.RemoveClip(c.ID); !errors.Is(err, ErrTrackLocked) {
		t.Errorf("remove: expected ErrTrackLocked, got %v", err)
	}
	if track.Len() != 1 || c.StartTime != 0 || c.Duration != 4 {
		t.Error("locked track was mutated")
	}
}

func TestSplitClipPreservesSpan(t *testing.T) {
	cases := []struct{ start, duration, at float64 }{
		{0, 10, 4},
		{1.1, 0.3, 1.2},
		{3.7, 12.9, 15.1},
	}
	for _, tc := range cases {
		track := newVideoTrack()
		c := clips.New("shot", "a.mp4", tc.start, tc.duration, 0, clips.Video)
		c.MediaOffset = 0.5
		_ = track.AddClip(c)

		left, right, err := track.SplitClip(c.ID, tc.at)
		if err != nil {
			t.Fatalf("split failed: %v", err)
		}
		if left != c {
			t.Error("left half must be the original clip")
		}
		if right.ID == c.ID {
			t.Error("right half needs a new id")
		}
		if math.Abs(left.Duration+right.Duration-tc.duration) > 1e-9 {
			t.Errorf("durations %v + %v != %v", left.Duration, right.Duration, tc.duration)
		}
		if left.StartTime != tc.start || right.StartTime != tc.at {
			t.Errorf("unexpected starts %v, %v", left.StartTime, right.StartTime)
		}
		if math.Abs(right.EndTime()-(tc.start+tc.duration)) > 1e-9 {
			t.Errorf("right end %v, expected %v", right.EndTime(), tc.start+tc.duration)
		}
		if math.Abs(right.MediaOffset-(0.5+tc.at-tc.start)) > 1e-9 {
			t.Errorf("right media offset %v", right.MediaOffset)
		}
		if left.Name != "shot (1)" || right.Name != "shot (2)" {
			t.Errorf("unexpected names %q, %q", left.Name, right.Name)
		}
	}
}

func TestSplitClipOutsideInterval(t *testing.T) {
	track := newVideoTrack()
	c := clips.New("c", "a.mp4", 2, 4, 0, clips.Video)
	_ = track.AddClip(c)

	for _, at := range []float64{2, 6, 1, 9} {
		if _, _, err := track.SplitClip(c.ID, at); !errors.Is(err, ErrInvalidSplit) {
			t.Errorf("split at %v: expected ErrInvalidSplit, got %v", at, err)
		}
	}
	if _, _, err := track.SplitClip("missing", 3); !errors.Is(err, ErrClipNotFound) {
		t.Errorf("expected ErrClipNotFound, got %v", err)
	}
	if track.Len() != 1 || c.Duration != 4 {
		t.Error("failed split mutated the track")
	}
}

func TestSplitRebasesAnimation(t *testing.T) {
	track := newVideoTrack()
	c := clips.New("c", "a.mp4", 10, 10, 0, clips.Video)
	_ = c.Animation.AddKeyframe(keyframes.Opacity, 0, 0.0, "")
	_ = c.Animation.AddKeyframe(keyframes.Opacity, 10, 1.0, "")
	_ = track.AddClip(c)

	left, right, err := track.SplitClip(c.ID, 14)
	if err != nil {
		t.Fatal(err)
	}
	op, _ := right.Animation.Lookup(keyframes.Opacity)
	if got := op.Scalar(0); math.Abs(got-0.4) > 1e-9 {
		t.Errorf("right half should start at 0.4 opacity, got %v", got)
	}
	op, _ = left.Animation.Lookup(keyframes.Opacity)
	if got := op.Scalar(4); math.Abs(got-0.4) > 1e-9 {
		t.Errorf("left half should end at 0.4 opacity, got %v", got)
	}
}

func TestRemoveClipIdempotent(t *testing.T) {
	track := newVideoTrack()
	c := clips.New("c", "a.mp4", 0, 1, 0, clips.Video)
	_ = track.AddClip(c)

	if err := track.RemoveClip(c.ID); err != nil {
		t.Fatal(err)
	}
	if err := track.RemoveClip(c.ID); err != nil {
		t.Errorf("second remove should be a no-op, got %v", err)
	}
	if track.Len() != 0 {
		t.Error("clip still present")
	}
}

func TestClipAtInclusiveBoundary(t *testing.T) {
	track := newVideoTrack()
	a := clips.New("a", "a.mp4", 0, 4, 0, clips.Video)
	b := clips.New("b", "b.mp4", 4, 2, 0, clips.Video)
	_ = track.AddClip(b)
	_ = track.AddClip(a)

	if got := track.ClipAt(4); got != a {
		t.Error("shared boundary should resolve to the earlier clip")
	}
	if got := track.ClipsAt(4); len(got) != 2 {
		t.Errorf("both clips contain the boundary, got %d", len(got))
	}
	if got := track.ClipAt(6); got != b {
		t.Error("end time is inclusive")
	}
	if track.ClipAt(6.5) != nil {
		t.Error("expected no clip after the end")
	}
}

func TestTrackGaps(t *testing.T) {
	track := newVideoTrack()
	if gaps := track.Gaps(); len(gaps) != 1 || !math.IsInf(gaps[0].End, 1) {
		t.Fatalf("empty track should be one open gap, got %v", gaps)
	}

	_ = track.AddClip(clips.New("a", "", 2, 2, 0, clips.Video))
	_ = track.AddClip(clips.New("b", "", 4, 1, 0, clips.Video))
	_ = track.AddClip(clips.New("c", "", 7, 1, 0, clips.Video))

	gaps := track.Gaps()
	want := []Gap{{0, 2}, {5, 7}, {8, math.Inf(1)}}
	if len(gaps) != len(want) {
		t.Fatalf("expected %v, got %v", want, gaps)
	}
	for i := range want {
		if gaps[i] != want[i] {
			t.Errorf("gap %d: expected %v, got %v", i, want[i], gaps[i])
		}
	}
}

func TestDefaultAutomation(t *testing.T) {
	audio := NewTrack(10, "Audio 1", clips.Audio)
	if audio.Automation(ParamVolume) == nil || audio.Automation(ParamPan) == nil {
		t.Error("audio track should have volume and pan automation")
	}
	video := newVideoTrack()
	if video.Automation(ParamOpacity) == nil || video.Automation(ParamVolume) != nil {
		t.Error("video track should only have opacity automation")
	}
}
