package timeline

import (
	"testing"
)

func TestSnapTime(t *testing.T) {
	tl := newSingleTrack(t)
	// 5 px at 50 px/unit
	if got := tl.SnapThreshold(); got != 0.1 {
		t.Fatalf("expected threshold 0.1, got %v", got)
	}

	_, _ = tl.AddClip(0, "a.mp4", 7.45, 2)
	tl.SetPlayhead(3.33)

	if got := tl.SnapTime(3.3, ""); got != 3.33 {
		t.Errorf("expected playhead 3.33, got %v", got)
	}
	if got := tl.SnapTime(7.5, ""); got != 7.45 {
		t.Errorf("expected clip start 7.45, got %v", got)
	}
	if got := tl.SnapTime(9.47, ""); got != 9.45 {
		t.Errorf("expected clip end 9.45, got %v", got)
	}
	if got := tl.SnapTime(5.96, ""); got != 6 {
		t.Errorf("expected grid 6, got %v", got)
	}
}

func TestSnapTimePassThrough(t *testing.T) {
	tl := newSingleTrack(t)
	id, _ := tl.AddClip(0, "a.mp4", 7.45, 2)

	// the dragged clip's own edges don't count
	if got := tl.SnapTime(7.5, id); got != 7.5 {
		t.Errorf("expected raw 7.5, got %v", got)
	}
	if got := tl.SnapTime(4.5, ""); got != 4.5 {
		t.Errorf("nothing within threshold, expected 4.5, got %v", got)
	}

	tl.SetSnap(false)
	if got := tl.SnapTime(7.5, ""); got != 7.5 {
		t.Errorf("snapping disabled, expected 7.5, got %v", got)
	}
}

func TestSnapThresholdFollowsZoom(t *testing.T) {
	tl := newSingleTrack(t)
	id, _ := tl.AddClip(0, "a.mp4", 7.45, 2)

	_ = tl.SetZoom(10)
	if got := tl.SnapTime(7.6, id); got != 8 {
		t.Errorf("at low zoom expected grid 8, got %v", got)
	}
}

func TestSnapAcrossTracks(t *testing.T) {
	tl := NewDefault("test", DefaultOptions())
	_, _ = tl.AddClip(11, "music.wav", 12.34, 3)
	if got := tl.SnapTime(12.3, ""); got != 12.34 {
		t.Errorf("expected edge on another track 12.34, got %v", got)
	}
}
