package project

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/keagan/reelcut/internal/timeline"
	"github.com/rs/zerolog"
)

// buildProject exercises every field the document stores.
func buildProject(t *testing.T) (*timeline.Registry, string) {
	t.Helper()
	main := timeline.NewDefault("main", timeline.DefaultOptions())
	reg := timeline.NewRegistry(main)

	id, err := main.AddClip(0, "media/a.mp4", 1, 4)
	if err != nil {
		t.Fatalf("add clip failed: %v", err)
	}
	c := main.Clip(id)
	c.MediaOffset = 0.5
	c.SourceDuration = 10
	c.Metadata["camera"] = "B"

	mustNoErr(t, main.AddClipKeyframe(id, "position", 1, []float64{0, 0}, ""))
	mustNoErr(t, main.AddClipKeyframe(id, "position", 3, [2]float64{10, 20}, ""))
	mustNoErr(t, main.AddClipKeyframe(id, "opacity", 2, 0.5, ""))

	if _, err := main.AddClip(10, "media/voice.wav", 0, 8); err != nil {
		t.Fatalf("add audio clip failed: %v", err)
	}
	if _, err := main.AddAutomationPoint(10, timeline.ParamVolume, 0, 0.3); err != nil {
		t.Fatalf("automation failed: %v", err)
	}
	if _, err := main.AddAutomationPoint(10, timeline.ParamVolume, 8, 0.9); err != nil {
		t.Fatalf("automation failed: %v", err)
	}

	child := reg.CreateNested("intro", timeline.KindNested)
	if _, err := child.AddClip(0, "media/b.mp4", 0, 2); err != nil {
		t.Fatalf("add child clip failed: %v", err)
	}
	if _, err := reg.AddNestedClip(main.ID, 1, child.ID, 6); err != nil {
		t.Fatalf("nest failed: %v", err)
	}

	mustNoErr(t, main.SetTrackLocked(2, true))
	mustNoErr(t, main.SetTrackSolo(11, true))
	mustNoErr(t, main.SetZoom(120))
	main.SetScroll(30)
	main.SetPlayhead(2.5)
	main.SetSnap(false)
	mustNoErr(t, main.SetTool(timeline.ToolRazor))
	mustNoErr(t, main.Select(id, false))

	return reg, id
}

func mustNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	reg, id := buildProject(t)
	store := NewStore(zerolog.Nop(), timeline.DefaultOptions())
	path := filepath.Join(t.TempDir(), "projects", "demo.yaml")

	if err := store.Save(path, reg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := store.Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	main := loaded.Main()
	if main.ID != reg.Main().ID {
		t.Errorf("main id changed: %s != %s", main.ID, reg.Main().ID)
	}

	c := main.Clip(id)
	if c == nil {
		t.Fatal("clip missing after load")
	}
	if c.StartTime != 1 || c.Duration != 4 || c.MediaOffset != 0.5 || c.SourceDuration != 10 {
		t.Errorf("clip timing lost: %+v", c)
	}
	if c.Metadata["camera"] != "B" || !c.Selected {
		t.Errorf("clip metadata or selection lost")
	}

	want, _ := reg.Main().EvaluateClip(id, 2)
	got, err := main.EvaluateClip(id, 2)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Errorf("animation changed: want %v, got %v", want, got)
	}

	vol := main.Track(10).Automation(timeline.ParamVolume)
	if v := vol.Effective(4, 1); v < 0.59 || v > 0.61 {
		t.Errorf("expected volume 0.6 at 4s, got %v", v)
	}
	if !main.Track(2).Locked || !main.Track(11).Solo {
		t.Error("track flags lost")
	}

	if main.Zoom() != 120 || main.Scroll() != 30 || main.Playhead() != 2.5 || main.SnapEnabled() {
		t.Errorf("view state lost: zoom %v scroll %v playhead %v snap %v",
			main.Zoom(), main.Scroll(), main.Playhead(), main.SnapEnabled())
	}
	if main.Tool() != timeline.ToolRazor {
		t.Errorf("expected razor tool, got %s", main.Tool())
	}

	h := loaded.Hierarchy()
	if len(h.Children) != 1 || h.Children[0].Name != "intro" {
		t.Errorf("nested timeline lost: %+v", h)
	}
}

func TestRoundTripIsLossless(t *testing.T) {
	reg, _ := buildProject(t)

	var first bytes.Buffer
	if err := Encode(&first, reg); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	doc, err := Decode(bytes.NewReader(first.Bytes()))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	loaded, err := doc.ToRegistry(timeline.DefaultOptions())
	if err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}

	var second bytes.Buffer
	if err := Encode(&second, loaded); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if first.String() != second.String() {
		t.Errorf("documents differ after a round trip:\n%s\n---\n%s", first.String(), second.String())
	}
}

func TestLoadRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"empty", "", ErrInvalidDocument},
		{"future version", "version: 99\nmain: a\n", ErrUnsupportedVersion},
		{"missing main", "version: 1\nmain: a\ntimelines: []\n", ErrInvalidDocument},
		{"bad track type", `
version: 1
main: a
timelines:
  - id: a
    name: main
    kind: main
    tracks:
      - {id: 0, name: V, type: hologram}
`, ErrInvalidDocument},
		{"dangling nested clip", `
version: 1
main: a
timelines:
  - id: a
    name: main
    kind: main
    tracks:
      - id: 0
        name: V
        type: video
        clips:
          - {id: c1, name: n, start: 0, duration: 2, type: both, nested: ghost}
`, timeline.ErrTimelineNotFound},
		{"cycle", `
version: 1
main: a
timelines:
  - id: a
    name: main
    kind: main
    tracks:
      - id: 0
        name: V
        type: video
        clips:
          - {id: c1, name: n, start: 0, duration: 2, type: both, nested: b}
  - id: b
    name: child
    kind: nested
    tracks:
      - id: 0
        name: V
        type: video
        clips:
          - {id: c2, name: n, start: 0, duration: 2, type: both, nested: a}
`, timeline.ErrCycle},
	}

	store := NewStore(zerolog.Nop(), timeline.DefaultOptions())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "p.yaml")
			if err := os.WriteFile(path, []byte(strings.TrimLeft(tt.body, "\n")), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := store.Load(path)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	store := NewStore(zerolog.Nop(), timeline.DefaultOptions())
	if _, err := store.Load(filepath.Join(t.TempDir(), "nope.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}
