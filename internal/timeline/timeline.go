package timeline

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/keagan/reelcut/internal/clips"
)

// SameTrack tells MoveClip to keep the clip on its current track.
const SameTrack = -1

// Kind distinguishes the main timeline from nested ones.
type Kind string

const (
	KindMain     Kind = "main"
	KindNested   Kind = "nested"
	KindCompound Kind = "compound"
)

// Options holds the tunables of a timeline.
type Options struct {
	PixelsPerUnit float64
	MinZoom       float64
	MaxZoom       float64
	// SnapPixels is the snapping distance on screen; the time threshold is
	// SnapPixels / PixelsPerUnit.
	SnapPixels   float64
	GridInterval float64
	// MinDuration is the floor reported by TotalDuration.
	MinDuration float64
}

func DefaultOptions() Options {
	return Options{
		PixelsPerUnit: 50,
		MinZoom:       1,
		MaxZoom:       1000,
		SnapPixels:    5,
		GridInterval:  1,
		MinDuration:   60,
	}
}

// Timeline owns tracks, clips and view state. All methods except Subscribe,
// Unsubscribe and the clip waveform readers must be called from one
// goroutine.
type Timeline struct {
	ID   string
	Name string
	Kind Kind

	opts          Options
	tracks        []*Track
	playhead      float64
	pixelsPerUnit float64
	scrollOffset  float64
	snapEnabled   bool
	tool          Tool
	clipboard     []*clips.Clip

	events broadcaster
}

// New creates an empty timeline.
func New(name string, opts Options) *Timeline {
	if opts.PixelsPerUnit <= 0 {
		opts.PixelsPerUnit = DefaultOptions().PixelsPerUnit
	}
	return &Timeline{
		ID:            uuid.NewString(),
		Name:          name,
		Kind:          KindMain,
		opts:          opts,
		pixelsPerUnit: opts.PixelsPerUnit,
		snapEnabled:   true,
		tool:          ToolSelect,
	}
}

// NewDefault creates a timeline with three video tracks (ids 0-2) and four
// audio tracks (ids 10-13).
func NewDefault(name string, opts Options) *Timeline {
	tl := New(name, opts)
	for i := 0; i < 3; i++ {
		tl.tracks = append(tl.tracks, NewTrack(i, fmt.Sprintf("Video %d", i+1), clips.Video))
	}
	for i := 0; i < 4; i++ {
		tl.tracks = append(tl.tracks, NewTrack(10+i, fmt.Sprintf("Audio %d", i+1), clips.Audio))
	}
	return tl
}

func (tl *Timeline) Options() Options { return tl.opts }

// AddTrack appends a track. Ids are unique across the whole timeline.
func (tl *Timeline) AddTrack(id int, name string, typ clips.Type) (*Track, error) {
	if id < 0 {
		return nil, fmt.Errorf("track id %d: %w", id, ErrInvalidTrack)
	}
	if typ != clips.Video && typ != clips.Audio {
		return nil, fmt.Errorf("track type %q: %w", typ, ErrInvalidTrack)
	}
	if tl.Track(id) != nil {
		return nil, fmt.Errorf("track %d: %w", id, ErrDuplicateTrack)
	}
	t := NewTrack(id, name, typ)
	tl.tracks = append(tl.tracks, t)
	tl.emit(Event{Kind: TrackAdded, TrackID: id})
	return t, nil
}

// RemoveTrack deletes a track together with its clips.
func (tl *Timeline) RemoveTrack(id int) error {
	for i, t := range tl.tracks {
		if t.ID != id {
			continue
		}
		if t.Locked {
			return fmt.Errorf("remove track %d: %w", id, ErrTrackLocked)
		}
		tl.tracks = append(tl.tracks[:i], tl.tracks[i+1:]...)
		tl.emit(Event{Kind: TrackRemoved, TrackID: id})
		return nil
	}
	return nil
}

// Track returns the track with the given id, or nil.
func (tl *Timeline) Track(id int) *Track {
	for _, t := range tl.tracks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Tracks returns the tracks in display order.
func (tl *Timeline) Tracks() []*Track {
	out := make([]*Track, len(tl.tracks))
	copy(out, tl.tracks)
	return out
}

// FindOrCreateTrack returns the first unlocked track of a type, adding a
// new one when none exists.
func (tl *Timeline) FindOrCreateTrack(typ clips.Type) (*Track, error) {
	count := 0
	for _, t := range tl.tracks {
		if t.Type != typ {
			continue
		}
		count++
		if !t.Locked {
			return t, nil
		}
	}

	id := 0
	if typ == clips.Audio {
		id = 10
	}
	for tl.Track(id) != nil {
		id++
	}
	label := "Video"
	if typ == clips.Audio {
		label = "Audio"
	}
	return tl.AddTrack(id, fmt.Sprintf("%s %d", label, count+1), typ)
}

func (tl *Timeline) trackOrErr(id int) (*Track, error) {
	t := tl.Track(id)
	if t == nil {
		return nil, fmt.Errorf("track %d: %w", id, ErrTrackNotFound)
	}
	return t, nil
}

func (tl *Timeline) SetTrackLocked(id int, locked bool) error {
	t, err := tl.trackOrErr(id)
	if err != nil {
		return err
	}
	t.Locked = locked
	tl.emit(Event{Kind: TrackChanged, TrackID: id})
	return nil
}

func (tl *Timeline) SetTrackMuted(id int, muted bool) error {
	t, err := tl.trackOrErr(id)
	if err != nil {
		return err
	}
	t.Muted = muted
	tl.emit(Event{Kind: TrackChanged, TrackID: id})
	return nil
}

// SetTrackSolo solos a track exclusively; soloing one clears the others.
func (tl *Timeline) SetTrackSolo(id int, solo bool) error {
	t, err := tl.trackOrErr(id)
	if err != nil {
		return err
	}
	if solo {
		for _, other := range tl.tracks {
			other.Solo = false
		}
	}
	t.Solo = solo
	tl.emit(Event{Kind: TrackChanged, TrackID: id})
	return nil
}

// Audible reports whether a track contributes to playback: not muted, and
// either nothing is soloed or this track is.
func (tl *Timeline) Audible(t *Track) bool {
	if t.Muted {
		return false
	}
	for _, other := range tl.tracks {
		if other.Solo {
			return t.Solo
		}
	}
	return true
}

// locate finds a clip and its owning track.
func (tl *Timeline) locate(id string) (*Track, *clips.Clip) {
	for _, t := range tl.tracks {
		if c := t.Clip(id); c != nil {
			return t, c
		}
	}
	return nil, nil
}

// Clip returns the clip with the given id, or nil.
func (tl *Timeline) Clip(id string) *clips.Clip {
	_, c := tl.locate(id)
	return c
}

// AddClip places a new clip referencing mediaRef on a track. The clip type
// follows the track type.
func (tl *Timeline) AddClip(trackID int, mediaRef string, start, duration float64) (string, error) {
	c := clips.New(clipName(mediaRef), mediaRef, start, duration, trackID, "")
	if t := tl.Track(trackID); t != nil {
		c.Type = t.Type
	}
	if err := tl.InsertClip(c); err != nil {
		return "", err
	}
	return c.ID, nil
}

// InsertClip adds a fully built clip to the track named by its TrackID.
func (tl *Timeline) InsertClip(c *clips.Clip) error {
	if c.StartTime < 0 || math.IsNaN(c.StartTime) {
		return fmt.Errorf("clip start %.3f: %w", c.StartTime, ErrInvalidTime)
	}
	if !(c.Duration > 0) || math.IsInf(c.Duration, 0) {
		return fmt.Errorf("clip duration %.3f: %w", c.Duration, ErrInvalidDuration)
	}
	if tl.Clip(c.ID) != nil {
		return fmt.Errorf("clip %s: %w", c.ID, ErrDuplicateClip)
	}
	t, err := tl.trackOrErr(c.TrackID)
	if err != nil {
		return err
	}
	if err := t.AddClip(c); err != nil {
		return err
	}
	tl.emit(Event{Kind: ClipAdded, ClipID: c.ID, TrackID: t.ID, Time: c.StartTime})
	return nil
}

// MoveClip changes a clip's start time and, unless trackID is SameTrack,
// its track. Nothing changes on failure.
func (tl *Timeline) MoveClip(id string, start float64, trackID int) error {
	if start < 0 || math.IsNaN(start) {
		return fmt.Errorf("move %s to %.3f: %w", id, start, ErrInvalidTime)
	}
	src, c := tl.locate(id)
	if c == nil {
		return fmt.Errorf("move %s: %w", id, ErrClipNotFound)
	}
	if trackID == SameTrack {
		trackID = src.ID
	}
	dst, err := tl.trackOrErr(trackID)
	if err != nil {
		return err
	}
	if src.Locked || dst.Locked {
		return fmt.Errorf("move %s: %w", id, ErrTrackLocked)
	}
	if !dst.Accepts(c.Type) {
		return fmt.Errorf("move %s clip %s to %s track %d: %w", c.Type, id, dst.Type, dst.ID, ErrInvalidTrack)
	}

	if dst == src {
		src.MoveClip(id, start)
	} else {
		src.detach(id)
		c.StartTime = start
		dst.insert(c)
	}
	tl.emit(Event{Kind: ClipMoved, ClipID: id, TrackID: dst.ID, Time: start})
	return nil
}

// MoveClipToTrack transfers a clip to another track keeping its timing.
// It either fully succeeds or leaves the clip where it was.
func (tl *Timeline) MoveClipToTrack(id string, trackID int) bool {
	c := tl.Clip(id)
	if c == nil {
		return false
	}
	return tl.MoveClip(id, c.StartTime, trackID) == nil
}

// SplitClip cuts a clip at a timeline time and returns the ids of both
// halves. The left half keeps the original id.
func (tl *Timeline) SplitClip(id string, at float64) (string, string, error) {
	t, c := tl.locate(id)
	if c == nil {
		return "", "", fmt.Errorf("split %s: %w", id, ErrClipNotFound)
	}
	left, right, err := t.SplitClip(id, at)
	if err != nil {
		return "", "", err
	}
	tl.emit(Event{Kind: ClipSplit, ClipID: left.ID, TrackID: t.ID, Time: at})
	tl.emit(Event{Kind: ClipAdded, ClipID: right.ID, TrackID: t.ID, Time: at})
	return left.ID, right.ID, nil
}

// SplitResult pairs the halves of one split.
type SplitResult struct {
	LeftID  string
	RightID string
}

// SplitAtPlayhead splits every clip under the playhead on unlocked tracks.
func (tl *Timeline) SplitAtPlayhead() []SplitResult {
	var out []SplitResult
	for _, t := range tl.tracks {
		if t.Locked {
			continue
		}
		for _, c := range t.ClipsAt(tl.playhead) {
			if l, r, err := tl.SplitClip(c.ID, tl.playhead); err == nil {
				out = append(out, SplitResult{LeftID: l, RightID: r})
			}
		}
	}
	return out
}

// RemoveClip deletes a clip. Unknown ids are ignored.
func (tl *Timeline) RemoveClip(id string) error {
	t, c := tl.locate(id)
	if c == nil {
		return nil
	}
	if err := t.RemoveClip(id); err != nil {
		return err
	}
	tl.emit(Event{Kind: ClipRemoved, ClipID: id, TrackID: t.ID, Time: c.StartTime})
	return nil
}

// DuplicateClip copies a clip to just after the original on the same track.
func (tl *Timeline) DuplicateClip(id string) (string, error) {
	c := tl.Clip(id)
	if c == nil {
		return "", fmt.Errorf("duplicate %s: %w", id, ErrClipNotFound)
	}
	dup := c.Clone()
	dup.StartTime = c.EndTime()
	dup.Selected = false
	if err := tl.InsertClip(dup); err != nil {
		return "", err
	}
	return dup.ID, nil
}

// Clips returns every clip in track order.
func (tl *Timeline) Clips() []*clips.Clip {
	var out []*clips.Clip
	for _, t := range tl.tracks {
		out = append(out, t.clips...)
	}
	return out
}

// ClipsAt returns, across all tracks in track order, every clip whose span
// contains time (both ends inclusive).
func (tl *Timeline) ClipsAt(time float64) []*clips.Clip {
	var out []*clips.Clip
	for _, t := range tl.tracks {
		out = append(out, t.ClipsAt(time)...)
	}
	return out
}

// ClipsInRange returns clips intersecting [start, end].
func (tl *Timeline) ClipsInRange(start, end float64) []*clips.Clip {
	var out []*clips.Clip
	for _, t := range tl.tracks {
		out = append(out, t.ClipsInRange(start, end)...)
	}
	return out
}

// FindGaps lists the empty spans of one track.
func (tl *Timeline) FindGaps(trackID int) ([]Gap, error) {
	t, err := tl.trackOrErr(trackID)
	if err != nil {
		return nil, err
	}
	return t.Gaps(), nil
}

// ContentEnd is the latest clip end time, or 0 for an empty timeline.
func (tl *Timeline) ContentEnd() float64 {
	end := 0.0
	for _, t := range tl.tracks {
		end = math.Max(end, t.End())
	}
	return end
}

// TotalDuration is ContentEnd floored at the configured minimum.
func (tl *Timeline) TotalDuration() float64 {
	return math.Max(tl.ContentEnd(), tl.opts.MinDuration)
}

func (tl *Timeline) Playhead() float64 { return tl.playhead }

// SetPlayhead moves the playhead; negative times clamp to zero.
func (tl *Timeline) SetPlayhead(t float64) {
	if t < 0 || math.IsNaN(t) {
		t = 0
	}
	tl.playhead = t
	tl.emit(Event{Kind: PlayheadMoved, Time: t})
}

func (tl *Timeline) Zoom() float64 { return tl.pixelsPerUnit }

// SetZoom sets pixels per time unit, clamped to the configured range.
func (tl *Timeline) SetZoom(pixelsPerUnit float64) error {
	if !(pixelsPerUnit > 0) || math.IsInf(pixelsPerUnit, 0) {
		return fmt.Errorf("zoom %v: %w", pixelsPerUnit, ErrInvalidZoom)
	}
	if tl.opts.MinZoom > 0 {
		pixelsPerUnit = math.Max(pixelsPerUnit, tl.opts.MinZoom)
	}
	if tl.opts.MaxZoom > 0 {
		pixelsPerUnit = math.Min(pixelsPerUnit, tl.opts.MaxZoom)
	}
	tl.pixelsPerUnit = pixelsPerUnit
	tl.emit(Event{Kind: ZoomChanged, Time: pixelsPerUnit})
	return nil
}

func (tl *Timeline) Scroll() float64 { return tl.scrollOffset }

// SetScroll sets the horizontal scroll offset in pixels.
func (tl *Timeline) SetScroll(px float64) {
	tl.scrollOffset = math.Max(0, px)
	tl.emit(Event{Kind: ScrollChanged, Time: tl.scrollOffset})
}

// TimeToPixel converts a timeline time to a view x coordinate.
func (tl *Timeline) TimeToPixel(t float64) float64 {
	return t*tl.pixelsPerUnit - tl.scrollOffset
}

// PixelToTime converts a view x coordinate to a timeline time.
func (tl *Timeline) PixelToTime(x float64) float64 {
	return math.Max(0, (x+tl.scrollOffset)/tl.pixelsPerUnit)
}

func (tl *Timeline) SnapEnabled() bool { return tl.snapEnabled }

func (tl *Timeline) SetSnap(enabled bool) {
	tl.snapEnabled = enabled
	tl.emit(Event{Kind: SnapChanged})
}

// Select marks a clip selected. Unless additive, other clips are deselected.
func (tl *Timeline) Select(id string, additive bool) error {
	c := tl.Clip(id)
	if c == nil {
		return fmt.Errorf("select %s: %w", id, ErrClipNotFound)
	}
	if !additive {
		for _, other := range tl.Clips() {
			other.Selected = false
		}
	}
	c.Selected = true
	tl.emit(Event{Kind: ClipSelected, ClipID: id, TrackID: c.TrackID})
	return nil
}

func (tl *Timeline) Deselect(id string) {
	if c := tl.Clip(id); c != nil && c.Selected {
		c.Selected = false
		tl.emit(Event{Kind: ClipSelected, ClipID: id, TrackID: c.TrackID})
	}
}

func (tl *Timeline) ClearSelection() {
	for _, c := range tl.Clips() {
		c.Selected = false
	}
	tl.emit(Event{Kind: ClipSelected})
}

// Selected returns the selected clips in track order.
func (tl *Timeline) Selected() []*clips.Clip {
	var out []*clips.Clip
	for _, c := range tl.Clips() {
		if c.Selected {
			out = append(out, c)
		}
	}
	return out
}

// CopySelection snapshots the selected clips into the clipboard and
// returns how many were copied.
func (tl *Timeline) CopySelection() int {
	tl.clipboard = tl.clipboard[:0]
	for _, c := range tl.Selected() {
		tl.clipboard = append(tl.clipboard, c.Clone())
	}
	return len(tl.clipboard)
}

// PasteAtPlayhead inserts the clipboard so its earliest clip starts at the
// playhead, keeping relative offsets and tracks. Either every clip is
// pasted or none is.
func (tl *Timeline) PasteAtPlayhead() ([]string, error) {
	if len(tl.clipboard) == 0 {
		return nil, nil
	}

	earliest := math.Inf(1)
	for _, c := range tl.clipboard {
		earliest = math.Min(earliest, c.StartTime)
	}

	pasted := make([]*clips.Clip, 0, len(tl.clipboard))
	for _, c := range tl.clipboard {
		t, err := tl.trackOrErr(c.TrackID)
		if err != nil {
			return nil, err
		}
		if t.Locked {
			return nil, fmt.Errorf("paste on track %d: %w", t.ID, ErrTrackLocked)
		}
		p := c.Clone()
		p.StartTime = tl.playhead + (c.StartTime - earliest)
		pasted = append(pasted, p)
	}

	ids := make([]string, 0, len(pasted))
	for _, p := range pasted {
		if err := tl.InsertClip(p); err != nil {
			return ids, err
		}
		ids = append(ids, p.ID)
	}
	return ids, nil
}

// AddClipKeyframe animates a clip property. Time is a timeline time and is
// stored relative to the clip start.
func (tl *Timeline) AddClipKeyframe(id, property string, time float64, value any, component string) error {
	c := tl.Clip(id)
	if c == nil {
		return fmt.Errorf("keyframe on %s: %w", id, ErrClipNotFound)
	}
	local := c.LocalTime(time)
	if local < -timeEpsilon || local > c.Duration+timeEpsilon {
		return fmt.Errorf("keyframe at %.3f outside clip %s: %w", time, id, ErrInvalidTime)
	}
	local = math.Max(0, math.Min(local, c.Duration))
	if err := c.Animation.AddKeyframe(property, local, value, component); err != nil {
		return err
	}
	tl.emit(Event{Kind: ClipAnimated, ClipID: id, TrackID: c.TrackID, Time: time})
	return nil
}

// RemoveClipKeyframe deletes a keyframe given in timeline time.
func (tl *Timeline) RemoveClipKeyframe(id, property string, time float64, component string) error {
	c := tl.Clip(id)
	if c == nil {
		return fmt.Errorf("keyframe on %s: %w", id, ErrClipNotFound)
	}
	c.Animation.RemoveKeyframe(property, c.LocalTime(time), component)
	tl.emit(Event{Kind: ClipAnimated, ClipID: id, TrackID: c.TrackID, Time: time})
	return nil
}

// EvaluateClip evaluates every animated property of a clip at a timeline
// time.
func (tl *Timeline) EvaluateClip(id string, time float64) (map[string][]float64, error) {
	c := tl.Clip(id)
	if c == nil {
		return nil, fmt.Errorf("evaluate %s: %w", id, ErrClipNotFound)
	}
	return c.Animation.EvaluateAll(c.LocalTime(time)), nil
}

// AnimatedClipsAt returns clips under time that carry keyframes.
func (tl *Timeline) AnimatedClipsAt(time float64) []*clips.Clip {
	var out []*clips.Clip
	for _, c := range tl.ClipsAt(time) {
		if c.Animation.HasKeyframes() {
			out = append(out, c)
		}
	}
	return out
}

// AttachWaveform stores peaks computed in the background. Results for clips
// that no longer exist are dropped and false is returned.
func (tl *Timeline) AttachWaveform(id string, w *clips.Waveform) bool {
	c := tl.Clip(id)
	if c == nil {
		return false
	}
	c.SetWaveform(w)
	tl.emit(Event{Kind: WaveformAttached, ClipID: id, TrackID: c.TrackID})
	return true
}

// AddAutomationPoint writes a clamped point on a track parameter curve and
// enables the curve.
func (tl *Timeline) AddAutomationPoint(trackID int, parameter string, time, value float64) (float64, error) {
	t, err := tl.trackOrErr(trackID)
	if err != nil {
		return 0, err
	}
	if t.Locked {
		return 0, fmt.Errorf("automate track %d: %w", trackID, ErrTrackLocked)
	}
	if time < 0 {
		return 0, fmt.Errorf("automation at %.3f: %w", time, ErrInvalidTime)
	}
	a := t.EnsureAutomation(parameter)
	a.Enabled = true
	stored := a.Add(time, value)
	tl.emit(Event{Kind: TrackChanged, TrackID: trackID, Time: time})
	return stored, nil
}

// TrackIDs returns every track id in sorted order.
func (tl *Timeline) TrackIDs() []int {
	ids := make([]int, 0, len(tl.tracks))
	for _, t := range tl.tracks {
		ids = append(ids, t.ID)
	}
	sort.Ints(ids)
	return ids
}

func clipName(mediaRef string) string {
	if mediaRef == "" {
		return "clip"
	}
	return filepath.Base(mediaRef)
}
