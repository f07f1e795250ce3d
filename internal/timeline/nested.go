package timeline

import (
	"fmt"
	"math"

	"github.com/keagan/reelcut/internal/clips"
)

// Registry holds a main timeline and the timelines nested into it. Nesting
// forms a strict tree: an edit that would make a timeline contain itself,
// directly or through other timelines, is rejected.
type Registry struct {
	opts      Options
	mainID    string
	timelines map[string]*Timeline
	order     []string
}

// NewRegistry wraps a main timeline.
func NewRegistry(main *Timeline) *Registry {
	main.Kind = KindMain
	return &Registry{
		opts:      main.opts,
		mainID:    main.ID,
		timelines: map[string]*Timeline{main.ID: main},
		order:     []string{main.ID},
	}
}

func (r *Registry) Main() *Timeline { return r.timelines[r.mainID] }

// Get returns a timeline by id.
func (r *Registry) Get(id string) (*Timeline, error) {
	tl, ok := r.timelines[id]
	if !ok {
		return nil, fmt.Errorf("timeline %s: %w", id, ErrTimelineNotFound)
	}
	return tl, nil
}

// Timelines returns every timeline, main first, then in creation order.
func (r *Registry) Timelines() []*Timeline {
	out := make([]*Timeline, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.timelines[id])
	}
	return out
}

// Add registers an existing timeline, typically one loaded from disk.
func (r *Registry) Add(tl *Timeline) error {
	if _, ok := r.timelines[tl.ID]; ok {
		return fmt.Errorf("timeline %s already registered", tl.ID)
	}
	r.timelines[tl.ID] = tl
	r.order = append(r.order, tl.ID)
	return nil
}

// CreateNested registers a new timeline with the default track layout.
func (r *Registry) CreateNested(name string, kind Kind) *Timeline {
	tl := NewDefault(name, r.opts)
	if kind == "" || kind == KindMain {
		kind = KindNested
	}
	tl.Kind = kind
	r.timelines[tl.ID] = tl
	r.order = append(r.order, tl.ID)
	return tl
}

// Delete unregisters a nested timeline. The main timeline and timelines
// still referenced by a clip cannot be deleted.
func (r *Registry) Delete(id string) error {
	if id == r.mainID {
		return fmt.Errorf("delete main timeline: %w", ErrInvalidEdit)
	}
	if _, err := r.Get(id); err != nil {
		return err
	}
	if r.referenced(id) {
		return fmt.Errorf("delete %s: %w", id, ErrTimelineInUse)
	}
	delete(r.timelines, id)
	for i, other := range r.order {
		if other == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *Registry) referenced(id string) bool {
	for _, tl := range r.timelines {
		for _, c := range tl.Clips() {
			if c.NestedID == id {
				return true
			}
		}
	}
	return false
}

// contains reports whether timeline from reaches target through nested
// clips, including from == target.
func (r *Registry) contains(from, target string) bool {
	seen := make(map[string]bool)
	var walk func(id string) bool
	walk = func(id string) bool {
		if id == target {
			return true
		}
		if seen[id] {
			return false
		}
		seen[id] = true
		tl, ok := r.timelines[id]
		if !ok {
			return false
		}
		for _, c := range tl.Clips() {
			if c.NestedID != "" && walk(c.NestedID) {
				return true
			}
		}
		return false
	}
	return walk(from)
}

// AddNestedClip places a clip on parent that plays timeline child. Its
// duration is the child's content length at insertion time.
func (r *Registry) AddNestedClip(parentID string, trackID int, childID string, start float64) (string, error) {
	parent, err := r.Get(parentID)
	if err != nil {
		return "", err
	}
	child, err := r.Get(childID)
	if err != nil {
		return "", err
	}
	if r.contains(childID, parentID) {
		return "", fmt.Errorf("nest %s into %s: %w", childID, parentID, ErrCycle)
	}
	duration := child.ContentEnd()
	if duration <= 0 {
		return "", fmt.Errorf("nest empty timeline %s: %w", childID, ErrInvalidDuration)
	}

	c := clips.New(child.Name, "", start, duration, trackID, clips.Both)
	c.NestedID = childID
	c.SourceDuration = duration
	if err := parent.InsertClip(c); err != nil {
		return "", err
	}
	return c.ID, nil
}

// ConvertToNested moves clips of parent into a new compound timeline and
// replaces them with one clip referencing it. Times inside the new
// timeline are shifted so the earliest clip starts at zero.
func (r *Registry) ConvertToNested(parentID string, clipIDs []string, name string) (string, error) {
	parent, err := r.Get(parentID)
	if err != nil {
		return "", err
	}

	var moving []*clips.Clip
	first, last := math.Inf(1), 0.0
	seen := make(map[string]bool, len(clipIDs))
	for _, id := range clipIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		t, c := parent.locate(id)
		if c == nil {
			return "", fmt.Errorf("nest %s: %w", id, ErrClipNotFound)
		}
		if t.Locked {
			return "", fmt.Errorf("nest %s: %w", id, ErrTrackLocked)
		}
		moving = append(moving, c)
		first = math.Min(first, c.StartTime)
		last = math.Max(last, c.EndTime())
	}
	if len(moving) == 0 {
		return "", fmt.Errorf("nest: %w", ErrClipNotFound)
	}
	hostTrack := moving[0].TrackID

	child := r.CreateNested(name, KindCompound)
	for _, c := range moving {
		src := parent.Track(c.TrackID)
		dst := child.Track(c.TrackID)
		if dst == nil {
			dst, _ = child.AddTrack(src.ID, src.Name, src.Type)
		}
		src.detach(c.ID)
		parent.emit(Event{Kind: ClipRemoved, ClipID: c.ID, TrackID: src.ID, Time: c.StartTime})
		c.StartTime -= first
		c.Selected = false
		dst.insert(c)
	}

	compound := clips.New(name, "", first, last-first, hostTrack, clips.Both)
	compound.NestedID = child.ID
	compound.SourceDuration = last - first
	parent.Track(hostTrack).insert(compound)
	parent.emit(Event{Kind: ClipAdded, ClipID: compound.ID, TrackID: hostTrack, Time: first})
	return child.ID, nil
}

// Flatten replaces the clip on parent that references child with copies of
// child's clips, then drops child when nothing else references it.
func (r *Registry) Flatten(parentID, childID string) error {
	parent, err := r.Get(parentID)
	if err != nil {
		return err
	}
	child, err := r.Get(childID)
	if err != nil {
		return err
	}

	var host *Track
	var compound *clips.Clip
	for _, t := range parent.tracks {
		for _, c := range t.clips {
			if c.NestedID == childID {
				host, compound = t, c
				break
			}
		}
		if compound != nil {
			break
		}
	}
	if compound == nil {
		return fmt.Errorf("flatten %s into %s: %w", childID, parentID, ErrNotNested)
	}
	if host.Locked {
		return fmt.Errorf("flatten %s: %w", childID, ErrTrackLocked)
	}

	for _, c := range child.Clips() {
		if t := parent.Track(c.TrackID); t != nil && t.Locked {
			return fmt.Errorf("flatten onto track %d: %w", t.ID, ErrTrackLocked)
		}
	}

	host.detach(compound.ID)
	parent.emit(Event{Kind: ClipRemoved, ClipID: compound.ID, TrackID: host.ID, Time: compound.StartTime})

	for _, c := range child.Clips() {
		dst := parent.Track(c.TrackID)
		if dst == nil {
			src := child.Track(c.TrackID)
			dst, _ = parent.AddTrack(src.ID, src.Name, src.Type)
		}
		flat := c.Clone()
		flat.StartTime = c.StartTime + compound.StartTime
		dst.insert(flat)
		parent.emit(Event{Kind: ClipAdded, ClipID: flat.ID, TrackID: dst.ID, Time: flat.StartTime})
	}

	if !r.referenced(childID) {
		return r.Delete(childID)
	}
	return nil
}

// Node is one entry of the nesting hierarchy.
type Node struct {
	ID       string
	Name     string
	Kind     Kind
	Children []Node
}

// Hierarchy returns the nesting tree rooted at the main timeline.
func (r *Registry) Hierarchy() Node {
	return r.node(r.mainID, map[string]bool{})
}

func (r *Registry) node(id string, path map[string]bool) Node {
	tl := r.timelines[id]
	n := Node{ID: id, Name: tl.Name, Kind: tl.Kind}
	path[id] = true
	defer delete(path, id)

	seen := map[string]bool{}
	for _, c := range tl.Clips() {
		if c.NestedID == "" || seen[c.NestedID] || path[c.NestedID] {
			continue
		}
		if _, ok := r.timelines[c.NestedID]; !ok {
			continue
		}
		seen[c.NestedID] = true
		n.Children = append(n.Children, r.node(c.NestedID, path))
	}
	return n
}

// Validate reports dangling references and cycles, as can appear in a
// hand-edited project file.
func (r *Registry) Validate() []error {
	var errs []error
	for _, id := range r.order {
		tl := r.timelines[id]
		for _, c := range tl.Clips() {
			if c.NestedID == "" {
				continue
			}
			if _, ok := r.timelines[c.NestedID]; !ok {
				errs = append(errs, fmt.Errorf("clip %s in %s: %w: %s", c.ID, id, ErrTimelineNotFound, c.NestedID))
				continue
			}
			if r.contains(c.NestedID, id) {
				errs = append(errs, fmt.Errorf("clip %s in %s: %w", c.ID, id, ErrCycle))
			}
		}
	}
	return errs
}
