package project

import (
	"errors"
	"fmt"

	"github.com/keagan/reelcut/internal/clips"
	"github.com/keagan/reelcut/internal/keyframes"
	"github.com/keagan/reelcut/internal/timeline"
)

var (
	ErrUnsupportedVersion = errors.New("unsupported project version")
	ErrInvalidDocument    = errors.New("invalid project document")
)

// Version is the schema version written by this package.
const Version = 1

// Document is the on-disk form of a project: every timeline of a
// registry, main first.
type Document struct {
	Version   int               `yaml:"version"`
	Main      string            `yaml:"main"`
	Timelines []TimelineDoc     `yaml:"timelines"`
	Metadata  map[string]string `yaml:"metadata,omitempty"`
}

type TimelineDoc struct {
	ID     string     `yaml:"id"`
	Name   string     `yaml:"name"`
	Kind   string     `yaml:"kind"`
	View   ViewDoc    `yaml:"view"`
	Tracks []TrackDoc `yaml:"tracks"`
}

type ViewDoc struct {
	Playhead float64 `yaml:"playhead"`
	Zoom     float64 `yaml:"zoom"`
	Scroll   float64 `yaml:"scroll"`
	Snap     bool    `yaml:"snap"`
	Tool     string  `yaml:"tool"`
}

type TrackDoc struct {
	ID         int             `yaml:"id"`
	Name       string          `yaml:"name"`
	Type       string          `yaml:"type"`
	Muted      bool            `yaml:"muted,omitempty"`
	Locked     bool            `yaml:"locked,omitempty"`
	Solo       bool            `yaml:"solo,omitempty"`
	Automation []AutomationDoc `yaml:"automation,omitempty"`
	Clips      []ClipDoc       `yaml:"clips,omitempty"`
}

type AutomationDoc struct {
	Parameter string               `yaml:"parameter"`
	Min       float64              `yaml:"min"`
	Max       float64              `yaml:"max"`
	Enabled   bool                 `yaml:"enabled"`
	Points    []keyframes.Keyframe `yaml:"points,omitempty"`
}

type ClipDoc struct {
	ID             string            `yaml:"id"`
	Name           string            `yaml:"name"`
	Start          float64           `yaml:"start"`
	Duration       float64           `yaml:"duration"`
	Type           string            `yaml:"type"`
	Media          string            `yaml:"media,omitempty"`
	Offset         float64           `yaml:"offset,omitempty"`
	SourceDuration float64           `yaml:"source_duration,omitempty"`
	Nested         string            `yaml:"nested,omitempty"`
	Selected       bool              `yaml:"selected,omitempty"`
	Metadata       map[string]string `yaml:"metadata,omitempty"`
	Animation      []PropertyDoc     `yaml:"animation,omitempty"`
}

// PropertyDoc stores the keyframes of one animated property per component.
type PropertyDoc struct {
	Property   string                          `yaml:"property"`
	Components map[string][]keyframes.Keyframe `yaml:"components"`
}

// FromRegistry captures every timeline of reg.
func FromRegistry(reg *timeline.Registry) *Document {
	doc := &Document{
		Version: Version,
		Main:    reg.Main().ID,
	}
	for _, tl := range reg.Timelines() {
		doc.Timelines = append(doc.Timelines, timelineDoc(tl))
	}
	return doc
}

func timelineDoc(tl *timeline.Timeline) TimelineDoc {
	td := TimelineDoc{
		ID:   tl.ID,
		Name: tl.Name,
		Kind: string(tl.Kind),
		View: ViewDoc{
			Playhead: tl.Playhead(),
			Zoom:     tl.Zoom(),
			Scroll:   tl.Scroll(),
			Snap:     tl.SnapEnabled(),
			Tool:     tl.Tool().String(),
		},
	}
	for _, t := range tl.Tracks() {
		td.Tracks = append(td.Tracks, trackDoc(t))
	}
	return td
}

func trackDoc(t *timeline.Track) TrackDoc {
	doc := TrackDoc{
		ID:     t.ID,
		Name:   t.Name,
		Type:   string(t.Type),
		Muted:  t.Muted,
		Locked: t.Locked,
		Solo:   t.Solo,
	}
	for _, a := range t.Automations() {
		doc.Automation = append(doc.Automation, AutomationDoc{
			Parameter: a.Parameter,
			Min:       a.Min,
			Max:       a.Max,
			Enabled:   a.Enabled,
			Points:    a.Keyframes(),
		})
	}
	for _, c := range t.Clips() {
		doc.Clips = append(doc.Clips, clipDoc(c))
	}
	return doc
}

func clipDoc(c *clips.Clip) ClipDoc {
	doc := ClipDoc{
		ID:             c.ID,
		Name:           c.Name,
		Start:          c.StartTime,
		Duration:       c.Duration,
		Type:           string(c.Type),
		Media:          c.MediaRef,
		Offset:         c.MediaOffset,
		SourceDuration: c.SourceDuration,
		Nested:         c.NestedID,
		Selected:       c.Selected,
	}
	if len(c.Metadata) > 0 {
		doc.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			doc.Metadata[k] = v
		}
	}
	if c.Animation == nil {
		return doc
	}
	for _, name := range c.Animation.Properties() {
		p, _ := c.Animation.Lookup(name)
		if !p.HasKeyframes() {
			continue
		}
		pd := PropertyDoc{Property: name, Components: map[string][]keyframes.Keyframe{}}
		for _, comp := range p.Components() {
			if kfs := p.Track(comp).Keyframes(); len(kfs) > 0 {
				pd.Components[comp] = kfs
			}
		}
		doc.Animation = append(doc.Animation, pd)
	}
	return doc
}

// ToRegistry rebuilds the timelines of doc. Nesting references are
// checked once every timeline exists.
func (doc *Document) ToRegistry(opts timeline.Options) (*timeline.Registry, error) {
	if doc.Version < 1 || doc.Version > Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}

	var mainDoc *TimelineDoc
	for i := range doc.Timelines {
		if doc.Timelines[i].ID == doc.Main {
			mainDoc = &doc.Timelines[i]
			break
		}
	}
	if mainDoc == nil {
		return nil, fmt.Errorf("%w: main timeline %q missing", ErrInvalidDocument, doc.Main)
	}

	main, err := buildTimeline(mainDoc, opts)
	if err != nil {
		return nil, err
	}
	reg := timeline.NewRegistry(main)

	for i := range doc.Timelines {
		td := &doc.Timelines[i]
		if td.ID == doc.Main {
			continue
		}
		tl, err := buildTimeline(td, opts)
		if err != nil {
			return nil, err
		}
		if tl.Kind == timeline.KindMain {
			tl.Kind = timeline.KindNested
		}
		if err := reg.Add(tl); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
	}

	if errs := reg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, errors.Join(errs...))
	}
	return reg, nil
}

func buildTimeline(td *TimelineDoc, opts timeline.Options) (*timeline.Timeline, error) {
	if td.ID == "" {
		return nil, fmt.Errorf("%w: timeline %q has no id", ErrInvalidDocument, td.Name)
	}
	tl := timeline.New(td.Name, opts)
	tl.ID = td.ID
	switch kind := timeline.Kind(td.Kind); kind {
	case timeline.KindMain, timeline.KindNested, timeline.KindCompound:
		tl.Kind = kind
	case "":
		tl.Kind = timeline.KindNested
	default:
		return nil, fmt.Errorf("%w: timeline %s has unknown kind %q", ErrInvalidDocument, td.ID, td.Kind)
	}

	for i := range td.Tracks {
		if err := buildTrack(tl, &td.Tracks[i]); err != nil {
			return nil, fmt.Errorf("timeline %s: %w", td.ID, err)
		}
	}

	v := td.View
	if v.Zoom > 0 {
		if err := tl.SetZoom(v.Zoom); err != nil {
			return nil, err
		}
	}
	tl.SetScroll(v.Scroll)
	tl.SetPlayhead(v.Playhead)
	tl.SetSnap(v.Snap)
	if v.Tool != "" {
		tool, err := timeline.ParseTool(v.Tool)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		if err := tl.SetTool(tool); err != nil {
			return nil, err
		}
	}
	return tl, nil
}

func buildTrack(tl *timeline.Timeline, td *TrackDoc) error {
	typ, err := clips.ParseType(td.Type)
	if err != nil {
		return fmt.Errorf("%w: track %d: %v", ErrInvalidDocument, td.ID, err)
	}
	t, err := tl.AddTrack(td.ID, td.Name, typ)
	if err != nil {
		return err
	}

	for _, ad := range td.Automation {
		a := t.EnsureAutomation(ad.Parameter)
		a.Clear()
		if err := a.SetRange(ad.Min, ad.Max); err != nil {
			return fmt.Errorf("%w: track %d: %v", ErrInvalidDocument, td.ID, err)
		}
		a.Enabled = ad.Enabled
		for _, p := range ad.Points {
			a.Add(p.Time, p.Value)
		}
	}

	for i := range td.Clips {
		c, err := buildClip(td.ID, &td.Clips[i])
		if err != nil {
			return err
		}
		if err := tl.InsertClip(c); err != nil {
			return fmt.Errorf("clip %s: %w", c.ID, err)
		}
	}

	// locks apply after the clips are in place
	t.Muted, t.Locked, t.Solo = td.Muted, td.Locked, td.Solo
	return nil
}

func buildClip(trackID int, cd *ClipDoc) (*clips.Clip, error) {
	typ, err := clips.ParseType(cd.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: clip %s: %v", ErrInvalidDocument, cd.ID, err)
	}

	c := clips.New(cd.Name, cd.Media, cd.Start, cd.Duration, trackID, typ)
	if cd.ID != "" {
		c.ID = cd.ID
	}
	c.MediaOffset = cd.Offset
	c.SourceDuration = cd.SourceDuration
	c.NestedID = cd.Nested
	c.Selected = cd.Selected
	for k, v := range cd.Metadata {
		c.Metadata[k] = v
	}

	for _, pd := range cd.Animation {
		p := c.Animation.Property(pd.Property)
		for comp, kfs := range pd.Components {
			track := p.Track(comp)
			if track == nil {
				return nil, fmt.Errorf("%w: clip %s: %s has no component %q", ErrInvalidDocument, c.ID, pd.Property, comp)
			}
			for _, kf := range kfs {
				track.Add(kf.Time, kf.Value)
			}
		}
	}
	return c, nil
}
