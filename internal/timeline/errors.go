package timeline

import "errors"

var (
	ErrTrackLocked      = errors.New("track is locked")
	ErrClipNotFound     = errors.New("clip not found")
	ErrTrackNotFound    = errors.New("track not found")
	ErrDuplicateTrack   = errors.New("track id already in use")
	ErrDuplicateClip    = errors.New("clip id already in use")
	ErrInvalidTrack     = errors.New("invalid track")
	ErrInvalidSplit     = errors.New("split time must fall strictly inside the clip")
	ErrInvalidDuration  = errors.New("duration must be positive")
	ErrInvalidTime      = errors.New("time must be non-negative")
	ErrInvalidEdit      = errors.New("edit would leave a clip with invalid timing")
	ErrInvalidZoom      = errors.New("zoom must be positive")
	ErrUnknownTool      = errors.New("unknown tool")
	ErrTimelineNotFound = errors.New("timeline not found")
	ErrTimelineInUse    = errors.New("timeline is referenced by a nested clip")
	ErrCycle            = errors.New("nesting would make a timeline its own ancestor")
	ErrNotNested        = errors.New("timeline is not nested in the parent")
)
