package compositor

import (
	"math"

	"github.com/keagan/reelcut/internal/timeline"
)

// Channel is one audio source contributing at a given time.
type Channel struct {
	ClipID     string
	MediaRef   string
	TrackID    int
	SourceTime float64
	Volume     float64
	// Pan runs from 0 (left) to 1 (right).
	Pan float64
}

// StereoGains splits Volume across two channels with an equal-power law.
func (c Channel) StereoGains() (left, right float64) {
	angle := c.Pan * math.Pi / 2
	return c.Volume * math.Cos(angle), c.Volume * math.Sin(angle)
}

// Mix lists the audio clips audible in tl at time t, with their track
// volume and pan automation applied. Silent channels are left out.
func Mix(tl *timeline.Timeline, t float64) []Channel {
	var out []Channel
	for _, track := range tl.Tracks() {
		if !tl.Audible(track) {
			continue
		}
		volume := track.Automation(timeline.ParamVolume).Effective(t, 1)
		if volume <= 0 {
			continue
		}
		pan := track.Automation(timeline.ParamPan).Effective(t, 0.5)

		for _, clip := range track.ClipsAt(t) {
			if !clip.Type.HasAudio() {
				continue
			}
			out = append(out, Channel{
				ClipID:     clip.ID,
				MediaRef:   clip.MediaRef,
				TrackID:    track.ID,
				SourceTime: clip.SourceTime(t),
				Volume:     volume,
				Pan:        pan,
			})
		}
	}
	return out
}
