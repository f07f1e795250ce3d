package timeline

import "math"

// SnapThreshold is the snapping distance in time units at the current zoom.
func (tl *Timeline) SnapThreshold() float64 {
	return tl.opts.SnapPixels / tl.pixelsPerUnit
}

// SnapCandidates lists the clip-derived snap targets: the playhead and the
// start and end of every clip except excluding. Grid points are computed
// per query and not included.
func (tl *Timeline) SnapCandidates(excluding string) []float64 {
	out := []float64{tl.playhead}
	for _, c := range tl.Clips() {
		if c.ID == excluding {
			continue
		}
		out = append(out, c.StartTime, c.EndTime())
	}
	return out
}

// SnapTime returns the nearest snap target to t when one lies within the
// threshold, or t unchanged. Targets are the playhead, the nearest grid
// point and the edges of every clip other than excluding, on all tracks.
func (tl *Timeline) SnapTime(t float64, excluding string) float64 {
	if !tl.snapEnabled {
		return t
	}

	best, bestDist := t, math.Inf(1)
	consider := func(candidate float64) {
		if d := math.Abs(candidate - t); d < bestDist {
			best, bestDist = candidate, d
		}
	}

	if g := tl.opts.GridInterval; g > 0 {
		consider(math.Round(t/g) * g)
	}
	for _, candidate := range tl.SnapCandidates(excluding) {
		consider(candidate)
	}

	if bestDist <= tl.SnapThreshold() {
		return best
	}
	return t
}
