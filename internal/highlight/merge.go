package highlight

import "strings"

// artifactToken marks detector output that is not a real highlight.
const artifactToken = "found"

// IsArtifact reports whether text is a known detector artifact.
func IsArtifact(text string) bool {
	return strings.Contains(strings.ToLower(text), artifactToken)
}

// Merge folds detections, in the order the detector emitted them, into
// non-overlapping clip intervals.
//
// Each detection is tested against every interval merged so far. If its
// padded window reaches an interval's start, that start is pulled back to the
// detection's start; if it reaches the interval's end, that end is pushed out
// to the detection's end. Intervals only ever widen. A detection that touched
// no interval seeds a new one, so the result is in first-seen order rather
// than sorted by time.
func Merge(detections []Detection, padding float64) []ClipInterval {
	merged := make([]ClipInterval, 0, len(detections))
	for _, d := range detections {
		if IsArtifact(d.Text) {
			continue
		}

		hasMerged := false
		for i := range merged {
			m := &merged[i]
			if d.StartTime-padding <= m.StartTime && d.EndTime+padding >= m.StartTime {
				m.StartTime = min(m.StartTime, d.StartTime)
				hasMerged = true
			}
			if d.EndTime+padding >= m.EndTime && d.StartTime-padding <= m.EndTime {
				m.EndTime = max(m.EndTime, d.EndTime)
				hasMerged = true
			}
		}

		if !hasMerged {
			merged = append(merged, intervalFrom(d))
		}
	}
	return merged
}
