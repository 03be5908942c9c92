package highlight

import "encoding/json"

// Detection is one kill-feed match reported by the detector.
type Detection struct {
	Frame        uint64
	FPS          float64
	EditDistance int
	Text         string
	Time         float64
	StartTime    float64
	EndTime      float64
}

// SetTime anchors the detection at seconds and derives its window.
func (d *Detection) SetTime(seconds, preamble, postamble float64) {
	d.Time = seconds
	d.StartTime = seconds - preamble
	d.EndTime = seconds + postamble
}

// ClipInterval is a merged window exported as one clip. The frame, fps,
// distance and text come from the detection that seeded the interval.
type ClipInterval struct {
	FPS          float64 `json:"fps"`
	Frame        uint64  `json:"frame"`
	EditDistance int     `json:"levenshtein"`
	Text         string  `json:"text"`
	Time         float64 `json:"time"`
	StartTime    float64 `json:"startTime"`
	EndTime      float64 `json:"endTime"`
	ClipFile     string  `json:"clipFile,omitempty"`
}

// Duration is the exported length in seconds.
func (c ClipInterval) Duration() float64 {
	return c.EndTime - c.StartTime
}

// MarshalJSON includes the derived duration so listings are self-describing.
func (c ClipInterval) MarshalJSON() ([]byte, error) {
	type plain ClipInterval
	return json.Marshal(struct {
		plain
		Duration float64 `json:"duration"`
	}{plain: plain(c), Duration: c.Duration()})
}

func intervalFrom(d Detection) ClipInterval {
	return ClipInterval{
		FPS:          d.FPS,
		Frame:        d.Frame,
		EditDistance: d.EditDistance,
		Text:         d.Text,
		Time:         d.Time,
		StartTime:    d.StartTime,
		EndTime:      d.EndTime,
	}
}
