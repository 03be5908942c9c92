package detector

import (
	"fmt"
	"strconv"
	"strings"

	"highlighter/internal/highlight"
)

// ParseOptions controls how detection windows are derived.
type ParseOptions struct {
	Preamble  float64
	Postamble float64
	// DeriveTimeFromFrame computes the time from frame/fps when a record has
	// no explicit time field.
	DeriveTimeFromFrame bool
}

// ParseLine folds one detector output line into a Detection. It reports
// false when the record lacks a non-zero frame or a text field; an empty
// text value still counts as present. A malformed numeric field
// returns an error and the record is discarded.
func ParseLine(line string, opts ParseOptions) (highlight.Detection, bool, error) {
	var d highlight.Detection
	hasTime, hasText := false, false

	for _, part := range strings.Split(line, ";") {
		stubs := strings.Split(part, "=")
		if len(stubs) != 2 {
			continue
		}
		key := strings.TrimSpace(stubs[0])
		value := strings.TrimSpace(stubs[1])

		switch key {
		case "frame":
			frameValue, fpsValue, ok := strings.Cut(value, "@")
			if !ok {
				return highlight.Detection{}, false, fmt.Errorf("frame %q: missing @fps", value)
			}
			frame, err := strconv.ParseUint(strings.TrimSpace(frameValue), 10, 64)
			if err != nil {
				return highlight.Detection{}, false, fmt.Errorf("frame %q: %w", value, err)
			}
			fps, err := strconv.ParseFloat(strings.TrimSpace(fpsValue), 64)
			if err != nil {
				return highlight.Detection{}, false, fmt.Errorf("fps %q: %w", value, err)
			}
			d.Frame = frame
			d.FPS = fps
		case "levenshtein":
			distance, err := strconv.Atoi(value)
			if err != nil {
				return highlight.Detection{}, false, fmt.Errorf("levenshtein %q: %w", value, err)
			}
			d.EditDistance = distance
		case "text":
			d.Text = value
			hasText = true
		case "time":
			seconds, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return highlight.Detection{}, false, fmt.Errorf("time %q: %w", value, err)
			}
			d.SetTime(seconds, opts.Preamble, opts.Postamble)
			hasTime = true
		}
	}

	if !hasTime && opts.DeriveTimeFromFrame && d.FPS > 0 {
		d.SetTime(float64(d.Frame)/d.FPS, opts.Preamble, opts.Postamble)
	}
	if d.Frame == 0 || !hasText {
		return highlight.Detection{}, false, nil
	}
	return d, true, nil
}
