package crop

import (
	"fmt"
	"math"

	"highlighter/internal/media/ffprobe"
)

// Reference frame the kill-feed region was measured against.
const (
	referenceWidth  = 1920.0
	referenceHeight = 1080.0

	regionX      = 1450.0
	regionY      = 283.0
	regionWidth  = 398.0
	regionHeight = 53.0
)

// Rect is a crop rectangle in pixels.
type Rect struct {
	X int
	Y int
	W int
	H int
}

// RectFor scales the kill-feed region to the given frame size.
func RectFor(dims ffprobe.Dimensions) Rect {
	w := float64(dims.Width)
	h := float64(dims.Height)
	return Rect{
		X: int(math.Round(regionX / referenceWidth * w)),
		Y: int(math.Round(regionY / referenceHeight * h)),
		W: int(math.Round(regionWidth / referenceWidth * w)),
		H: int(math.Round(regionHeight / referenceHeight * h)),
	}
}

// Filter renders r as an ffmpeg crop filter expression.
func (r Rect) Filter() string {
	return fmt.Sprintf("crop=%d:%d:%d:%d", r.W, r.H, r.X, r.Y)
}
