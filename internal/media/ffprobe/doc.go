// Package ffprobe provides a typed wrapper around ffprobe output.
//
// Key types:
//   - Prober: runs ffprobe through a swappable runner
//   - Dimensions: width and height of the first video stream
//   - Result: parsed ffprobe JSON containing streams and format metadata
//
// Dimensions is what the cropper relies on; Inspect is used to sanity check
// downloaded recordings before they are handed to the trimmer.
package ffprobe
