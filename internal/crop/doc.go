// Package crop produces the kill-feed working copy of a recording.
//
// The region of interest is fixed relative to a 1920x1080 reference frame and
// scaled to the probed dimensions of each source. Cropping is a single ffmpeg
// pass that drops audio; the result is what the detector scans.
package crop
