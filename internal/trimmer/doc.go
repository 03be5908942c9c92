// Package trimmer sequences the highlight pipeline for one source recording.
//
// A Trimmer walks Idle, Cropping, Detecting, Merging, Exporting and Done in
// order. It owns the cropped working copy: the file is created in the temp
// directory, reused across runs unless temporary file deletion is enabled,
// and removed by Close when cleanup is on.
//
// GenerateClips runs the full pipeline; ExportClips replays a saved listing
// through the export stage alone.
package trimmer
