// Package highlight holds the detection data model and the interval merger.
//
// Raw Detections come from the detector one per output line. Merge folds
// them into ClipIntervals, the padded windows that are exported as clips.
// Listings persist exported intervals as JSON next to the clips so an
// export can be replayed without re-running detection.
package highlight
