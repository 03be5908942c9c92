// Package config loads, normalizes, and validates highlighter configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the HIGHLIGHTER_DETECTOR
// environment fallback. The Config type centralizes every knob the batch
// runner and CLI need: working directories, detector window sizing, ffmpeg
// settings, the recordings catalog, and the channels to scan.
package config
