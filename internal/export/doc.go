// Package export trims merged clip intervals out of a source recording.
//
// Every interval becomes one stream-copy ffmpeg invocation. Invocations for a
// source run concurrently, bounded by a worker count, and a failed trim never
// stops its siblings. Intervals whose clip file already exists are skipped
// unless overwrite is requested, so re-running an export is cheap.
package export
