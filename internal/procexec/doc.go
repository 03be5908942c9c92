// Package procexec wraps os/exec for the short-lived external tools the
// pipeline drives (ffprobe, ffmpeg, the detector).
//
// Two shapes are provided. An Executor runs a command to completion while
// forwarding each stdout line to a callback, which suits parse-as-you-stream
// consumers. A Starter launches a command and hands back a Process the caller
// waits on later, which lets export trims overlap. Both report launch failures
// as *StartError so callers can tell "could not run" apart from "ran and
// failed".
package procexec
