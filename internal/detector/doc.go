// Package detector runs the external kill-feed detector and parses its
// output.
//
// The detector is invoked as `<executable> <displayName> <croppedPath>` and
// prints one record per line as `key=value` pairs separated by `;`. Records
// become highlight.Detections once they carry a non-zero frame and a text.
// Lines are folded as they stream in and Run returns only after the process
// exits.
package detector
