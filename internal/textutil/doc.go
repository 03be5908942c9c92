// Package textutil provides filename sanitization for clip and working files.
//
// Display names come from channel configuration and may contain accented or
// filesystem-unsafe characters; FoldASCII and SanitizeFileName turn them into
// segments that are safe to embed in clip filenames.
package textutil
