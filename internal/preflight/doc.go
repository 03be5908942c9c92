// Package preflight provides readiness checks for the binaries, directories,
// and catalog endpoint the highlighter depends on.
//
// These checks run in two contexts:
//   - The batch commands call RunAll before listing recordings. If any check
//     fails, the batch stops before downloading sources it cannot process.
//   - The CLI "highlighter status" command renders every check, including
//     optional ones, as a table.
package preflight
