// Package main hosts the highlighter CLI entrypoint and command graph.
//
// The Cobra-based command tree covers channel batches (`run`, `watch`),
// single-file work on clips (`clips generate|export|list`), the ledger
// (`history`, `status`), and configuration scaffolding. It centralizes
// configuration resolution and logger setup so subcommands only wire the
// internal packages together.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
