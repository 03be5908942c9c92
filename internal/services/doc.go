// Package services defines shared utilities consumed by the pipeline stages
// and the batch runner.
//
// Key responsibilities:
//   - Context helpers that stamp channel names, recording IDs, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (configuration, probe, crop, detector launch, export) so the batch
//     runner can decide whether a source video is abandoned or the run halts.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
