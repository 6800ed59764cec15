// Package services defines shared utilities consumed by the pipeline stage
// handlers and external tool wrappers.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, item paths, and stage names
//     for logging.
//   - Structured error markers plus the Wrap helper. Stage code uses the
//     markers to decide whether a failure stays local to one item or aborts
//     the run (ErrInvariant).
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
