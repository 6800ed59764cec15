// Package ffprobe runs ffprobe and decodes its JSON stream listing.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: index, codec type, codec name, and tags of one stream
//   - Prober: bounded ffprobe invocation through procrun
//   - Verifier: post-remux check backed by go-ffprobe
//
// Parse treats a missing or empty stream list as an invariant violation: the
// input is unusable and the run must stop rather than carry an empty
// selection forward.
package ffprobe
