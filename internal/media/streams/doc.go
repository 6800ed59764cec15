// Package streams picks the subtitle and audio streams to keep from ffprobe
// metadata and decides whether changing container is safe.
//
// Classification is a single pass over the streams in index order. Only codecs
// from the configured supported sets qualify. The first qualifying stream
// tagged with the target language wins; otherwise the first qualifying stream
// is adopted as the fallback. Release-group overrides are applied on top of
// the generic rule.
//
// Primary entry point:
//   - Classify: returns a Selection or an error for unclassifiable input
package streams
