// Package remuxing implements the media stages that drive ffmpeg.
//
// Extractor is the ExtractMedia stage: it probes a container, classifies its
// streams, writes the chosen subtitle to a ".srt" sidecar and, when the
// classification says it is safe, remuxes video and the chosen audio track
// into the output container without re-encoding. Merger is the MergeSubtitle
// stage used by the merge action, which muxes an existing sidecar back into
// its container.
//
// Both stages only replace their input after the new file has been written
// and checked.
package remuxing
