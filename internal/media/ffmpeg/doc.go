// Package ffmpeg drives the ffmpeg invocations mediatool needs: subtitle
// extraction to an SRT sidecar, stream-copy remux into the output container,
// sidecar merge, and version reporting. Every call goes through procrun so
// waits stay bounded.
package ffmpeg
