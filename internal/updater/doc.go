// Package updater keeps the managed ffmpeg install current.
//
// A check runs `ffmpeg -version` and fetches the published release page
// concurrently, then compares the two strings. When they differ and a
// download URL is configured, the new release replaces <ffmpeg_dir>; the
// previous install is restored if the download or extraction fails.
package updater
