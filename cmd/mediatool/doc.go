// Command mediatool tidies a media library in batch: it unpacks archives,
// renames release files to "Title (Year)" form, extracts subtitles and remuxes
// containers, and keeps the managed ffmpeg install current.
//
// Every pipeline action accepts --simulate, which reports what would change
// without touching the filesystem.
package main
