// Package archive opens rar, zip, tar, and gzipped tar files, lists their
// entries, and extracts a single entry into a directory.
//
// RAR support, including multi-volume sets, comes from rardecode. Numbered
// volume sets ("name.part1.rar", "name.part02.rar") are recognised so callers
// extract only from the first volume and can remove every sibling afterwards.
package archive
