// Package workflow drives files through the processing stages.
//
// A Pipeline walks a directory tree depth-first, files before
// subdirectories, and threads one mediaitem.Item per file through its
// ordered stages. An item that fails stops at that stage while its siblings
// carry on; only an invariant error from a stage aborts the walk. Items
// without an extension are rejected before any stage runs.
//
// StageSet maps the CLI actions onto stage lists: convert runs the full
// ExtractArchive, RenameFile, ExtractMedia, CreateArchive sequence, while
// extract, rename and merge run a single stage each.
package workflow
