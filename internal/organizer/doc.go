// Package organizer implements the rename stage: it rewrites a file name into
// its canonical "Title (Year).Suffix.ext" form using the naming engine.
//
// Names are compared case-insensitively because the target filesystems are
// case-preserving but not case-sensitive. A file already sitting at the
// destination is moved aside into the trash before the rename; it is never
// overwritten or deleted.
package organizer
