// Package deps checks that the external binaries mediatool shells out to can
// be found, and whether they come from the updater-managed install.
package deps
