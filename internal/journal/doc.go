// Package journal records pipeline runs and the final state of every item
// they touched in a SQLite database under the state directory. The history
// command reads it back.
package journal
