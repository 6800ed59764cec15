// Package mediaitem defines the unit of work threaded through the stage
// pipeline.
//
// Items are values: every mutation returns a new Item so a stage can be a pure
// transformation from one state to the next. The failure reason is sticky and
// the first failure wins; once an item has failed, later tags are ignored and
// the pipeline stops invoking stages for it.
package mediaitem
