package mediaitem

import (
	"path/filepath"
	"slices"
	"strings"
)

// FailPrefix marks a tag as a failure rather than a modification.
const FailPrefix = "Fail:"

// Modification tags recorded by the stages.
const (
	TagExtract  = "extract"
	TagRename   = "rename"
	TagConvert  = "convert"
	TagSubtitle = "subtitle"
	TagMerge    = "merge"
)

// Status summarises an item's final outcome for run counters.
type Status string

const (
	StatusUnchanged Status = "unchanged"
	StatusModified  Status = "modified"
	StatusFailed    Status = "failed"
	// StatusSkipped marks items rejected by the entry filter. They never reach
	// a stage and are reported apart from the failed count.
	StatusSkipped Status = "skipped"
)

// Item is the record a single file carries through the pipeline.
type Item struct {
	// Path is authoritative. Stages that move the file return an Item with
	// the new location.
	Path string
	// ParentDir is fixed at creation.
	ParentDir string
	// SourcePath is the path the item was discovered at.
	SourcePath string
	Modified   bool
	Failure    string
	Tags       []string
	Ripper     string
	Excluded   bool
}

// New creates an item for the file at path.
func New(path string) Item {
	cleaned := filepath.Clean(path)
	return Item{
		Path:       cleaned,
		ParentDir:  filepath.Dir(cleaned),
		SourcePath: cleaned,
	}
}

// Failed reports whether a failure has been recorded.
func (i Item) Failed() bool {
	return i.Failure != ""
}

// WithTag records tag. A tag starting with FailPrefix sets the failure reason
// instead of joining the modification log. Duplicate tags collapse, and
// nothing is recorded once the item has failed.
func (i Item) WithTag(tag string) Item {
	tag = strings.TrimSpace(tag)
	if tag == "" || i.Failed() {
		return i
	}
	if strings.HasPrefix(tag, FailPrefix) {
		reason := strings.TrimSpace(strings.TrimPrefix(tag, FailPrefix))
		if reason == "" {
			reason = "unspecified failure"
		}
		i.Failure = reason
		return i
	}
	if slices.Contains(i.Tags, tag) {
		return i
	}
	i.Tags = append(slices.Clone(i.Tags), tag)
	i.Modified = true
	return i
}

// WithFailure records reason as the item failure unless one already exists.
func (i Item) WithFailure(reason string) Item {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unspecified failure"
	}
	return i.WithTag(FailPrefix + " " + reason)
}

// Exclude fails the item at the entry filter and keeps it out of the
// failed/modified counters.
func (i Item) Exclude(reason string) Item {
	if i.Failed() {
		return i
	}
	i = i.WithFailure(reason)
	i.Excluded = true
	return i
}

// WithPath moves the item to path. ParentDir is left untouched.
func (i Item) WithPath(path string) Item {
	i.Path = filepath.Clean(path)
	return i
}

// WithRipper records the inferred release group.
func (i Item) WithRipper(ripper string) Item {
	i.Ripper = ripper
	return i
}

// HasTag reports whether tag was recorded.
func (i Item) HasTag(tag string) bool {
	return slices.Contains(i.Tags, tag)
}

// Name returns the file name relative to the item's parent directory.
func (i Item) Name() string {
	return filepath.Base(i.Path)
}

// Ext returns the lowercase extension without its leading dot.
func (i Item) Ext() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(i.Path), "."))
}

// Status classifies the item for run counters. Failure takes precedence over
// modification.
func (i Item) Status() Status {
	switch {
	case i.Excluded:
		return StatusSkipped
	case i.Failed():
		return StatusFailed
	case i.Modified:
		return StatusModified
	default:
		return StatusUnchanged
	}
}

// Message renders the item's log: the failure tag when failed, otherwise the
// modification tags in the order they were recorded.
func (i Item) Message() string {
	if i.Failed() {
		return FailPrefix + " " + i.Failure
	}
	return strings.Join(i.Tags, ", ")
}
