package workflow

import (
	"time"

	"mediatool/internal/mediaitem"
)

// Failure names one failed or skipped item.
type Failure struct {
	Path   string
	Reason string
}

// Summary holds the end-of-run counters. Each item lands in exactly one
// counter.
type Summary struct {
	Failed    int
	Modified  int
	Unchanged int
	Skipped   int
	Failures  []Failure
	Duration  time.Duration
}

// Total returns the number of items counted.
func (s Summary) Total() int {
	return s.Failed + s.Modified + s.Unchanged + s.Skipped
}

// Add counts item by its final status.
func (s *Summary) Add(item mediaitem.Item) {
	switch item.Status() {
	case mediaitem.StatusFailed:
		s.Failed++
		s.Failures = append(s.Failures, Failure{Path: item.Path, Reason: item.Failure})
	case mediaitem.StatusSkipped:
		s.Skipped++
		s.Failures = append(s.Failures, Failure{Path: item.Path, Reason: item.Failure})
	case mediaitem.StatusModified:
		s.Modified++
	default:
		s.Unchanged++
	}
}
