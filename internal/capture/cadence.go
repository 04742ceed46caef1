package capture

import "time"

// Poll intervals.
const (
	IdleInterval      = 5 * time.Second
	ManyEmptyInterval = 2 * time.Second
	FewEmptyInterval  = 1 * time.Second
	ActiveInterval    = 500 * time.Millisecond
	ErrorInterval     = 1 * time.Second

	// DefaultDebounce is the pause after a successful capture.
	DefaultDebounce = 1 * time.Second
)

// Empty-read thresholds.
const (
	manyEmptyReads = 5
	fewEmptyReads  = 2
)

// Cadence is the rule table that picks the pause before the next poll.
type Cadence struct {
	// Debounce is the pause after a capture. Zero means DefaultDebounce.
	Debounce time.Duration
}

// Next returns the pause after an empty read, given whether the user is idle
// and how many consecutive reads were empty before it. Idle wins over the
// empty count.
func (c Cadence) Next(idle bool, emptyReads int) time.Duration {
	switch {
	case idle:
		return IdleInterval
	case emptyReads >= manyEmptyReads:
		return ManyEmptyInterval
	case emptyReads >= fewEmptyReads:
		return FewEmptyInterval
	default:
		return ActiveInterval
	}
}

// AfterCapture returns the pause after a non-empty read.
func (c Cadence) AfterCapture() time.Duration {
	if c.Debounce > 0 {
		return c.Debounce
	}
	return DefaultDebounce
}

// AfterError returns the pause after a failed read.
func (c Cadence) AfterError() time.Duration {
	return ErrorInterval
}
