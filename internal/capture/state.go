package capture

import (
	"sync"
	"time"
)

// State is the poller's running bookkeeping for one session. It is written
// only by the poller goroutine; readers get a snapshot.
type State struct {
	mu         sync.Mutex
	startedAt  time.Time
	captures   int
	emptyReads int
}

// StateSnapshot is a point-in-time copy of State.
type StateSnapshot struct {
	StartedAt  time.Time `json:"started_at"`
	Captures   int       `json:"captures"`
	EmptyReads int       `json:"empty_reads"`
}

// Reset clears the counters and marks the session start.
func (s *State) Reset(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startedAt = now
	s.captures = 0
	s.emptyReads = 0
}

func (s *State) recordCapture() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captures++
	s.emptyReads = 0
}

func (s *State) recordEmpty() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emptyReads++
	return s.emptyReads
}

// Snapshot returns a copy of the counters.
func (s *State) Snapshot() StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StateSnapshot{StartedAt: s.startedAt, Captures: s.captures, EmptyReads: s.emptyReads}
}
