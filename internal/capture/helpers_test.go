package capture

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hpungsan/textcap/internal/entry"
)

// fakeClock is a manually advanced clock shared by the poller and admitter.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// scriptedSource returns reads in order, then empty strings.
type scriptedSource struct {
	mu    sync.Mutex
	reads []string
	errs  map[int]error
	calls int
}

func (s *scriptedSource) SelectedText(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if err := s.errs[i]; err != nil {
		return "", err
	}
	if i < len(s.reads) {
		return s.reads[i], nil
	}
	return "", ctx.Err()
}

// fakeDocument records lines in memory.
type fakeDocument struct {
	mu      sync.Mutex
	lines   []string
	saved   []string
	failErr error
}

func (d *fakeDocument) Path() string { return "session.docx" }

func (d *fakeDocument) AppendLine(line string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failErr != nil {
		return d.failErr
	}
	d.lines = append(d.lines, line)
	d.saved = append([]string(nil), d.lines...)
	return nil
}

func (d *fakeDocument) AddLine(line string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lines = append(d.lines, line)
}

func (d *fakeDocument) Save() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failErr != nil {
		return d.failErr
	}
	d.saved = append([]string(nil), d.lines...)
	return nil
}

// fakeJournal records calls.
type fakeJournal struct {
	mu       sync.Mutex
	entries  []*entry.Entry
	finished map[string]string
	fail     bool
}

func (j *fakeJournal) StartSession(ctx context.Context, documentPath string, startedAt time.Time) (string, error) {
	if j.fail {
		return "", errors.New("journal down")
	}
	return "SESSION1", nil
}

func (j *fakeJournal) RecordEntry(ctx context.Context, e *entry.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.fail {
		return errors.New("journal down")
	}
	j.entries = append(j.entries, e)
	return nil
}

func (j *fakeJournal) FinishSession(ctx context.Context, sessionID string, endedAt time.Time, reason string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.finished == nil {
		j.finished = make(map[string]string)
	}
	j.finished[sessionID] = reason
	return nil
}

// recordingNotifier collects notifications.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(title, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

type fixedForeground string

func (f fixedForeground) ProcessName() (string, error) {
	if f == "" {
		return "", errors.New("no window")
	}
	return string(f), nil
}
