package capture

import (
	"sync"
	"time"

	"github.com/hpungsan/textcap/internal/entry"
)

// Cooldown is the minimum gap between two accepted captures.
const Cooldown = 2 * time.Second

// Decision is the outcome of an admission check.
type Decision int

const (
	Accept Decision = iota
	RejectDuplicate
	RejectLength
	RejectCooldown
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case RejectDuplicate:
		return "duplicate"
	case RejectLength:
		return "length"
	case RejectCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// Admitter decides which candidates become entries and remembers the last
// accepted one. Limits may be changed while a session runs.
type Admitter struct {
	mu       sync.Mutex
	min, max int
	lastText string
	lastTime time.Time
	accepted int

	now func() time.Time
}

// NewAdmitter returns an admitter accepting rune lengths in [min, max].
func NewAdmitter(min, max int) *Admitter {
	return &Admitter{min: min, max: max, now: time.Now}
}

// SetLimits replaces the length bounds.
func (a *Admitter) SetLimits(min, max int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.min, a.max = min, max
}

// Reset forgets the last accepted text and the accepted count.
func (a *Admitter) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastText = ""
	a.lastTime = time.Time{}
	a.accepted = 0
}

// Check applies the rules in order: duplicate of the last accepted text,
// length outside [min, max] (empty always fails), then within Cooldown of
// the last acceptance. It does not change state.
func (a *Admitter) Check(text string) Decision {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.checkLocked(text, a.now())
}

func (a *Admitter) checkLocked(text string, now time.Time) Decision {
	if a.accepted > 0 && text == a.lastText {
		return RejectDuplicate
	}
	n := entry.CountChars(text)
	if n == 0 || n < a.min || n > a.max {
		return RejectLength
	}
	if !a.lastTime.IsZero() && now.Sub(a.lastTime) <= Cooldown {
		return RejectCooldown
	}
	return Accept
}

// Admit checks text and, when accepted, records it as the last acceptance.
func (a *Admitter) Admit(text string) Decision {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	d := a.checkLocked(text, now)
	if d == Accept {
		a.lastText = text
		a.lastTime = now
		a.accepted++
	}
	return d
}

// Accepted returns how many candidates were accepted since the last Reset.
func (a *Admitter) Accepted() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.accepted
}
