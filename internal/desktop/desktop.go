// Package desktop wraps the OS facilities the capture loop depends on:
// clipboard, synthetic key events, the foreground process and user idle time.
package desktop

import (
	"context"
	"time"
)

// IdleThreshold is how long without keyboard or mouse input counts as idle.
const IdleThreshold = 30 * time.Second

// Key is a virtual-key code.
type Key uint8

// Virtual-key codes used by the copy sequence.
const (
	KeyControl Key = 0x11
	KeyC       Key = 0x43
)

// Clipboard reads and writes plain text on the system clipboard.
type Clipboard interface {
	Read() (string, error)
	Write(text string) error
}

// Keyboard synthesizes key presses.
type Keyboard interface {
	KeyDown(k Key) error
	KeyUp(k Key) error
}

// Foreground reports the executable name (e.g. "winword.exe") of the process
// owning the foreground window. An empty name means it could not be determined.
type Foreground interface {
	ProcessName() (string, error)
}

// IdleClock reports time since the last user input.
type IdleClock interface {
	IdleTime() (time.Duration, error)
}

// Desktop bundles the platform bindings.
type Desktop struct {
	Clipboard  Clipboard
	Keyboard   Keyboard
	Foreground Foreground
	Idle       IdleClock

	// Supported is false when the platform has no key synthesis, in which
	// case nothing is ever selected.
	Supported bool
}

// UserIdle reports whether the user has been idle for at least IdleThreshold.
// Errors count as active so the poller keeps its normal cadence.
func UserIdle(c IdleClock) bool {
	if c == nil {
		return false
	}
	d, err := c.IdleTime()
	if err != nil {
		return false
	}
	return d >= IdleThreshold
}

// ForegroundProcess returns the foreground executable name, or "" on error.
func ForegroundProcess(f Foreground) string {
	if f == nil {
		return ""
	}
	name, err := f.ProcessName()
	if err != nil {
		return ""
	}
	return name
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// TextSource yields the currently selected text.
type TextSource interface {
	SelectedText(ctx context.Context) (string, error)
}

// Selection returns the text source for these bindings. Without key
// synthesis the clipboard is left alone and nothing is ever selected.
func (d *Desktop) Selection() TextSource {
	if !d.Supported {
		return emptySelection{}
	}
	return NewSelector(d.Clipboard, d.Keyboard)
}

type emptySelection struct{}

func (emptySelection) SelectedText(ctx context.Context) (string, error) {
	return "", ctx.Err()
}
