//go:build !windows

package desktop

import (
	"errors"
	"log/slog"
	"time"
)

var errUnsupported = errors.New("desktop automation is only supported on Windows")

// New returns bindings that keep the clipboard but cannot synthesize keys or
// inspect windows, so the capture loop runs but never sees a selection.
func New() *Desktop {
	slog.Warn("desktop automation unavailable on this platform; capture is a no-op")
	return &Desktop{
		Clipboard:  SystemClipboard{},
		Keyboard:   noopKeyboard{},
		Foreground: noopForeground{},
		Idle:       noopIdle{},
		Supported:  false,
	}
}

type noopKeyboard struct{}

func (noopKeyboard) KeyDown(Key) error { return nil }
func (noopKeyboard) KeyUp(Key) error   { return nil }

type noopForeground struct{}

func (noopForeground) ProcessName() (string, error) { return "", errUnsupported }

type noopIdle struct{}

func (noopIdle) IdleTime() (time.Duration, error) { return 0, errUnsupported }
