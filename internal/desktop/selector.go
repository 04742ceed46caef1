package desktop

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Copy sequence timing.
const (
	ctrlDownDelay = 20 * time.Millisecond
	keyHoldDelay  = 100 * time.Millisecond
	keyUpDelay    = 20 * time.Millisecond
	settleDelay   = 50 * time.Millisecond
)

// Selector reads the current text selection by driving a simulated copy
// through the clipboard. It is inherently racy against concurrent clipboard
// use by the user.
type Selector struct {
	clipboard Clipboard
	keyboard  Keyboard

	sleep func(context.Context, time.Duration) error
}

// NewSelector returns a Selector over the given clipboard and keyboard.
func NewSelector(c Clipboard, k Keyboard) *Selector {
	return &Selector{clipboard: c, keyboard: k, sleep: sleepCtx}
}

// SelectedText snapshots the clipboard, clears it, presses Ctrl+C, reads the
// result and restores the snapshot when it was non-empty. A whitespace-only
// result is reported as "".
func (s *Selector) SelectedText(ctx context.Context) (string, error) {
	original, err := s.clipboard.Read()
	if err != nil {
		// An empty or non-text clipboard reads as an error on some platforms.
		slog.Debug("clipboard snapshot failed", "error", err)
		original = ""
	}

	if err := s.clipboard.Write(""); err != nil {
		return "", fmt.Errorf("clear clipboard: %w", err)
	}

	err = s.pressCopy(ctx)
	if err == nil {
		// Give the target application time to publish the copied text.
		err = s.sleep(ctx, settleDelay)
	}
	if err != nil {
		s.restore(original)
		return "", err
	}

	text, err := s.clipboard.Read()
	if err != nil {
		slog.Debug("clipboard read after copy failed", "error", err)
		text = ""
	}

	s.restore(original)

	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	return text, nil
}

func (s *Selector) pressCopy(ctx context.Context) error {
	if err := s.keyboard.KeyDown(KeyControl); err != nil {
		return fmt.Errorf("press ctrl: %w", err)
	}
	// Ctrl is released on every path so a failure never leaves it held.
	defer func() {
		if err := s.keyboard.KeyUp(KeyControl); err != nil {
			slog.Warn("release ctrl failed", "error", err)
		}
	}()

	if err := s.sleep(ctx, ctrlDownDelay); err != nil {
		return err
	}
	if err := s.keyboard.KeyDown(KeyC); err != nil {
		return fmt.Errorf("press c: %w", err)
	}
	if err := s.sleep(ctx, keyHoldDelay); err != nil {
		s.keyboard.KeyUp(KeyC)
		return err
	}
	if err := s.keyboard.KeyUp(KeyC); err != nil {
		return fmt.Errorf("release c: %w", err)
	}
	return s.sleep(ctx, keyUpDelay)
}

func (s *Selector) restore(original string) {
	if original == "" {
		return
	}
	if err := s.clipboard.Write(original); err != nil {
		slog.Warn("clipboard restore failed", "error", err)
	}
}
