package capture

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Notifier surfaces a message to the user. Implementations must not block
// for long; the sink calls it inline.
type Notifier interface {
	Notify(title, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(title, message string)

func (f NotifierFunc) Notify(title, message string) { f(title, message) }

// WriterNotifier prints notifications as "title: message" lines and logs them.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier returns a notifier printing to w.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (n *WriterNotifier) Notify(title, message string) {
	slog.Info("notification", "title", title, "message", message)
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, "%s: %s\n", title, message)
}

type nopNotifier struct{}

func (nopNotifier) Notify(title, message string) {}
