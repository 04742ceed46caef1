package entry

// Session represents one capture run: the span between toggling capture on
// and the poller stopping (explicit stop, timeout, or capture limit).
type Session struct {
	// ID is a ULID that uniquely identifies this session
	ID string

	// DocumentPath is the timestamped document created when the session started
	DocumentPath string

	// StartedAt is the Unix timestamp when capturing was toggled on
	StartedAt int64

	// EndedAt is the Unix timestamp when the session finished (nullable while running)
	EndedAt *int64

	// StopReason records why the poller stopped: "stopped", "timeout" or "limit" (nullable)
	StopReason *string

	// CaptureCount is the number of accepted entries
	CaptureCount int
}

// Entry is one accepted capture, as appended to the session document.
type Entry struct {
	// ID is a ULID that uniquely identifies this entry
	ID string

	// SessionID links the entry to its Session
	SessionID string

	// SourceProcess is the foreground executable name at capture time (may be empty)
	SourceProcess string

	// SourceTag is the display label resolved from SourceProcess
	SourceTag string

	// Text is the sanitized captured text
	Text string

	// TextChars is the character count (runes, not bytes)
	TextChars int

	// CreatedAt is the Unix timestamp of acceptance
	CreatedAt int64
}

// Line returns the document line for this entry: "{tag} {text}".
func (e *Entry) Line() string {
	return FormatLine(e.SourceTag, e.Text)
}
