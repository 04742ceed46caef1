package capture

import (
	"context"
	"log/slog"
	"time"

	"github.com/hpungsan/textcap/internal/desktop"
	"github.com/hpungsan/textcap/internal/entry"
	"github.com/hpungsan/textcap/internal/errors"
	"github.com/hpungsan/textcap/internal/sourcetag"
)

// Document is the session document the sink writes to.
type Document interface {
	Path() string
	// AppendLine adds a line and saves the file.
	AppendLine(line string) error
	// AddLine adds a line without saving.
	AddLine(line string)
	Save() error
}

// Journal records sessions and entries for later listing and search.
type Journal interface {
	StartSession(ctx context.Context, documentPath string, startedAt time.Time) (string, error)
	RecordEntry(ctx context.Context, e *entry.Entry) error
	FinishSession(ctx context.Context, sessionID string, endedAt time.Time, reason string) error
}

// SinkOptions configures a Sink.
type SinkOptions struct {
	Admitter   *Admitter
	Tags       *sourcetag.Table
	Foreground desktop.Foreground
	Document   Document
	Journal    Journal
	Notifier   Notifier

	// SessionID is the journal session; empty disables journaling.
	SessionID string

	// AutoSave writes every accepted line to disk immediately. Otherwise
	// lines are held until Flush.
	AutoSave bool
}

// Sink admits candidates and persists the accepted ones. It is driven by a
// single goroutine, so document writes are serial.
type Sink struct {
	opts SinkOptions
	now  func() time.Time
}

// NewSink returns a sink. Nil Tags, Notifier and Admitter get defaults.
func NewSink(opts SinkOptions) *Sink {
	if opts.Tags == nil {
		opts.Tags = sourcetag.Defaults()
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Admitter == nil {
		opts.Admitter = NewAdmitter(1, 10000)
	}
	return &Sink{opts: opts, now: time.Now}
}

// Run handles candidates until in is closed.
func (s *Sink) Run(ctx context.Context, in <-chan string) {
	for text := range in {
		s.Handle(ctx, text)
	}
}

// Handle processes one candidate and returns the entry when it was accepted.
// A document failure is logged and notified; the admitter still counts the
// candidate as captured so it is not retried.
func (s *Sink) Handle(ctx context.Context, raw string) *entry.Entry {
	decision := s.opts.Admitter.Admit(raw)
	if decision != Accept {
		slog.Debug("candidate rejected", "reason", decision.String(), "chars", entry.CountChars(raw))
		return nil
	}

	text := entry.Sanitize(raw)
	if text == "" {
		return nil
	}

	process := desktop.ForegroundProcess(s.opts.Foreground)
	e := &entry.Entry{
		SessionID:     s.opts.SessionID,
		SourceProcess: process,
		SourceTag:     s.opts.Tags.Lookup(process),
		Text:          text,
		TextChars:     entry.CountChars(text),
		CreatedAt:     s.now().Unix(),
	}

	if err := s.write(e.Line()); err != nil {
		docErr := errors.NewDocument(s.documentPath(), err)
		slog.Error("failed to save capture", "error", docErr)
		s.opts.Notifier.Notify("Save failed", docErr.Message)
		return nil
	}

	if s.opts.Journal != nil && s.opts.SessionID != "" {
		if err := s.opts.Journal.RecordEntry(ctx, e); err != nil {
			slog.Warn("failed to journal capture", "session_id", s.opts.SessionID, "error", err)
		}
	}

	slog.Info("text captured",
		"source", e.SourceTag,
		"preview", entry.Truncate(e.Text, 50),
		"total", s.opts.Admitter.Accepted())
	return e
}

// Flush saves lines held back when AutoSave is off.
func (s *Sink) Flush() error {
	if s.opts.AutoSave || s.opts.Document == nil {
		return nil
	}
	if err := s.opts.Document.Save(); err != nil {
		return errors.NewDocument(s.documentPath(), err)
	}
	return nil
}

func (s *Sink) write(line string) error {
	if s.opts.Document == nil {
		return nil
	}
	if s.opts.AutoSave {
		return s.opts.Document.AppendLine(line)
	}
	s.opts.Document.AddLine(line)
	return nil
}

func (s *Sink) documentPath() string {
	if s.opts.Document == nil {
		return ""
	}
	return s.opts.Document.Path()
}
