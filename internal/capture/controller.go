package capture

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/hpungsan/textcap/internal/config"
	"github.com/hpungsan/textcap/internal/desktop"
	"github.com/hpungsan/textcap/internal/document"
	"github.com/hpungsan/textcap/internal/errors"
	"github.com/hpungsan/textcap/internal/sourcetag"
)

const notifyTitle = "Text Capture"

// ControllerOptions wires a Controller.
type ControllerOptions struct {
	Config  *config.Config
	BaseDir string
	Desktop *desktop.Desktop
	Tags    *sourcetag.Table

	// Journal is optional.
	Journal  Journal
	Notifier Notifier
}

// SessionInfo describes a session that has just started.
type SessionInfo struct {
	SessionID    string    `json:"session_id,omitempty"`
	DocumentPath string    `json:"document_path"`
	StartedAt    time.Time `json:"started_at"`
	Timeout      string    `json:"timeout"`
	MaxCaptures  int       `json:"max_captures"`
}

// Summary describes a finished session.
type Summary struct {
	SessionID    string     `json:"session_id,omitempty"`
	DocumentPath string     `json:"document_path"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      time.Time  `json:"ended_at"`
	Reason       StopReason `json:"reason"`
	Captured     int        `json:"captured"`
	Accepted     int        `json:"accepted"`
	SavedTo      string     `json:"saved_to,omitempty"`
}

// Controller is the idle/capturing toggle. It owns at most one session.
type Controller struct {
	opts     ControllerOptions
	admitter *Admitter

	mu      sync.Mutex
	cfg     *config.Config
	current *session

	now func() time.Time
	// newPoller is replaced in tests to control timing.
	newPoller func(src desktop.TextSource, opts PollerOptions) *Poller
}

type session struct {
	info   SessionInfo
	doc    *document.Document
	cancel context.CancelFunc
	done   chan struct{}

	summary Summary
}

// NewController returns an idle controller.
func NewController(opts ControllerOptions) *Controller {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if opts.Tags == nil {
		opts.Tags = sourcetag.WithOverrides(cfg.TextSourceTags)
	}
	if opts.Desktop == nil {
		opts.Desktop = desktop.New()
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	return &Controller{
		opts:      opts,
		admitter:  NewAdmitter(cfg.MinTextLength, cfg.MaxTextLength),
		cfg:       cfg.Clone(),
		now:       time.Now,
		newPoller: NewPoller,
	}
}

// ApplyConfig updates settings. Length limits and source tags take effect
// immediately; timing settings apply from the next session.
func (c *Controller) ApplyConfig(cfg *config.Config) {
	c.mu.Lock()
	c.cfg = cfg.Clone()
	c.mu.Unlock()

	c.admitter.SetLimits(cfg.MinTextLength, cfg.MaxTextLength)
	c.opts.Tags.Replace(cfg.TextSourceTags)
}

// Capturing reports whether a session is running.
func (c *Controller) Capturing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil && !isClosed(c.current.done)
}

// Done returns a channel closed when the current session ends on its own or
// is stopped. It is nil when idle.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	return c.current.done
}

// Start begins a session: it resets state, creates a new timestamped
// document and journal session, and launches the poller and sink.
// A document failure is notified and leaves the controller idle.
func (c *Controller) Start(ctx context.Context) (*SessionInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		if !isClosed(c.current.done) {
			return nil, errors.NewConflict("capture is already running")
		}
		c.current = nil
	}

	cfg := c.cfg
	now := c.now()
	path := filepath.Join(cfg.DocumentDirOrDefault(c.opts.BaseDir), document.FileName(now, cfg.DocumentFormat))

	doc, err := document.CreateUnique(path)
	if err != nil {
		docErr := errors.NewDocument(path, err)
		slog.Error("failed to create capture document", "error", docErr)
		c.alert(notifyTitle, "Could not create document: "+docErr.Message)
		return nil, docErr
	}
	path = doc.Path()

	var sessionID string
	if c.opts.Journal != nil {
		sessionID, err = c.opts.Journal.StartSession(ctx, path, now)
		if err != nil {
			slog.Warn("failed to journal session start", "error", err)
			sessionID = ""
		}
	}

	c.admitter.Reset()
	c.admitter.SetLimits(cfg.MinTextLength, cfg.MaxTextLength)

	// The session outlives the caller's ctx; Stop cancels it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &session{
		info: SessionInfo{
			SessionID:    sessionID,
			DocumentPath: path,
			StartedAt:    now,
			Timeout:      cfg.SessionTimeout().String(),
			MaxCaptures:  cfg.MaxCaptures,
		},
		doc:    doc,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	idle := c.opts.Desktop.Idle
	poller := c.newPoller(c.opts.Desktop.Selection(), PollerOptions{
		Cadence:     Cadence{Debounce: cfg.Interval()},
		Timeout:     cfg.SessionTimeout(),
		MaxCaptures: cfg.MaxCaptures,
		Idle:        func() bool { return desktop.UserIdle(idle) },
	})
	sink := NewSink(SinkOptions{
		Admitter:   c.admitter,
		Tags:       c.opts.Tags,
		Foreground: c.opts.Desktop.Foreground,
		Document:   doc,
		Journal:    c.opts.Journal,
		Notifier:   c.opts.Notifier,
		SessionID:  sessionID,
		AutoSave:   cfg.AutoSaveEnabled(),
	})

	c.current = s
	go c.runSession(runCtx, s, poller, sink)

	slog.Info("capture started",
		"document", path,
		"session_id", sessionID,
		"timeout", cfg.SessionTimeout(),
		"max_captures", cfg.MaxCaptures)
	c.notify(cfg, notifyTitle, fmt.Sprintf("Capture started; stops after %s or %d captures",
		cfg.SessionTimeout(), cfg.MaxCaptures))

	info := s.info
	return &info, nil
}

func (c *Controller) runSession(ctx context.Context, s *session, poller *Poller, sink *Sink) {
	defer s.cancel()

	candidates := make(chan string, 16)
	sinkDone := make(chan struct{})
	go func() {
		defer close(sinkDone)
		// Candidates queued before a stop are still journaled.
		sink.Run(context.WithoutCancel(ctx), candidates)
	}()

	reason := poller.Run(ctx, candidates)
	<-sinkDone

	if err := sink.Flush(); err != nil {
		slog.Error("failed to save capture document", "error", err)
	}

	ended := c.now()
	if c.opts.Journal != nil && s.info.SessionID != "" {
		// Recorded even when the session was cancelled.
		if err := c.opts.Journal.FinishSession(context.WithoutCancel(ctx), s.info.SessionID, ended, string(reason)); err != nil {
			slog.Warn("failed to journal session end", "session_id", s.info.SessionID, "error", err)
		}
	}

	s.summary = Summary{
		SessionID:    s.info.SessionID,
		DocumentPath: s.info.DocumentPath,
		StartedAt:    s.info.StartedAt,
		EndedAt:      ended,
		Reason:       reason,
		Captured:     poller.State().Captures,
		Accepted:     c.admitter.Accepted(),
	}
	slog.Info("capture stopped",
		"reason", reason,
		"captured", s.summary.Captured,
		"accepted", s.summary.Accepted,
		"document", s.info.DocumentPath)
	close(s.done)
}

// Stop ends the current session (or collects one that already ended on its
// own), waits for pending candidates to be written and, when saveTo is set,
// copies the captured lines to saveTo.
func (c *Controller) Stop(saveTo string) (*Summary, error) {
	c.mu.Lock()
	s := c.current
	c.current = nil
	cfg := c.cfg
	c.mu.Unlock()

	if s == nil {
		return nil, errors.NewInvalidRequest("capture is not running")
	}

	s.cancel()
	<-s.done
	summary := s.summary

	if summary.Accepted == 0 {
		c.notify(cfg, notifyTitle, "Nothing was captured")
		return &summary, nil
	}

	if saveTo == "" {
		c.notify(cfg, notifyTitle, fmt.Sprintf("Captured %d texts to %s", summary.Accepted, summary.DocumentPath))
		return &summary, nil
	}

	if _, err := s.doc.CopyTo(saveTo); err != nil {
		if stderrors.Is(err, document.ErrSamePath) {
			c.notify(cfg, notifyTitle, "Document already saved at "+saveTo)
			return &summary, nil
		}
		docErr := errors.NewDocument(saveTo, err)
		slog.Error("failed to save document copy", "error", docErr)
		c.alert(notifyTitle, "Save failed: "+docErr.Message)
		return &summary, docErr
	}

	summary.SavedTo = saveTo
	c.notify(cfg, notifyTitle, "Document saved to "+saveTo)
	return &summary, nil
}

// Toggle stops the current session or starts a new one. started reports
// which. A session that already ended on its own is collected with saveTo
// exactly like a running one, and no new session starts on that call.
func (c *Controller) Toggle(ctx context.Context, saveTo string) (started bool, info *SessionInfo, summary *Summary, err error) {
	c.mu.Lock()
	active := c.current != nil
	c.mu.Unlock()

	if active {
		summary, err = c.Stop(saveTo)
		return false, nil, summary, err
	}

	info, err = c.Start(ctx)
	return err == nil, info, nil, err
}

func (c *Controller) notifier(cfg *config.Config) Notifier {
	if !cfg.NotificationsEnabled() {
		return nopNotifier{}
	}
	return c.opts.Notifier
}

func (c *Controller) notify(cfg *config.Config, title, message string) {
	c.notifier(cfg).Notify(title, message)
}

// alert reports a failure. Failures are shown even with notifications off.
func (c *Controller) alert(title, message string) {
	c.opts.Notifier.Notify(title, message)
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
