// Package capture runs a capture session: a poller that reads the current
// selection at an adaptive cadence, and a sink that admits, tags and persists
// candidates. The two communicate over a channel.
package capture

import (
	"context"
	"log/slog"
	"time"

	"github.com/hpungsan/textcap/internal/desktop"
	"github.com/hpungsan/textcap/internal/entry"
)

// StopReason says why a poller stopped.
type StopReason string

const (
	StopStopped StopReason = "stopped"
	StopTimeout StopReason = "timeout"
	StopLimit   StopReason = "limit"
)

// Session defaults.
const (
	DefaultTimeout     = 300 * time.Second
	DefaultMaxCaptures = 10000
)

// PollerOptions configures a Poller. Zero values take the defaults.
type PollerOptions struct {
	Cadence     Cadence
	Timeout     time.Duration
	MaxCaptures int

	// Idle reports whether the user is idle. Nil means always active.
	Idle func() bool
}

// Poller repeatedly reads the selection and emits non-empty reads.
type Poller struct {
	source      desktop.TextSource
	cadence     Cadence
	timeout     time.Duration
	maxCaptures int
	idle        func() bool

	state State

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewPoller returns a poller over source.
func NewPoller(source desktop.TextSource, opts PollerOptions) *Poller {
	p := &Poller{
		source:      source,
		cadence:     opts.Cadence,
		timeout:     opts.Timeout,
		maxCaptures: opts.MaxCaptures,
		idle:        opts.Idle,
		now:         time.Now,
		sleep:       sleepCtx,
	}
	if p.timeout <= 0 {
		p.timeout = DefaultTimeout
	}
	if p.maxCaptures <= 0 {
		p.maxCaptures = DefaultMaxCaptures
	}
	if p.idle == nil {
		p.idle = func() bool { return false }
	}
	return p
}

// State returns the poller's counters.
func (p *Poller) State() StateSnapshot {
	return p.state.Snapshot()
}

// Run polls until ctx is cancelled, the timeout elapses or MaxCaptures
// candidates have been emitted. Each non-empty read is sent on out exactly
// once. Run closes out before returning.
func (p *Poller) Run(ctx context.Context, out chan<- string) StopReason {
	defer close(out)

	start := p.now()
	p.state.Reset(start)

	for {
		if ctx.Err() != nil {
			return StopStopped
		}
		if p.now().Sub(start) >= p.timeout {
			return StopTimeout
		}
		if p.state.Snapshot().Captures >= p.maxCaptures {
			return StopLimit
		}

		// The pause for an empty read is decided before reading, from the
		// empty count so far.
		pause := p.cadence.Next(p.idle(), p.state.Snapshot().EmptyReads)

		text, err := p.source.SelectedText(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return StopStopped
			}
			slog.Error("capture read failed", "error", err)
			pause = p.cadence.AfterError()

		case text != "":
			select {
			case out <- text:
			case <-ctx.Done():
				return StopStopped
			}
			p.state.recordCapture()
			slog.Debug("candidate captured", "preview", entry.Truncate(text, 50))
			pause = p.cadence.AfterCapture()

		default:
			p.state.recordEmpty()
		}

		if err := p.sleep(ctx, pause); err != nil {
			return StopStopped
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
