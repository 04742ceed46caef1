package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hpungsan/textcap/internal/sourcetag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sinkFixture struct {
	sink     *Sink
	doc      *fakeDocument
	journal  *fakeJournal
	notifier *recordingNotifier
	clock    *fakeClock
}

func newSinkFixture(process string, autoSave bool) *sinkFixture {
	f := &sinkFixture{
		doc:      &fakeDocument{},
		journal:  &fakeJournal{},
		notifier: &recordingNotifier{},
		clock:    newFakeClock(),
	}
	f.sink = NewSink(SinkOptions{
		Admitter:   newTestAdmitter(f.clock, 1, 10000),
		Tags:       sourcetag.Defaults(),
		Foreground: fixedForeground(process),
		Document:   f.doc,
		Journal:    f.journal,
		Notifier:   f.notifier,
		SessionID:  "SESSION1",
		AutoSave:   autoSave,
	})
	f.sink.now = f.clock.Now
	return f
}

func TestSink_AcceptsAndAppendsTaggedLine(t *testing.T) {
	f := newSinkFixture("winword.exe", true)

	e := f.sink.Handle(context.Background(), "Hello world")
	require.NotNil(t, e)

	assert.Equal(t, []string{"[Word] Hello world"}, f.doc.saved)
	assert.Equal(t, "[Word]", e.SourceTag)
	assert.Equal(t, "winword.exe", e.SourceProcess)
	assert.Equal(t, 11, e.TextChars)

	require.Len(t, f.journal.entries, 1)
	assert.Equal(t, "SESSION1", f.journal.entries[0].SessionID)
}

func TestSink_DuplicateWithinOneSecondRejected(t *testing.T) {
	f := newSinkFixture("notepad.exe", true)

	require.NotNil(t, f.sink.Handle(context.Background(), "Hello world"))
	f.clock.Advance(900 * time.Millisecond)
	assert.Nil(t, f.sink.Handle(context.Background(), "Hello world"))

	assert.Equal(t, []string{"[Notepad] Hello world"}, f.doc.saved, "document unchanged by the duplicate")
}

func TestSink_SanitizesText(t *testing.T) {
	f := newSinkFixture("code.exe", true)

	f.sink.Handle(context.Background(), "  line one\r\n\r\n   line\ttwo  ")
	assert.Equal(t, []string{"[VS Code] line one line two"}, f.doc.saved)
}

func TestSink_UnknownAndUnlistedProcesses(t *testing.T) {
	f := newSinkFixture("", true)
	f.sink.Handle(context.Background(), "from nowhere")
	assert.Equal(t, []string{"[Unknown Source] from nowhere"}, f.doc.saved)

	g := newSinkFixture("slack.exe", true)
	g.sink.Handle(context.Background(), "from slack")
	assert.Equal(t, []string{"[slack.exe] from slack"}, g.doc.saved)
}

func TestSink_WhitespaceOnlyCandidateSkipped(t *testing.T) {
	f := newSinkFixture("notepad.exe", true)

	assert.Nil(t, f.sink.Handle(context.Background(), " \n\t "))
	assert.Empty(t, f.doc.saved)
	assert.Empty(t, f.journal.entries)
}

func TestSink_DocumentFailureNotifiesAndDrops(t *testing.T) {
	f := newSinkFixture("winword.exe", true)
	f.doc.failErr = errors.New("file locked by Word")

	assert.Nil(t, f.sink.Handle(context.Background(), "Hello world"))

	msgs := f.notifier.all()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "file locked by Word")
	assert.Empty(t, f.journal.entries, "dropped candidates are not journaled")

	// The failed candidate still counts as the last capture, so it is not retried
	f.doc.failErr = nil
	f.clock.Advance(5 * time.Second)
	assert.Nil(t, f.sink.Handle(context.Background(), "Hello world"))
}

func TestSink_JournalFailureIsNotFatal(t *testing.T) {
	f := newSinkFixture("winword.exe", true)
	f.journal.fail = true

	require.NotNil(t, f.sink.Handle(context.Background(), "still saved"))
	assert.Equal(t, []string{"[Word] still saved"}, f.doc.saved)
	assert.Empty(t, f.notifier.all())
}

func TestSink_AutoSaveOffHoldsLinesUntilFlush(t *testing.T) {
	f := newSinkFixture("winword.exe", false)

	f.sink.Handle(context.Background(), "held")
	assert.Empty(t, f.doc.saved)
	assert.Equal(t, []string{"[Word] held"}, f.doc.lines)

	require.NoError(t, f.sink.Flush())
	assert.Equal(t, []string{"[Word] held"}, f.doc.saved)
}

func TestSink_RunDrainsChannel(t *testing.T) {
	f := newSinkFixture("winword.exe", true)

	in := make(chan string, 3)
	in <- "first"
	in <- "first"
	in <- "second"
	close(in)

	// Advance the clock between candidates via the admitter's clock
	adm := f.sink.opts.Admitter
	calls := 0
	adm.now = func() time.Time {
		calls++
		f.clock.Advance(3 * time.Second)
		return f.clock.Now()
	}

	f.sink.Run(context.Background(), in)
	assert.Equal(t, []string{"[Word] first", "[Word] second"}, f.doc.saved)
	assert.Equal(t, 3, calls)
}
