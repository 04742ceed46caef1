package ops

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/textcap/internal/errors"
)

func TestListSessions_NewestFirst(t *testing.T) {
	database := openTestDB(t)
	base := time.Unix(1_700_000_000, 0)

	older := seedSession(t, database, base, "[Word]", "a")
	newer := seedSession(t, database, base.Add(time.Hour), "[Word]", "b", "c")

	out, err := ListSessions(context.Background(), database, ListSessionsInput{})
	require.NoError(t, err)

	require.Len(t, out.Items, 2)
	assert.Equal(t, newer, out.Items[0].ID)
	assert.Equal(t, older, out.Items[1].ID)
	assert.Equal(t, 2, out.Items[0].CaptureCount)
	assert.False(t, out.Items[0].Running)
	assert.Equal(t, "started_at_desc", out.Sort)
	assert.Equal(t, 2, out.Pagination.Total)
	assert.False(t, out.Pagination.HasMore)
}

func TestListSessions_EmptyIsNotNil(t *testing.T) {
	database := openTestDB(t)

	out, err := ListSessions(context.Background(), database, ListSessionsInput{})
	require.NoError(t, err)
	assert.NotNil(t, out.Items)
	assert.Empty(t, out.Items)
}

func TestListSessions_Pagination(t *testing.T) {
	database := openTestDB(t)
	base := time.Unix(1_700_000_000, 0)
	for i := range 3 {
		seedSession(t, database, base.Add(time.Duration(i)*time.Hour), "[Word]")
	}

	out, err := ListSessions(context.Background(), database, ListSessionsInput{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, out.Items, 2)
	assert.True(t, out.Pagination.HasMore)

	out, err = ListSessions(context.Background(), database, ListSessionsInput{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, out.Items, 1)
	assert.False(t, out.Pagination.HasMore)
}

func TestGetSession_WithEntries(t *testing.T) {
	database := openTestDB(t)
	id := seedSession(t, database, time.Unix(1_700_000_000, 0), "[Word]", "first", "second")

	out, err := GetSession(context.Background(), database, " "+id+" ")
	require.NoError(t, err)

	assert.Equal(t, id, out.Session.ID)
	require.Len(t, out.Entries, 2)
	assert.Equal(t, "[Word] first", out.Entries[0].Line)
	assert.Equal(t, "[Word] second", out.Entries[1].Line)
	assert.False(t, out.Truncated)
}

func TestGetSession_Errors(t *testing.T) {
	database := openTestDB(t)

	_, err := GetSession(context.Background(), database, "")
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = GetSession(context.Background(), database, "01NOPE")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestListEntries_Filters(t *testing.T) {
	database := openTestDB(t)
	base := time.Unix(1_700_000_000, 0)
	first := seedSession(t, database, base, "[Word]", "w1", "w2")
	seedSession(t, database, base.Add(time.Hour), "[Notepad]", "n1")

	out, err := ListEntries(context.Background(), database, ListEntriesInput{})
	require.NoError(t, err)
	assert.Len(t, out.Items, 3)
	assert.Equal(t, "w1", out.Items[0].Text, "capture order")
	assert.Equal(t, "created_at_asc", out.Sort)

	out, err = ListEntries(context.Background(), database, ListEntriesInput{SessionID: &first})
	require.NoError(t, err)
	assert.Len(t, out.Items, 2)

	out, err = ListEntries(context.Background(), database, ListEntriesInput{SourceTag: strPtr("[Notepad]")})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "n1", out.Items[0].Text)

	// Blank filters are ignored
	out, err = ListEntries(context.Background(), database, ListEntriesInput{SourceTag: strPtr("  ")})
	require.NoError(t, err)
	assert.Len(t, out.Items, 3)
}

func TestListEntries_UnknownSession(t *testing.T) {
	database := openTestDB(t)

	_, err := ListEntries(context.Background(), database, ListEntriesInput{SessionID: strPtr("01NOPE")})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
