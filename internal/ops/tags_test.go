package ops

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/textcap/internal/sourcetag"
)

func TestTags_TableAndUsage(t *testing.T) {
	database := openTestDB(t)
	base := time.Unix(1_700_000_000, 0)
	seedSession(t, database, base, "[Word]", "a", "b")
	seedSession(t, database, base.Add(time.Hour), "[Notepad]", "c")

	table := sourcetag.WithOverrides(map[string]string{"slack.exe": "[Slack]"})

	out, err := Tags(context.Background(), database, table)
	require.NoError(t, err)

	assert.Len(t, out.Table, table.Len())
	assert.Contains(t, out.Table, sourcetag.Entry{Process: "slack.exe", Label: "[Slack]"})
	assert.Equal(t, []TagUsage{{Tag: "[Word]", Entries: 2}, {Tag: "[Notepad]", Entries: 1}}, out.Usage)
}

func TestTags_NoDatabase(t *testing.T) {
	out, err := Tags(context.Background(), nil, sourcetag.Defaults())
	require.NoError(t, err)
	assert.NotEmpty(t, out.Table)
	assert.NotNil(t, out.Usage)
	assert.Empty(t, out.Usage)
}
