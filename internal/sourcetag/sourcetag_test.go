package sourcetag

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_PresentAndAbsent(t *testing.T) {
	table := Defaults()

	assert.Equal(t, "[VS Code]", table.Lookup("code.exe"))
	assert.Equal(t, "[slack.exe]", table.Lookup("slack.exe"))
	assert.Equal(t, UnknownSource, table.Lookup(""))
}

func TestDefaults_DuplicateKeysLastWriteWins(t *testing.T) {
	table := Defaults()

	assert.Equal(t, "[Google Chrome]", table.Lookup("chrome.exe"))
	assert.Equal(t, "[Microsoft Edge]", table.Lookup("msedge.exe"))
	assert.Equal(t, "[Mozilla Firefox]", table.Lookup("firefox.exe"))

	// 23 literal rows, three of them repeated keys.
	assert.Equal(t, len(defaultPairs)-3, table.Len())
}

func TestLookup_CaseSensitive(t *testing.T) {
	table := Defaults()

	assert.Equal(t, "[QQ]", table.Lookup("QQ.exe"))
	assert.Equal(t, "[qq.exe]", table.Lookup("qq.exe"))
}

func TestSet_ExtendsAndOverrides(t *testing.T) {
	table := Defaults()

	table.Set("slack.exe", "[Slack]")
	table.Set("code.exe", "[Code]")

	assert.Equal(t, "[Slack]", table.Lookup("slack.exe"))
	assert.Equal(t, "[Code]", table.Lookup("code.exe"))
}

func TestWithOverrides(t *testing.T) {
	table := WithOverrides(map[string]string{
		"chrome.exe":   "[Browser]",
		"":             "[ignored]",
		"obsidian.exe": "[Obsidian]",
	})

	assert.Equal(t, "[Browser]", table.Lookup("chrome.exe"))
	assert.Equal(t, "[Obsidian]", table.Lookup("obsidian.exe"))
	assert.Equal(t, UnknownSource, table.Lookup(""))
}

func TestReplace_DropsPreviousOverrides(t *testing.T) {
	table := WithOverrides(map[string]string{"slack.exe": "[Slack]"})
	table.Replace(map[string]string{"zoom.exe": "[Meeting]"})

	assert.Equal(t, "[slack.exe]", table.Lookup("slack.exe"))
	assert.Equal(t, "[Meeting]", table.Lookup("zoom.exe"))
	assert.Equal(t, "[Word]", table.Lookup("winword.exe"))
}

func TestEntries_Sorted(t *testing.T) {
	table := New()
	table.Set("b.exe", "[B]")
	table.Set("a.exe", "[A]")

	entries := table.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "a.exe", entries[0].Process)
	assert.Equal(t, "b.exe", entries[1].Process)
}

func TestTable_ConcurrentAccess(t *testing.T) {
	table := Defaults()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			table.Set("slack.exe", "[Slack]")
		}()
		go func() {
			defer wg.Done()
			_ = table.Lookup("slack.exe")
		}()
	}
	wg.Wait()

	assert.Equal(t, "[Slack]", table.Lookup("slack.exe"))
}
