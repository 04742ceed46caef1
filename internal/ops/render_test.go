package ops

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderSessionMarkdown_GroupsRunsByTag(t *testing.T) {
	reason := "timeout"
	s := &GetSessionOutput{
		Session: SessionItem{ID: "01S", StartedAt: 1_700_000_000, StopReason: &reason},
		Entries: []EntryItem{
			{SourceTag: "[Word]", Text: "one"},
			{SourceTag: "[Word]", Text: "two"},
			{SourceTag: "[Chrome]", Text: "three"},
			{SourceTag: "[Word]", Text: "four"},
		},
	}

	md := RenderSessionMarkdown(s)

	assert.True(t, strings.HasPrefix(md, "# Text Capture Log\n\n"))
	assert.Contains(t, md, "stopped by timeout")
	assert.Equal(t, 2, strings.Count(md, "## \\[Word\\]"), "a new heading starts when the tag changes")
	assert.Equal(t, 1, strings.Count(md, "## \\[Chrome\\]"))
	assert.Contains(t, md, "\none\n\ntwo\n")
	assert.NotContains(t, md, "Showing the first entries only")
}

func TestRenderSessionMarkdown_Truncated(t *testing.T) {
	md := RenderSessionMarkdown(&GetSessionOutput{Truncated: true})
	assert.Contains(t, md, "Showing the first entries only")
}

func TestEscapeMarkdownLine(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain text", "plain text"},
		{"*bold* and _it_", `\*bold\* and \_it\_`},
		{"[link](x)", `\[link\](x)`},
		{"# not a heading", `\# not a heading`},
		{"- not a list", `\- not a list`},
		{"1. not a list", `1\. not a list`},
		{"2024 was fine", "2024 was fine"},
		{"<script>", `\<script\>`},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeMarkdownLine(tt.in), tt.in)
	}
}
