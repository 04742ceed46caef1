package ops

import (
	"strings"
	"time"

	"github.com/hpungsan/textcap/internal/document"
)

// markdownEscaper backslash-escapes characters that would otherwise turn
// captured text into markup.
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", `*`, `\*`, `_`, `\_`,
	`[`, `\[`, `]`, `\]`, `<`, `\<`, `>`, `\>`,
	`#`, `\#`, `|`, `\|`, `~`, `\~`,
)

// RenderSessionMarkdown renders a session as Markdown: the document heading,
// a summary line, then the captured text grouped into runs that share a
// source tag, e.g.
//
//	## [Word]
//
//	first capture
//
//	second capture
func RenderSessionMarkdown(s *GetSessionOutput) string {
	var sb strings.Builder
	sb.WriteString("# ")
	sb.WriteString(document.Heading)
	sb.WriteString("\n\n")

	started := time.Unix(s.Session.StartedAt, 0).Format("2006-01-02 15:04:05")
	sb.WriteString("Started ")
	sb.WriteString(started)
	if s.Session.StopReason != nil {
		sb.WriteString(", stopped by ")
		sb.WriteString(*s.Session.StopReason)
	}
	sb.WriteString("\n")

	lastTag := ""
	for i, e := range s.Entries {
		if i == 0 || e.SourceTag != lastTag {
			sb.WriteString("\n## ")
			sb.WriteString(markdownEscaper.Replace(e.SourceTag))
			sb.WriteString("\n")
			lastTag = e.SourceTag
		}
		sb.WriteString("\n")
		sb.WriteString(escapeMarkdownLine(e.Text))
		sb.WriteString("\n")
	}

	if s.Truncated {
		sb.WriteString("\n---\n\n_Showing the first entries only._\n")
	}
	return sb.String()
}

// escapeMarkdownLine escapes inline markup plus the block markers that only
// matter at the start of a line (lists, numbered lists, rules).
func escapeMarkdownLine(text string) string {
	text = markdownEscaper.Replace(text)
	if text == "" {
		return text
	}
	switch text[0] {
	case '-', '+', '=':
		return `\` + text
	}
	// "1. item" would become an ordered list.
	if i := strings.IndexFunc(text, func(r rune) bool { return r < '0' || r > '9' }); i > 0 && (text[i] == '.' || text[i] == ')') {
		return text[:i] + `\` + text[i:]
	}
	return text
}
