package entry

import (
	"strings"
	"unicode/utf8"
)

// Sanitize cleans captured text for persistence:
// 1. Trim leading/trailing whitespace
// 2. Drop blank lines
// 3. Collapse all internal whitespace (including line breaks) to single spaces
//
// Sanitize is idempotent.
func Sanitize(s string) string {
	// Fields splits on any whitespace run, so blank lines and indentation
	// disappear along with repeated spaces.
	return strings.Join(strings.Fields(s), " ")
}

// CountChars returns the character count as runes (not bytes).
func CountChars(text string) int {
	return utf8.RuneCountInString(text)
}

// Truncate shortens text to at most maxChars runes, appending "..." when cut.
// Used for log previews.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxChars]) + "..."
}

// FormatLine joins a source tag and text the way they appear in the document.
// An empty tag yields the bare text.
func FormatLine(tag, text string) string {
	if tag == "" {
		return text
	}
	return tag + " " + text
}
