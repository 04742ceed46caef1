package ops

import (
	"context"
	"database/sql"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/textcap/internal/db"
	"github.com/hpungsan/textcap/internal/errors"
)

// Search limits
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
	MaxQueryLength     = db.MaxSearchQueryChars
	MaxSnippetChars    = 300

	// snippetContext is the number of bytes kept on each side of the match.
	snippetContext = 80
)

// Highlight markers placed around the match before escaping.
const (
	openMarker  = "[[[B]]]"
	closeMarker = "[[[/B]]]"
)

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	Query     string  // required
	SessionID *string // optional filter
	SourceTag *string // optional filter
	Limit     int     // default: 20, max: 100
	Offset    int     // default: 0
}

// SearchResultItem wraps an EntryItem with a match snippet.
type SearchResultItem struct {
	EntryItem
	// Snippet is HTML-safe: captured text is escaped; only <b>...</b>
	// highlight tags are present.
	Snippet string `json:"snippet"`
}

// SearchOutput contains the result of the Search operation.
type SearchOutput struct {
	Items      []SearchResultItem `json:"items"`
	Pagination Pagination         `json:"pagination"`
	Sort       string             `json:"sort"` // "created_at_desc"
}

// Search finds captured entries containing the query, newest first.
// Matching is a substring match, case-insensitive for ASCII.
func Search(ctx context.Context, database *sql.DB, input SearchInput) (*SearchOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, errors.NewInvalidRequest("query is required")
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("query exceeds maximum length of %d characters", MaxQueryLength))
	}

	filters := db.EntryFilters{
		SessionID: cleanOptionalString(input.SessionID),
		SourceTag: cleanOptionalString(input.SourceTag),
	}

	limit, offset := clampPage(input.Limit, input.Offset, DefaultSearchLimit, MaxSearchLimit)

	results, total, err := db.SearchEntries(ctx, database, query, filters, limit, offset)
	if err != nil {
		return nil, err
	}

	items := make([]SearchResultItem, len(results))
	for i := range results {
		// 1. Mark the match in a window of the text
		// 2. Escape user content; convert markers to <b> tags
		// 3. Truncate (preserves UTF-8 and closes unclosed tags)
		snippet := markMatch(results[i].Text, query, snippetContext)
		snippet = escapeSnippetHTML(snippet)
		snippet = truncateSnippet(snippet, MaxSnippetChars)

		items[i] = SearchResultItem{
			EntryItem: toEntryItem(&results[i]),
			Snippet:   snippet,
		}
	}

	return &SearchOutput{
		Items:      items,
		Pagination: newPagination(limit, offset, len(items), total),
		Sort:       "created_at_desc",
	}, nil
}

// markMatch wraps the first occurrence of query in text with highlight
// markers and trims text to about window bytes either side of it.
// Returns text unmarked (but trimmed) when there is no match.
func markMatch(text, query string, window int) string {
	idx := strings.Index(asciiLower(text), asciiLower(query))
	if idx < 0 {
		return clipRunes(text, 0, min(len(text), 2*window))
	}
	end := idx + len(query)

	start := max(idx-window, 0)
	stop := min(end+window, len(text))

	var b strings.Builder
	if start > 0 {
		b.WriteString("...")
	}
	b.WriteString(clipRunes(text, start, idx))
	b.WriteString(openMarker)
	b.WriteString(text[idx:end])
	b.WriteString(closeMarker)
	b.WriteString(clipRunes(text, end, stop))
	if stop < len(text) {
		b.WriteString("...")
	}
	return b.String()
}

// clipRunes returns text[start:stop] with both ends moved inward to rune boundaries.
func clipRunes(text string, start, stop int) string {
	for start < stop && !utf8.RuneStart(text[start]) {
		start++
	}
	for stop < len(text) && stop > start && !utf8.RuneStart(text[stop]) {
		stop--
	}
	return text[start:stop]
}

// asciiLower folds A-Z only, matching SQLite LIKE and keeping byte offsets stable.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// truncateSnippet truncates a snippet to approximately maxChars while:
// 1. Preserving valid UTF-8 (never splits multi-byte runes)
// 2. Preserving markup integrity (closes any open <b> tags)
// 3. Preferring word boundaries when possible
func truncateSnippet(s string, maxChars int) string {
	if maxChars <= 0 {
		return "..."
	}

	if len(s) <= maxChars {
		return s
	}

	truncateAt := maxChars
	for truncateAt > 0 && !utf8.RuneStart(s[truncateAt]) {
		truncateAt--
	}
	if truncateAt == 0 {
		return "..."
	}

	truncated := s[:truncateAt]

	// Trim any partial tag or entity suffix. The only tags present are <b>
	// and </b>; escaped text may contain entities such as &lt;.
	if lastLT := strings.LastIndex(truncated, "<"); lastLT != -1 && !strings.Contains(truncated[lastLT:], ">") {
		truncated = truncated[:lastLT]
	}
	if lastAmp := strings.LastIndex(truncated, "&"); lastAmp != -1 && !strings.Contains(truncated[lastAmp:], ";") {
		truncated = truncated[:lastAmp]
	}

	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > truncateAt/2 {
		truncated = truncated[:lastSpace]
	}

	unclosed := strings.Count(truncated, "<b>") - strings.Count(truncated, "</b>")
	for range unclosed {
		truncated += "</b>"
	}

	return truncated + "..."
}

// escapeSnippetHTML escapes captured text in a snippet while preserving the
// highlight markers. Captured text is whatever was selected on screen and
// may contain markup.
func escapeSnippetHTML(s string) string {
	const (
		openPlaceholder  = "\x00TEXTCAP_B_OPEN\x00"
		closePlaceholder = "\x00TEXTCAP_B_CLOSE\x00"
	)

	s = strings.ReplaceAll(s, openMarker, openPlaceholder)
	s = strings.ReplaceAll(s, closeMarker, closePlaceholder)

	s = html.EscapeString(s)

	s = strings.ReplaceAll(s, openPlaceholder, "<b>")
	s = strings.ReplaceAll(s, closePlaceholder, "</b>")

	return s
}
