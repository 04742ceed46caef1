package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/textcap/internal/db"
	"github.com/hpungsan/textcap/internal/entry"
	"github.com/hpungsan/textcap/internal/errors"
)

// MaxSessionEntries caps the entries returned with a session.
const MaxSessionEntries = 1000

// SessionItem is a session as returned by list and get operations.
type SessionItem struct {
	ID           string  `json:"id"`
	DocumentPath string  `json:"document_path"`
	StartedAt    int64   `json:"started_at"`
	EndedAt      *int64  `json:"ended_at,omitempty"`
	StopReason   *string `json:"stop_reason,omitempty"`
	CaptureCount int     `json:"capture_count"`
	Running      bool    `json:"running"`
}

func toSessionItem(s *entry.Session) SessionItem {
	return SessionItem{
		ID:           s.ID,
		DocumentPath: s.DocumentPath,
		StartedAt:    s.StartedAt,
		EndedAt:      s.EndedAt,
		StopReason:   s.StopReason,
		CaptureCount: s.CaptureCount,
		Running:      s.EndedAt == nil,
	}
}

// EntryItem is an entry with its rendered document line.
type EntryItem struct {
	ID            string `json:"id"`
	SessionID     string `json:"session_id"`
	SourceProcess string `json:"source_process,omitempty"`
	SourceTag     string `json:"source_tag"`
	Text          string `json:"text"`
	TextChars     int    `json:"text_chars"`
	Line          string `json:"line"`
	CreatedAt     int64  `json:"created_at"`
}

func toEntryItem(e *entry.Entry) EntryItem {
	return EntryItem{
		ID:            e.ID,
		SessionID:     e.SessionID,
		SourceProcess: e.SourceProcess,
		SourceTag:     e.SourceTag,
		Text:          e.Text,
		TextChars:     e.TextChars,
		Line:          e.Line(),
		CreatedAt:     e.CreatedAt,
	}
}

// ListSessionsInput contains parameters for the ListSessions operation.
type ListSessionsInput struct {
	Limit  int // default: 20, max: 100
	Offset int // default: 0
}

// ListSessionsOutput contains the result of the ListSessions operation.
type ListSessionsOutput struct {
	Items      []SessionItem `json:"items"`
	Pagination Pagination    `json:"pagination"`
	Sort       string        `json:"sort"`
}

// ListSessions returns capture sessions, newest first.
func ListSessions(ctx context.Context, database *sql.DB, input ListSessionsInput) (*ListSessionsOutput, error) {
	limit, offset := clampPage(input.Limit, input.Offset, DefaultListLimit, MaxListLimit)

	sessions, total, err := db.ListSessions(ctx, database, limit, offset)
	if err != nil {
		return nil, err
	}

	// Ensure we return an empty array rather than nil
	items := make([]SessionItem, 0, len(sessions))
	for i := range sessions {
		items = append(items, toSessionItem(&sessions[i]))
	}

	return &ListSessionsOutput{
		Items:      items,
		Pagination: newPagination(limit, offset, len(items), total),
		Sort:       "started_at_desc",
	}, nil
}

// GetSessionOutput is a session with its entries in capture order.
type GetSessionOutput struct {
	Session   SessionItem `json:"session"`
	Entries   []EntryItem `json:"entries"`
	Truncated bool        `json:"truncated"`
}

// GetSession returns a session and up to MaxSessionEntries of its entries.
func GetSession(ctx context.Context, database *sql.DB, id string) (*GetSessionOutput, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.NewInvalidRequest("session id is required")
	}

	s, err := db.GetSession(ctx, database, id)
	if err != nil {
		return nil, err
	}

	entries, total, err := db.ListEntries(ctx, database, db.EntryFilters{SessionID: &id}, MaxSessionEntries, 0)
	if err != nil {
		return nil, err
	}

	items := make([]EntryItem, 0, len(entries))
	for i := range entries {
		items = append(items, toEntryItem(&entries[i]))
	}

	return &GetSessionOutput{
		Session:   toSessionItem(s),
		Entries:   items,
		Truncated: total > len(items),
	}, nil
}

// ListEntriesInput contains parameters for the ListEntries operation.
type ListEntriesInput struct {
	SessionID *string // optional filter
	SourceTag *string // optional filter, exact label e.g. "[Word]"
	Limit     int     // default: 20, max: 100
	Offset    int     // default: 0
}

// ListEntriesOutput contains the result of the ListEntries operation.
type ListEntriesOutput struct {
	Items      []EntryItem `json:"items"`
	Pagination Pagination  `json:"pagination"`
	Sort       string      `json:"sort"`
}

// ListEntries returns entries in capture order.
func ListEntries(ctx context.Context, database *sql.DB, input ListEntriesInput) (*ListEntriesOutput, error) {
	limit, offset := clampPage(input.Limit, input.Offset, DefaultListLimit, MaxListLimit)

	filters := db.EntryFilters{
		SessionID: cleanOptionalString(input.SessionID),
		SourceTag: cleanOptionalString(input.SourceTag),
	}
	if filters.SessionID != nil {
		// Distinguish "no entries yet" from "no such session"
		if _, err := db.GetSession(ctx, database, *filters.SessionID); err != nil {
			return nil, err
		}
	}

	entries, total, err := db.ListEntries(ctx, database, filters, limit, offset)
	if err != nil {
		return nil, err
	}

	items := make([]EntryItem, 0, len(entries))
	for i := range entries {
		items = append(items, toEntryItem(&entries[i]))
	}

	return &ListEntriesOutput{
		Items:      items,
		Pagination: newPagination(limit, offset, len(items), total),
		Sort:       "created_at_asc",
	}, nil
}
