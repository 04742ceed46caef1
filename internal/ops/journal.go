package ops

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hpungsan/textcap/internal/db"
	"github.com/hpungsan/textcap/internal/entry"
	"github.com/hpungsan/textcap/internal/errors"
)

// Stop reasons accepted by FinishSession.
var validStopReasons = map[string]bool{
	"stopped": true,
	"timeout": true,
	"limit":   true,
}

// Journal records capture sessions in the database. It is what the capture
// controller writes through.
type Journal struct {
	db *sql.DB
}

// NewJournal returns a Journal over database.
func NewJournal(database *sql.DB) *Journal {
	return &Journal{db: database}
}

// StartSession creates a running session for documentPath and returns its ID.
func (j *Journal) StartSession(ctx context.Context, documentPath string, startedAt time.Time) (string, error) {
	if strings.TrimSpace(documentPath) == "" {
		return "", errors.NewInvalidRequest("document_path is required")
	}
	id, err := generateULID(startedAt)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	s := &entry.Session{ID: id, DocumentPath: documentPath, StartedAt: startedAt.Unix()}
	if err := db.InsertSession(ctx, j.db, s); err != nil {
		return "", err
	}
	return id, nil
}

// RecordEntry stores an accepted capture, assigning its ID when empty.
func (j *Journal) RecordEntry(ctx context.Context, e *entry.Entry) error {
	if e.SessionID == "" {
		return errors.NewInvalidRequest("session_id is required")
	}
	if strings.TrimSpace(e.Text) == "" {
		return errors.NewInvalidRequest("text is required")
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().Unix()
	}
	if e.ID == "" {
		id, err := generateULID(time.Unix(e.CreatedAt, 0))
		if err != nil {
			return errors.NewInternal(err)
		}
		e.ID = id
	}
	e.TextChars = entry.CountChars(e.Text)
	return db.InsertEntry(ctx, j.db, e)
}

// FinishSession marks a session ended with reason ("stopped", "timeout" or "limit").
func (j *Journal) FinishSession(ctx context.Context, sessionID string, endedAt time.Time, reason string) error {
	if !validStopReasons[reason] {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid stop reason %q", reason))
	}
	return db.FinishSession(ctx, j.db, sessionID, endedAt.Unix(), reason)
}
