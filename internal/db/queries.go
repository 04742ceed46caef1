package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hpungsan/textcap/internal/entry"
	"github.com/hpungsan/textcap/internal/errors"
)

// MaxSearchQueryChars bounds the LIKE pattern built from a search query.
const MaxSearchQueryChars = 500

const sessionColumns = `id, document_path, started_at, ended_at, stop_reason, capture_count`

const entryColumns = `id, session_id, source_process, source_tag, text, text_chars, created_at`

// EntryFilters narrows entry listing and search. Nil fields are ignored.
type EntryFilters struct {
	SessionID *string
	SourceTag *string
}

// TagCount is the number of journal entries carrying a source tag.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// InsertSession stores a new, running session.
func InsertSession(ctx context.Context, db *sql.DB, s *entry.Session) error {
	query := `
		INSERT INTO sessions (id, document_path, started_at, ended_at, stop_reason, capture_count)
		VALUES (?, ?, ?, NULL, NULL, 0)
	`
	if _, err := db.ExecContext(ctx, query, s.ID, s.DocumentPath, s.StartedAt); err != nil {
		if isUniqueConstraintError(err) {
			return errors.NewConflict(fmt.Sprintf("session already exists: %s", s.ID))
		}
		return errors.NewInternal(err)
	}
	s.EndedAt = nil
	s.StopReason = nil
	s.CaptureCount = 0
	return nil
}

// FinishSession records when and why a session stopped.
// Finishing an already-finished session overwrites the previous values.
func FinishSession(ctx context.Context, db *sql.DB, id string, endedAt int64, reason string) error {
	query := `UPDATE sessions SET ended_at = ?, stop_reason = ? WHERE id = ?`

	result, err := db.ExecContext(ctx, query, endedAt, reason, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound("session", id)
	}
	return nil
}

// GetSession retrieves a session by its ULID.
func GetSession(ctx context.Context, db *sql.DB, id string) (*entry.Session, error) {
	row := db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("session", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return s, nil
}

// ListSessions returns sessions newest first, with the total row count.
func ListSessions(ctx context.Context, db *sql.DB, limit, offset int) ([]entry.Session, int, error) {
	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY started_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var sessions []entry.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return sessions, total, nil
}

// InsertEntry stores an accepted capture and bumps its session's capture count.
func InsertEntry(ctx context.Context, db *sql.DB, e *entry.Entry) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE sessions SET capture_count = capture_count + 1 WHERE id = ?`, e.SessionID)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound("session", e.SessionID)
	}

	query := `INSERT INTO entries (` + entryColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, query,
		e.ID, e.SessionID, e.SourceProcess, e.SourceTag, e.Text, e.TextChars, e.CreatedAt)
	if err != nil {
		if isUniqueConstraintError(err) {
			return errors.NewConflict(fmt.Sprintf("entry already exists: %s", e.ID))
		}
		return errors.NewInternal(err)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListEntries returns entries in capture order, with the total matching count.
func ListEntries(ctx context.Context, db *sql.DB, filters EntryFilters, limit, offset int) ([]entry.Entry, int, error) {
	where, args := filters.clause()
	return queryEntries(ctx, db, where, args, "created_at ASC, id ASC", limit, offset)
}

// SearchEntries finds entries whose text contains query (case-insensitive
// for ASCII), newest first.
func SearchEntries(ctx context.Context, db *sql.DB, query string, filters EntryFilters, limit, offset int) ([]entry.Entry, int, error) {
	where, args := filters.clause()
	where = append(where, `text LIKE ? ESCAPE '\'`)
	args = append(args, "%"+escapeLike(query)+"%")
	return queryEntries(ctx, db, where, args, "created_at DESC, id DESC", limit, offset)
}

func queryEntries(ctx context.Context, db *sql.DB, where []string, args []any, order string, limit, offset int) ([]entry.Entry, int, error) {
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `SELECT ` + entryColumns + ` FROM entries` + whereSQL + ` ORDER BY ` + order + ` LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var entries []entry.Entry
	for rows.Next() {
		e, err := ScanEntryFromRows(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return entries, total, nil
}

// StreamEntriesForExport returns rows for every entry (optionally one
// session's) in capture order. The caller must close the rows.
func StreamEntriesForExport(ctx context.Context, db *sql.DB, sessionID *string) (*sql.Rows, error) {
	where, args := EntryFilters{SessionID: sessionID}.clause()
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries`+whereSQL+` ORDER BY created_at ASC, id ASC`, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return rows, nil
}

// CountSourceTags returns entry counts per source tag, most used first.
func CountSourceTags(ctx context.Context, db *sql.DB) ([]TagCount, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT source_tag, COUNT(*) AS n FROM entries GROUP BY source_tag ORDER BY n DESC, source_tag ASC`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var counts []TagCount
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, errors.NewInternal(err)
		}
		counts = append(counts, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return counts, nil
}

// PurgeSessions permanently deletes finished sessions and their entries.
// With sessionID set only that session is considered; with endedBefore set
// only sessions that ended before that Unix time. Running sessions are
// never purged. Returns the number of sessions and entries removed.
func PurgeSessions(ctx context.Context, db *sql.DB, sessionID *string, endedBefore *int64) (int, int, error) {
	where := []string{"ended_at IS NOT NULL"}
	var args []any
	if sessionID != nil {
		where = append(where, "id = ?")
		args = append(args, *sessionID)
	}
	if endedBefore != nil {
		where = append(where, "ended_at < ?")
		args = append(args, *endedBefore)
	}
	whereSQL := strings.Join(where, " AND ")

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, errors.NewInternal(err)
	}
	defer tx.Rollback()

	entriesResult, err := tx.ExecContext(ctx,
		`DELETE FROM entries WHERE session_id IN (SELECT id FROM sessions WHERE `+whereSQL+`)`, args...)
	if err != nil {
		return 0, 0, errors.NewInternal(err)
	}
	sessionsResult, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE `+whereSQL, args...)
	if err != nil {
		return 0, 0, errors.NewInternal(err)
	}

	entriesPurged, err := entriesResult.RowsAffected()
	if err != nil {
		return 0, 0, errors.NewInternal(err)
	}
	sessionsPurged, err := sessionsResult.RowsAffected()
	if err != nil {
		return 0, 0, errors.NewInternal(err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, errors.NewInternal(err)
	}
	return int(sessionsPurged), int(entriesPurged), nil
}

func (f EntryFilters) clause() ([]string, []any) {
	var where []string
	var args []any
	if f.SessionID != nil {
		where = append(where, "session_id = ?")
		args = append(args, *f.SessionID)
	}
	if f.SourceTag != nil {
		where = append(where, "source_tag = ?")
		args = append(args, *f.SourceTag)
	}
	return where, args
}

// escapeLike escapes LIKE wildcards so the query matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*entry.Session, error) {
	var (
		s          entry.Session
		endedAt    sql.NullInt64
		stopReason sql.NullString
	)
	err := row.Scan(&s.ID, &s.DocumentPath, &s.StartedAt, &endedAt, &stopReason, &s.CaptureCount)
	if err != nil {
		return nil, err
	}
	if endedAt.Valid {
		s.EndedAt = &endedAt.Int64
	}
	if stopReason.Valid {
		s.StopReason = &stopReason.String
	}
	return &s, nil
}

// ScanEntryFromRows scans the current row of an entry query.
func ScanEntryFromRows(rows *sql.Rows) (*entry.Entry, error) {
	var e entry.Entry
	err := rows.Scan(&e.ID, &e.SessionID, &e.SourceProcess, &e.SourceTag, &e.Text, &e.TextChars, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
