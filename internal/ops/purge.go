package ops

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hpungsan/textcap/internal/db"
	"github.com/hpungsan/textcap/internal/errors"
)

// PurgeInput contains parameters for the Purge operation.
type PurgeInput struct {
	SessionID     *string // optional, purge only this session
	OlderThanDays *int    // optional, only purge sessions that ended before (now - N days)
}

// PurgeOutput contains the result of the Purge operation.
type PurgeOutput struct {
	Sessions int    `json:"sessions"`
	Entries  int    `json:"entries"`
	Message  string `json:"message"`
}

// Purge permanently deletes finished sessions and their journal entries.
// Session documents on disk are left alone.
func Purge(ctx context.Context, database *sql.DB, input PurgeInput) (*PurgeOutput, error) {
	var endedBefore *int64
	if input.OlderThanDays != nil {
		if *input.OlderThanDays < 0 {
			return nil, errors.NewInvalidRequest("older_than_days must be non-negative")
		}
		cutoff := time.Now().Add(-time.Duration(*input.OlderThanDays) * 24 * time.Hour).Unix()
		endedBefore = &cutoff
	}

	sessionID := cleanOptionalString(input.SessionID)
	sessions, entries, err := db.PurgeSessions(ctx, database, sessionID, endedBefore)
	if err != nil {
		return nil, err
	}

	return &PurgeOutput{
		Sessions: sessions,
		Entries:  entries,
		Message:  formatPurgeMessage(sessions, entries, sessionID, input.OlderThanDays),
	}, nil
}

// formatPurgeMessage creates a human-readable message for the purge result.
func formatPurgeMessage(sessions, entries int, sessionID *string, olderThanDays *int) string {
	if sessions == 0 {
		return "No finished sessions to purge"
	}

	msg := fmt.Sprintf("Permanently deleted %d %s and %d %s",
		sessions, plural(sessions, "session", "sessions"),
		entries, plural(entries, "entry", "entries"))

	if sessionID != nil {
		msg += fmt.Sprintf(" for session %q", *sessionID)
	}
	if olderThanDays != nil {
		msg += fmt.Sprintf(" (ended more than %d days ago)", *olderThanDays)
	}
	return msg
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
