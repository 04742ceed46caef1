package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/hpungsan/textcap/internal/config"
	"github.com/hpungsan/textcap/internal/db"
	"github.com/hpungsan/textcap/internal/document"
	"github.com/hpungsan/textcap/internal/entry"
	"github.com/hpungsan/textcap/internal/errors"
)

// Export formats.
const (
	ExportJSONL    = "jsonl"
	ExportMarkdown = document.FormatMarkdown
	ExportDocx     = document.FormatDocx
)

// ExportSchemaVersion is written in the JSONL header line.
const ExportSchemaVersion = "1.0"

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path      string  // optional, default: <exports>/<session|all>-<timestamp>.<format>
	Format    string  // optional: jsonl, md or docx; default from Path's extension, else jsonl
	SessionID *string // optional filter by session
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Format     string `json:"format"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportHeader represents the header line in a JSONL export file.
type ExportHeader struct {
	TextcapExport bool   `json:"_textcap_export"`
	SchemaVersion string `json:"schema_version"`
	ExportedAt    int64  `json:"exported_at"`
}

// Export writes journal entries to a file in capture order. JSONL exports
// start with a header line; md and docx exports are capture documents
// holding each entry's rendered line.
func Export(ctx context.Context, database *sql.DB, cfg *config.Config, exportsDir string, input ExportInput) (*ExportOutput, error) {
	now := time.Now()
	exportedAt := now.Unix()

	format, err := exportFormat(input.Format, input.Path)
	if err != nil {
		return nil, err
	}

	sessionID := cleanOptionalString(input.SessionID)
	if sessionID != nil {
		if _, err := db.GetSession(ctx, database, *sessionID); err != nil {
			return nil, err
		}
	}

	exportPath := input.Path
	if exportPath == "" {
		exportPath = defaultExportPath(exportsDir, sessionID, format, now)
	}

	// Default paths are validated too: they embed the session id.
	if err := ValidateExportPath(exportPath, format, exportsDir, cfg); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	// Write to a temp file, then rename so a failed export keeps any existing file.
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	rows, err := db.StreamEntriesForExport(ctx, database, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var count int
	if format == ExportJSONL {
		count, err = writeJSONL(ctx, file, rows, exportedAt)
	} else {
		count, err = writeDocument(ctx, file, rows, format)
	}
	if err != nil {
		return nil, err
	}

	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	// Close before rename (required on Windows).
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlinked destination.
	if info, err := os.Lstat(exportPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInternal(fmt.Errorf("export path is a symlink"))
	}

	// On Windows, os.Rename fails if the destination exists. Fail and keep
	// the existing file rather than delete-then-rename.
	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return nil, errors.NewConflict("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return &ExportOutput{
		Path:       exportPath,
		Format:     format,
		Count:      count,
		ExportedAt: exportedAt,
	}, nil
}

func writeJSONL(ctx context.Context, w io.Writer, rows *sql.Rows, exportedAt int64) (int, error) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	header := ExportHeader{
		TextcapExport: true,
		SchemaVersion: ExportSchemaVersion,
		ExportedAt:    exportedAt,
	}
	if err := enc.Encode(header); err != nil {
		return 0, errors.NewInternal(err)
	}

	count := 0
	err := eachEntry(ctx, rows, func(e *entry.Entry) error {
		if err := enc.Encode(entry.EntryToExportRecord(e)); err != nil {
			return errors.NewInternal(err)
		}
		count++
		return nil
	})
	return count, err
}

func writeDocument(ctx context.Context, w io.Writer, rows *sql.Rows, format string) (int, error) {
	var lines []string
	err := eachEntry(ctx, rows, func(e *entry.Entry) error {
		lines = append(lines, e.Line())
		return nil
	})
	if err != nil {
		return 0, err
	}

	data, err := document.Encode(format, document.Heading, lines)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	if _, err := w.Write(data); err != nil {
		return 0, errors.NewInternal(err)
	}
	return len(lines), nil
}

func eachEntry(ctx context.Context, rows *sql.Rows, fn func(*entry.Entry) error) error {
	for rows.Next() {
		select {
		case <-ctx.Done():
			return errors.NewCancelled("export")
		default:
		}

		e, err := db.ScanEntryFromRows(rows)
		if err != nil {
			return errors.NewInternal(err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// exportFormat resolves the requested format, falling back to the path's
// extension and then JSONL.
func exportFormat(format, path string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" && path != "" {
		format = strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	}
	if format == "" {
		format = ExportJSONL
	}
	switch format {
	case ExportJSONL, ExportMarkdown, ExportDocx:
		return format, nil
	default:
		return "", errors.NewInvalidRequest(fmt.Sprintf("format must be one of jsonl, md, docx; got %q", format))
	}
}

// defaultExportPath returns <exportsDir>/<session|all>-<timestamp>.<format>.
func defaultExportPath(exportsDir string, sessionID *string, format string, now time.Time) string {
	name := "all"
	if sessionID != nil {
		name = SanitizeForFilename(*sessionID)
	}
	filename := fmt.Sprintf("%s-%s.%s", name, now.Format("2006-01-02T150405"), format)
	return filepath.Join(exportsDir, filename)
}
