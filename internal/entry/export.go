package entry

// ExportRecord represents an entry in JSONL export format.
type ExportRecord struct {
	// Header detection field - true only for header line
	TextcapExport bool `json:"_textcap_export,omitempty"`

	// Header fields (only present in header line)
	SchemaVersion string `json:"schema_version,omitempty"`
	ExportedAt    int64  `json:"exported_at,omitempty"`

	// Entry fields
	ID            string `json:"id"`
	SessionID     string `json:"session_id"`
	SourceProcess string `json:"source_process"`
	SourceTag     string `json:"source_tag"`
	Text          string `json:"text"`
	TextChars     int    `json:"text_chars"`
	CreatedAt     int64  `json:"created_at"`
}

// ToEntry converts an ExportRecord back to an Entry, recomputing derived fields.
func (r *ExportRecord) ToEntry() *Entry {
	return &Entry{
		ID:            r.ID,
		SessionID:     r.SessionID,
		SourceProcess: r.SourceProcess,
		SourceTag:     r.SourceTag,
		Text:          r.Text,
		TextChars:     CountChars(r.Text), // Recompute
		CreatedAt:     r.CreatedAt,
	}
}

// EntryToExportRecord converts an Entry to an ExportRecord for export.
func EntryToExportRecord(e *Entry) *ExportRecord {
	return &ExportRecord{
		ID:            e.ID,
		SessionID:     e.SessionID,
		SourceProcess: e.SourceProcess,
		SourceTag:     e.SourceTag,
		Text:          e.Text,
		TextChars:     e.TextChars,
		CreatedAt:     e.CreatedAt,
	}
}
