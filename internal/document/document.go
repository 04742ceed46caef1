// Package document stores a capture session as a human-readable file: a
// Word .docx or a Markdown .md with one paragraph per captured line under a
// fixed heading. Every append rewrites the whole file.
package document

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Heading is the first paragraph of every capture document.
const Heading = "Text Capture Log"

// Formats, named by file extension.
const (
	FormatDocx     = "docx"
	FormatMarkdown = "md"
)

// ErrSamePath is returned by CopyTo when the destination is the document itself.
var ErrSamePath = errors.New("destination is the current document")

// codec reads and writes one file format.
type codec interface {
	encode(heading string, lines []string) ([]byte, error)
	decode(data []byte) (heading string, lines []string, err error)
}

func codecFor(format string) (codec, error) {
	switch format {
	case FormatDocx:
		return docxCodec{}, nil
	case FormatMarkdown:
		return markdownCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported document format %q", format)
	}
}

// FormatOf returns the format implied by a path's extension.
func FormatOf(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if _, err := codecFor(ext); err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return ext, nil
}

// Encode renders heading and lines in format without touching the filesystem.
func Encode(format, heading string, lines []string) ([]byte, error) {
	c, err := codecFor(format)
	if err != nil {
		return nil, err
	}
	return c.encode(heading, lines)
}

// FileName returns the timestamped name for a new session document,
// e.g. text_capture_20240102_150405.docx.
func FileName(now time.Time, format string) string {
	return "text_capture_" + now.Format("20060102_150405") + "." + format
}

// Document is an open capture document. Safe for concurrent use, though the
// capture sink only touches it from one goroutine.
type Document struct {
	path   string
	format string
	codec  codec

	mu      sync.Mutex
	heading string
	lines   []string
}

// Create writes a new document containing only the heading. The parent
// directory is created if needed; an existing file is replaced.
func Create(path string) (*Document, error) {
	d, err := newDocument(path)
	if err != nil {
		return nil, err
	}
	d.heading = Heading

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create document directory: %w", err)
	}
	if err := d.save(); err != nil {
		return nil, err
	}
	return d, nil
}

// maxNameAttempts bounds the "_N" suffixes CreateUnique tries.
const maxNameAttempts = 1000

// CreateUnique is Create for a path that must not already exist. When the
// name is taken it tries "<stem>_2<ext>", "<stem>_3<ext>" and so on, so two
// sessions started in the same second get separate documents.
func CreateUnique(path string) (*Document, error) {
	if _, err := newDocument(path); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create document directory: %w", err)
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; i <= maxNameAttempts; i++ {
		candidate := path
		if i > 1 {
			candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
		}

		// Reserve the name; the save below replaces the empty placeholder.
		f, err := os.OpenFile(candidate, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", candidate, err)
		}
		f.Close()

		d, err := Create(candidate)
		if err != nil {
			os.Remove(candidate)
			return nil, err
		}
		return d, nil
	}
	return nil, fmt.Errorf("no free document name for %s", path)
}

// Open reads an existing document.
func Open(path string) (*Document, error) {
	d, err := newDocument(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d.heading, d.lines, err = d.codec.decode(data)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return d, nil
}

// OpenOrCreate opens path, creating it with the heading when it does not exist.
func OpenOrCreate(path string) (*Document, error) {
	d, err := Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Create(path)
	}
	return d, err
}

// AppendLine opens (or creates) the document at path, appends one line and saves.
func AppendLine(path, line string) error {
	d, err := OpenOrCreate(path)
	if err != nil {
		return err
	}
	return d.AppendLine(line)
}

func newDocument(path string) (*Document, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	c, _ := codecFor(format)
	return &Document{path: path, format: format, codec: c}, nil
}

// Path returns the file path.
func (d *Document) Path() string {
	return d.path
}

// Format returns "docx" or "md".
func (d *Document) Format() string {
	return d.format
}

// Heading returns the document heading ("" when the file had none).
func (d *Document) Heading() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.heading
}

// AppendLine adds a paragraph and saves the file. On a save failure the line
// is not kept in memory either.
func (d *Document) AppendLine(line string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.lines = append(d.lines, line)
	if err := d.save(); err != nil {
		d.lines = d.lines[:len(d.lines)-1]
		return err
	}
	return nil
}

// AddLine adds a paragraph in memory only; call Save to persist it.
func (d *Document) AddLine(line string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lines = append(d.lines, line)
}

// Save writes the current paragraphs to disk.
func (d *Document) Save() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.save()
}

// Paragraphs returns the body paragraphs, heading excluded.
func (d *Document) Paragraphs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.lines...)
}

// Len returns the number of body paragraphs.
func (d *Document) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.lines)
}

// CopyTo writes the body paragraphs to a new document at dst under a fresh
// heading. The destination format follows dst's extension.
func (d *Document) CopyTo(dst string) (*Document, error) {
	if samePath(d.path, dst) {
		return nil, ErrSamePath
	}

	out, err := newDocument(dst)
	if err != nil {
		return nil, err
	}
	out.heading = Heading
	out.lines = d.Paragraphs()

	if err := os.MkdirAll(filepath.Dir(dst), 0700); err != nil {
		return nil, fmt.Errorf("create document directory: %w", err)
	}
	if err := out.save(); err != nil {
		return nil, err
	}
	return out, nil
}

// save writes to a temp file and renames it over the document so a crash
// mid-write leaves the previous version intact.
func (d *Document) save() error {
	data, err := d.codec.encode(d.heading, d.lines)
	if err != nil {
		return fmt.Errorf("encode %s: %w", d.path, err)
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return fmt.Errorf("generate temp file name: %w", err)
	}
	tmp := d.path + "." + hex.EncodeToString(randBytes) + ".tmp"

	if err := os.WriteFile(tmp, data, 0600); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", d.path, err)
	}
	if err := os.Rename(tmp, d.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("save %s: %w", d.path, err)
	}
	return nil
}

// samePath compares case-insensitively, as Windows paths do.
func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return strings.EqualFold(absA, absB)
}
