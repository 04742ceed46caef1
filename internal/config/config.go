package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Document formats.
const (
	FormatDocx     = "docx"
	FormatMarkdown = "md"
)

// AppDirName is the per-user application directory under %APPDATA%.
const AppDirName = "TextCaptureTool"

// Config holds application configuration.
type Config struct {
	// DocumentDir is where timestamped session documents are created.
	// Empty means <base>/documents.
	DocumentDir string `json:"document_dir,omitempty"`

	// DocumentFormat selects the session document format: "docx" (default) or "md".
	DocumentFormat string `json:"document_format,omitempty"`

	// CaptureInterval is the debounce, in seconds, after a successful capture.
	CaptureInterval float64 `json:"capture_interval,omitempty"`

	// MinTextLength and MaxTextLength bound accepted candidates (runes, inclusive).
	MinTextLength int `json:"min_text_length,omitempty"`
	MaxTextLength int `json:"max_text_length,omitempty"`

	// SessionTimeoutSeconds stops a capture session after this much wall-clock time.
	SessionTimeoutSeconds int `json:"session_timeout_seconds,omitempty"`

	// MaxCaptures stops a capture session after this many captured candidates.
	MaxCaptures int `json:"max_captures,omitempty"`

	// EnableAutoSave appends each accepted capture to the document as it arrives.
	// When false, captures are only recorded in the journal.
	EnableAutoSave *bool `json:"enable_auto_save,omitempty"`

	// ShowNotifications surfaces failures and session summaries to the user.
	ShowNotifications *bool `json:"show_notifications,omitempty"`

	// TextSourceTags extends or overrides the built-in process → label table.
	TextSourceTags map[string]string `json:"text_source_tags,omitempty"`

	// LogLevel is one of DEBUG, INFO, WARN, ERROR. Default INFO.
	LogLevel string `json:"log_level,omitempty"`

	// DBMaxOpenConns limits the maximum number of open journal connections.
	// 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// AllowedPaths is an allowlist of directories for exports.
	// Paths outside <base>/exports require either being in this list or AllowUnsafePaths=true.
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for exports.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DocumentFormat:        FormatDocx,
		CaptureInterval:       1.0,
		MinTextLength:         1,
		MaxTextLength:         10000,
		SessionTimeoutSeconds: 300,
		MaxCaptures:           10000,
		EnableAutoSave:        boolPtr(true),
		ShowNotifications:     boolPtr(true),
		LogLevel:              "INFO",
	}
}

// DefaultBaseDir returns %APPDATA%\TextCaptureTool, or ~/.textcap when APPDATA is unset.
func DefaultBaseDir() (string, error) {
	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, AppDirName), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".textcap"), nil
}

// Path returns the config file path inside baseDir.
func Path(baseDir string) string {
	return filepath.Join(baseDir, "config.json")
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir().
func Load(baseDir string) (*Config, error) {
	return loadFile(Path(baseDir))
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; tag maps are merged key by key;
// arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.DocumentDir = firstString(overlay.DocumentDir, base.DocumentDir)
	result.DocumentFormat = firstString(overlay.DocumentFormat, base.DocumentFormat)
	result.LogLevel = firstString(overlay.LogLevel, base.LogLevel)

	result.CaptureInterval = overlay.CaptureInterval
	if result.CaptureInterval == 0 {
		result.CaptureInterval = base.CaptureInterval
	}
	result.MinTextLength = firstInt(overlay.MinTextLength, base.MinTextLength)
	result.MaxTextLength = firstInt(overlay.MaxTextLength, base.MaxTextLength)
	result.SessionTimeoutSeconds = firstInt(overlay.SessionTimeoutSeconds, base.SessionTimeoutSeconds)
	result.MaxCaptures = firstInt(overlay.MaxCaptures, base.MaxCaptures)
	result.DBMaxOpenConns = firstInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)

	// Pointer booleans: overlay wins when set, so false can override a true default.
	result.EnableAutoSave = firstBool(overlay.EnableAutoSave, base.EnableAutoSave)
	result.ShowNotifications = firstBool(overlay.ShowNotifications, base.ShowNotifications)

	if len(base.TextSourceTags)+len(overlay.TextSourceTags) > 0 {
		result.TextSourceTags = make(map[string]string, len(base.TextSourceTags)+len(overlay.TextSourceTags))
		maps.Copy(result.TextSourceTags, base.TextSourceTags)
		maps.Copy(result.TextSourceTags, overlay.TextSourceTags)
	}

	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// Validate checks that the capture settings are usable.
func (c *Config) Validate() error {
	if c.MinTextLength < 0 {
		return fmt.Errorf("min_text_length must be non-negative, got %d", c.MinTextLength)
	}
	if c.MaxTextLength <= 0 {
		return fmt.Errorf("max_text_length must be positive, got %d", c.MaxTextLength)
	}
	if c.MinTextLength > c.MaxTextLength {
		return fmt.Errorf("min_text_length (%d) exceeds max_text_length (%d)", c.MinTextLength, c.MaxTextLength)
	}
	if c.CaptureInterval <= 0 {
		return fmt.Errorf("capture_interval must be positive, got %g", c.CaptureInterval)
	}
	if c.SessionTimeoutSeconds <= 0 {
		return fmt.Errorf("session_timeout_seconds must be positive, got %d", c.SessionTimeoutSeconds)
	}
	if c.MaxCaptures <= 0 {
		return fmt.Errorf("max_captures must be positive, got %d", c.MaxCaptures)
	}
	switch c.DocumentFormat {
	case FormatDocx, FormatMarkdown:
	default:
		return fmt.Errorf("document_format must be %q or %q, got %q", FormatDocx, FormatMarkdown, c.DocumentFormat)
	}
	return nil
}

// Interval returns CaptureInterval as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.CaptureInterval * float64(time.Second))
}

// SessionTimeout returns SessionTimeoutSeconds as a duration.
func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutSeconds) * time.Second
}

// DocumentDirOrDefault returns DocumentDir, or <baseDir>/documents when unset.
func (c *Config) DocumentDirOrDefault(baseDir string) string {
	if c.DocumentDir != "" {
		return c.DocumentDir
	}
	return filepath.Join(baseDir, "documents")
}

// AutoSaveEnabled reports whether accepted captures are written to the document.
func (c *Config) AutoSaveEnabled() bool {
	return c.EnableAutoSave == nil || *c.EnableAutoSave
}

// NotificationsEnabled reports whether user notifications are shown.
func (c *Config) NotificationsEnabled() bool {
	return c.ShowNotifications == nil || *c.ShowNotifications
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	if c.EnableAutoSave != nil {
		out.EnableAutoSave = boolPtr(*c.EnableAutoSave)
	}
	if c.ShowNotifications != nil {
		out.ShowNotifications = boolPtr(*c.ShowNotifications)
	}
	if c.TextSourceTags != nil {
		out.TextSourceTags = maps.Clone(c.TextSourceTags)
	}
	if c.AllowedPaths != nil {
		out.AllowedPaths = append([]string(nil), c.AllowedPaths...)
	}
	if c.DisabledTools != nil {
		out.DisabledTools = append([]string(nil), c.DisabledTools...)
	}
	return &out
}

func firstString(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstInt(a, b int) int {
	if a != 0 {
		return a
	}
	return b
}

func firstBool(a, b *bool) *bool {
	if a != nil {
		return boolPtr(*a)
	}
	if b != nil {
		return boolPtr(*b)
	}
	return nil
}

func boolPtr(b bool) *bool {
	return &b
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string(nil), a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
