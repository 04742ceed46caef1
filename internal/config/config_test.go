package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MinTextLength != 1 {
		t.Errorf("MinTextLength = %d, want 1", cfg.MinTextLength)
	}
	if cfg.MaxTextLength != 10000 {
		t.Errorf("MaxTextLength = %d, want 10000", cfg.MaxTextLength)
	}
	if cfg.CaptureInterval != 1.0 {
		t.Errorf("CaptureInterval = %g, want 1.0", cfg.CaptureInterval)
	}
	if cfg.SessionTimeoutSeconds != 300 {
		t.Errorf("SessionTimeoutSeconds = %d, want 300", cfg.SessionTimeoutSeconds)
	}
	if cfg.MaxCaptures != 10000 {
		t.Errorf("MaxCaptures = %d, want 10000", cfg.MaxCaptures)
	}
	if cfg.DocumentFormat != FormatDocx {
		t.Errorf("DocumentFormat = %q, want %q", cfg.DocumentFormat, FormatDocx)
	}
	if !cfg.NotificationsEnabled() || !cfg.AutoSaveEnabled() {
		t.Errorf("notifications and auto save should default to enabled")
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	content := `{"min_text_length": 5, "max_text_length": 500, "show_notifications": false, "text_source_tags": {"slack.exe": "[Slack]"}}`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MinTextLength != 5 || cfg.MaxTextLength != 500 {
		t.Errorf("lengths = [%d,%d], want [5,500]", cfg.MinTextLength, cfg.MaxTextLength)
	}
	if cfg.NotificationsEnabled() {
		t.Errorf("show_notifications=false should override the default")
	}
	if cfg.TextSourceTags["slack.exe"] != "[Slack]" {
		t.Errorf("TextSourceTags = %v", cfg.TextSourceTags)
	}
	// Unset keys keep defaults
	if cfg.SessionTimeoutSeconds != 300 {
		t.Errorf("SessionTimeoutSeconds = %d, want 300", cfg.SessionTimeoutSeconds)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{not json}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestMerge_ScalarOverride(t *testing.T) {
	base := &Config{MinTextLength: 1, MaxTextLength: 10000, DocumentFormat: FormatDocx}
	overlay := &Config{MaxTextLength: 200}

	result := Merge(base, overlay)

	if result.MaxTextLength != 200 {
		t.Errorf("MaxTextLength = %d, want 200 (overlay)", result.MaxTextLength)
	}
	if result.MinTextLength != 1 {
		t.Errorf("MinTextLength = %d, want 1 (base, overlay is zero)", result.MinTextLength)
	}
	if result.DocumentFormat != FormatDocx {
		t.Errorf("DocumentFormat = %q, want docx", result.DocumentFormat)
	}
}

func TestMerge_BoolPointers(t *testing.T) {
	base := DefaultConfig()
	overlay := &Config{EnableAutoSave: boolPtr(false)}

	result := Merge(base, overlay)

	if result.AutoSaveEnabled() {
		t.Error("overlay false should win over base true")
	}
	if !result.NotificationsEnabled() {
		t.Error("unset overlay should keep base value")
	}
}

func TestMerge_TagsAndArrays(t *testing.T) {
	base := &Config{
		TextSourceTags: map[string]string{"a.exe": "[A]", "b.exe": "[B]"},
		DisabledTools:  []string{"capture_export", " "},
	}
	overlay := &Config{
		TextSourceTags: map[string]string{"b.exe": "[B2]"},
		DisabledTools:  []string{"capture_export", "capture_search"},
	}

	result := Merge(base, overlay)

	if result.TextSourceTags["a.exe"] != "[A]" || result.TextSourceTags["b.exe"] != "[B2]" {
		t.Errorf("TextSourceTags = %v", result.TextSourceTags)
	}
	if len(result.DisabledTools) != 2 {
		t.Errorf("DisabledTools = %v, want 2 deduplicated entries", result.DisabledTools)
	}

	// Merge must not alias the inputs
	result.TextSourceTags["a.exe"] = "[changed]"
	if base.TextSourceTags["a.exe"] != "[A]" {
		t.Error("Merge aliased base tag map")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"min above max", func(c *Config) { c.MinTextLength = 20; c.MaxTextLength = 10 }, true},
		{"negative min", func(c *Config) { c.MinTextLength = -1 }, true},
		{"zero max", func(c *Config) { c.MaxTextLength = 0 }, true},
		{"zero interval", func(c *Config) { c.CaptureInterval = 0 }, true},
		{"zero timeout", func(c *Config) { c.SessionTimeoutSeconds = 0 }, true},
		{"zero captures", func(c *Config) { c.MaxCaptures = 0 }, true},
		{"markdown format", func(c *Config) { c.DocumentFormat = FormatMarkdown }, false},
		{"unknown format", func(c *Config) { c.DocumentFormat = "pdf" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDurationsAndDirs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CaptureInterval = 1.5

	if cfg.Interval() != 1500*time.Millisecond {
		t.Errorf("Interval() = %v", cfg.Interval())
	}
	if cfg.SessionTimeout() != 300*time.Second {
		t.Errorf("SessionTimeout() = %v", cfg.SessionTimeout())
	}
	if got := cfg.DocumentDirOrDefault("/base"); got != filepath.Join("/base", "documents") {
		t.Errorf("DocumentDirOrDefault = %q", got)
	}
	cfg.DocumentDir = "/docs"
	if got := cfg.DocumentDirOrDefault("/base"); got != "/docs" {
		t.Errorf("DocumentDirOrDefault = %q", got)
	}
}

func TestDefaultBaseDir_UsesAppData(t *testing.T) {
	t.Setenv("APPDATA", "/appdata")

	dir, err := DefaultBaseDir()
	if err != nil {
		t.Fatalf("DefaultBaseDir() error = %v", err)
	}
	if dir != filepath.Join("/appdata", AppDirName) {
		t.Errorf("DefaultBaseDir() = %q", dir)
	}
}

func TestOpenStore_CreatesDefaultFile(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := OpenStore(tmpDir)
	require.NoError(t, err)

	_, err = os.Stat(store.Path())
	require.NoError(t, err, "default config file should be written")

	reloaded, err := Load(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, 10000, reloaded.MaxTextLength)
}

func TestStore_SetAndGet(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := OpenStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("min_text_length", 3))
	require.NoError(t, store.Set("document_format", "md"))
	require.NoError(t, store.Set("show_notifications", false))

	v, err := store.Get("min_text_length")
	require.NoError(t, err)
	assert.EqualValues(t, 3, v)

	// Persisted on each mutation
	reloaded, err := Load(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.MinTextLength)
	assert.Equal(t, FormatMarkdown, reloaded.DocumentFormat)
	assert.False(t, reloaded.NotificationsEnabled())
}

func TestStore_SetRejectsInvalid(t *testing.T) {
	store, err := OpenStore(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, store.Set("no_such_key", 1))
	assert.Error(t, store.Set("max_text_length", "lots"))
	assert.Error(t, store.Set("min_text_length", 20000), "min above max must be rejected")

	// Failed sets leave the config untouched
	assert.Equal(t, 1, store.Config().MinTextLength)
}

func TestStore_SetTagsReplaces(t *testing.T) {
	store, err := OpenStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.AddSourceTag("slack.exe", "[Slack]"))
	require.NoError(t, store.Set("text_source_tags", map[string]string{"zoom.exe": "[Meeting]"}))

	tags := store.Config().TextSourceTags
	assert.Equal(t, map[string]string{"zoom.exe": "[Meeting]"}, tags)
}

func TestStore_AddSourceTag(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := OpenStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.AddSourceTag("slack.exe", "[Slack]"))
	require.NoError(t, store.AddSourceTag("slack.exe", "[Slack 2]"))
	assert.Error(t, store.AddSourceTag("  ", "[blank]"))

	reloaded, err := Load(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "[Slack 2]", reloaded.TextSourceTags["slack.exe"])
}

func TestStore_GetUnknownKey(t *testing.T) {
	store, err := OpenStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get("tesseract_path")
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	keys := Keys()
	assert.Contains(t, keys, "min_text_length")
	assert.Contains(t, keys, "text_source_tags")
	assert.True(t, IsKnownKey("capture_interval"))
	assert.False(t, IsKnownKey("ocr_lang"))
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := OpenStore(tmpDir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	require.NoError(t, Watch(ctx, tmpDir, func(c *Config) { changes <- c }))

	require.NoError(t, store.Set("max_text_length", 42))

	select {
	case cfg := <-changes:
		assert.Equal(t, 42, cfg.MaxTextLength)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}
