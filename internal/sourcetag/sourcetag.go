// Package sourcetag maps foreground process executables to the short labels
// that prefix captured lines.
package sourcetag

import (
	"sort"
	"strings"
	"sync"
)

// UnknownSource is the label used when the foreground process cannot be determined.
const UnknownSource = "[Unknown Source]"

// pair is one literal row of the default table.
type pair struct {
	process string
	label   string
}

// defaultPairs is applied in order, so a repeated process name keeps the later
// label. chrome.exe, msedge.exe and firefox.exe are listed twice; the browser
// specific labels win over the generic "[Web]".
var defaultPairs = []pair{
	{"chrome.exe", "[Web]"},
	{"msedge.exe", "[Web]"},
	{"firefox.exe", "[Web]"},
	{"wechat.exe", "[WeChat]"},
	{"QQ.exe", "[QQ]"},
	{"winword.exe", "[Word]"},
	{"excel.exe", "[Excel]"},
	{"powerpnt.exe", "[PowerPoint]"},
	{"notepad.exe", "[Notepad]"},
	{"notepad++.exe", "[Notepad++]"},
	{"code.exe", "[VS Code]"},
	{"idea.exe", "[IntelliJ]"},
	{"pycharm.exe", "[PyCharm]"},
	{"chrome.exe", "[Google Chrome]"},
	{"msedge.exe", "[Microsoft Edge]"},
	{"firefox.exe", "[Mozilla Firefox]"},
	{"opera.exe", "[Opera]"},
	{"safari.exe", "[Safari]"},
	{"thunderbird.exe", "[Thunderbird]"},
	{"outlook.exe", "[Outlook]"},
	{"teams.exe", "[Microsoft Teams]"},
	{"zoom.exe", "[Zoom]"},
	{"skype.exe", "[Skype]"},
}

// Table is a process-name to label mapping. Safe for concurrent use.
type Table struct {
	mu     sync.RWMutex
	labels map[string]string
}

// Entry is a single row of a Table, used for listing.
type Entry struct {
	Process string `json:"process"`
	Label   string `json:"label"`
}

// New returns an empty table.
func New() *Table {
	return &Table{labels: make(map[string]string)}
}

// Defaults returns a table populated from the built-in defaults.
func Defaults() *Table {
	t := New()
	for _, p := range defaultPairs {
		t.labels[p.process] = p.label
	}
	return t
}

// WithOverrides returns the defaults with overrides applied on top.
func WithOverrides(overrides map[string]string) *Table {
	t := Defaults()
	t.Merge(overrides)
	return t
}

// Set adds or replaces the label for a process. Last write wins.
func (t *Table) Set(process, label string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.labels[process] = label
}

// Merge applies every override; empty process names are ignored.
func (t *Table) Merge(overrides map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for process, label := range overrides {
		if strings.TrimSpace(process) == "" {
			continue
		}
		t.labels[process] = label
	}
}

// Replace swaps the whole mapping for the defaults plus overrides.
// Used when the config file is reloaded.
func (t *Table) Replace(overrides map[string]string) {
	fresh := WithOverrides(overrides)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.labels = fresh.labels
}

// Lookup returns the label for a process name.
// Present → table value; absent → "[" + name + "]"; empty name → UnknownSource.
func (t *Table) Lookup(process string) string {
	if process == "" {
		return UnknownSource
	}
	t.mu.RLock()
	label, ok := t.labels[process]
	t.mu.RUnlock()
	if ok {
		return label
	}
	return "[" + process + "]"
}

// Entries returns all rows sorted by process name.
func (t *Table) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, 0, len(t.labels))
	for process, label := range t.labels {
		out = append(out, Entry{Process: process, Label: label})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Process < out[j].Process })
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.labels)
}
