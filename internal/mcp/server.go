package mcp

import (
	"database/sql"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/textcap/internal/config"
	"github.com/hpungsan/textcap/internal/sourcetag"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"capture_sessions": {
		def:     sessionsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSessions },
	},
	"capture_entries": {
		def:     entriesToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleEntries },
	},
	"capture_search": {
		def:     searchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSearch },
	},
	"capture_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"capture_tags": {
		def:     tagsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTags },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with the capture journal tools
// registered. Tools listed in cfg.DisabledTools are skipped.
func NewServer(db *sql.DB, cfg *config.Config, exportsDir string, tags *sourcetag.Table, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"textcap",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg, exportsDir, tags)

	disabled := make(map[string]bool)
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, exportsDir string, tags *sourcetag.Table, version string) error {
	if unknown := ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		slog.Warn("ignoring unknown disabled_tools entries", "tools", unknown)
	}
	s := NewServer(db, cfg, exportsDir, tags, version)
	return server.ServeStdio(s)
}
