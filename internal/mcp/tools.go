package mcp

import "github.com/mark3labs/mcp-go/mcp"

var sessionsToolDef = mcp.NewTool("capture_sessions",
	mcp.WithDescription("List text capture sessions, newest first. Pass id to get one session with its captured entries."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("id", mcp.Description("Session ID. When set, returns that session and its entries in capture order.")),
	mcp.WithNumber("limit", mcp.Description("Maximum sessions to return (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Number of sessions to skip")),
)

var entriesToolDef = mcp.NewTool("capture_entries",
	mcp.WithDescription("List captured entries in capture order, optionally for one session or one source tag."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("session_id", mcp.Description("Only entries from this session")),
	mcp.WithString("source_tag", mcp.Description(`Only entries with this exact source tag, e.g. "[Word]"`)),
	mcp.WithNumber("limit", mcp.Description("Maximum entries to return (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Number of entries to skip")),
)

var searchToolDef = mcp.NewTool("capture_search",
	mcp.WithDescription("Search captured text. Substring match, case-insensitive for ASCII, newest first. Snippets highlight the match with <b> tags."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("query", mcp.Required(), mcp.Description("Text to find (max 500 characters)")),
	mcp.WithString("session_id", mcp.Description("Only search this session")),
	mcp.WithString("source_tag", mcp.Description("Only search entries with this source tag")),
	mcp.WithNumber("limit", mcp.Description("Maximum results (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Number of results to skip")),
)

var exportToolDef = mcp.NewTool("capture_export",
	mcp.WithDescription("Export captured entries to a file in the exports directory (or an allowed path). JSONL keeps every field; md and docx produce a capture document."),
	mcp.WithString("path", mcp.Description("Destination file. Default: <exports>/<session|all>-<timestamp>.<format>")),
	mcp.WithString("format", mcp.Description("Export format; defaults to the path's extension, else jsonl"), mcp.Enum("jsonl", "md", "docx")),
	mcp.WithString("session_id", mcp.Description("Only export this session")),
)

var tagsToolDef = mcp.NewTool("capture_tags",
	mcp.WithDescription("Show the process name to source tag table and how many captured entries use each tag."),
	mcp.WithReadOnlyHintAnnotation(true),
)
