package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/textcap/internal/config"
	"github.com/hpungsan/textcap/internal/errors"
	"github.com/hpungsan/textcap/internal/ops"
	"github.com/hpungsan/textcap/internal/sourcetag"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db         *sql.DB
	cfg        *config.Config
	exportsDir string
	tags       *sourcetag.Table
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, exportsDir string, tags *sourcetag.Table) *Handlers {
	return &Handlers{db: db, cfg: cfg, exportsDir: exportsDir, tags: tags}
}

// Request types for each tool

// SessionsRequest represents the arguments for capture_sessions.
type SessionsRequest struct {
	ID     string `json:"id,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// EntriesRequest represents the arguments for capture_entries.
type EntriesRequest struct {
	SessionID *string `json:"session_id,omitempty"`
	SourceTag *string `json:"source_tag,omitempty"`
	Limit     int     `json:"limit,omitempty"`
	Offset    int     `json:"offset,omitempty"`
}

// SearchRequest represents the arguments for capture_search.
type SearchRequest struct {
	Query     string  `json:"query"`
	SessionID *string `json:"session_id,omitempty"`
	SourceTag *string `json:"source_tag,omitempty"`
	Limit     int     `json:"limit,omitempty"`
	Offset    int     `json:"offset,omitempty"`
}

// ExportRequest represents the arguments for capture_export.
type ExportRequest struct {
	Path      string  `json:"path,omitempty"`
	Format    string  `json:"format,omitempty"`
	SessionID *string `json:"session_id,omitempty"`
}

// HandleSessions handles the capture_sessions tool call.
func (h *Handlers) HandleSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if input.ID != "" {
		result, err := ops.GetSession(ctx, h.db, input.ID)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(result)
	}

	result, err := ops.ListSessions(ctx, h.db, ops.ListSessionsInput{
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleEntries handles the capture_entries tool call.
func (h *Handlers) HandleEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[EntriesRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListEntries(ctx, h.db, ops.ListEntriesInput{
		SessionID: input.SessionID,
		SourceTag: input.SourceTag,
		Limit:     input.Limit,
		Offset:    input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSearch handles the capture_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Search(ctx, h.db, ops.SearchInput{
		Query:     input.Query,
		SessionID: input.SessionID,
		SourceTag: input.SourceTag,
		Limit:     input.Limit,
		Offset:    input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleExport handles the capture_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.db, h.cfg, h.exportsDir, ops.ExportInput{
		Path:      input.Path,
		Format:    input.Format,
		SessionID: input.SessionID,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleTags handles the capture_tags tool call.
func (h *Handlers) HandleTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Tags(ctx, h.db, h.tags)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are never exposed: they can carry file paths or SQL.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var tcErr *errors.TextcapError
	if stderrors.As(err, &tcErr) {
		errorObj := map[string]any{
			"code":    tcErr.Code,
			"message": tcErr.Message,
			"status":  tcErr.Status,
		}
		if tcErr.Code != errors.ErrInternal && tcErr.Details != nil {
			errorObj["details"] = tcErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
