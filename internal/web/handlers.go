package web

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"github.com/hpungsan/textcap/internal/errors"
	"github.com/hpungsan/textcap/internal/ops"
	"github.com/hpungsan/textcap/internal/sourcetag"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	db       *sql.DB
	tags     *sourcetag.Table
	renderer *Renderer
}

// HandleSessions handles GET /sessions: list capture sessions.
func (h *Handlers) HandleSessions(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ListSessions(r.Context(), h.db, ops.ListSessionsInput{
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "sessions", SessionsPageData{
		PageData: PageData{
			Title:   "Sessions",
			Version: h.renderer.version,
			Nav:     "sessions",
		},
		Items:      result.Items,
		Pagination: result.Pagination,
	})
}

// HandleSession handles GET /sessions/{id}: one session rendered as a document.
func (h *Handlers) HandleSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("session ID is required"))
		return
	}

	result, err := ops.GetSession(r.Context(), h.db, id)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "session", SessionPageData{
		PageData: PageData{
			Title:   "Session " + result.Session.ID,
			Version: h.renderer.version,
			Nav:     "sessions",
		},
		Session:      result.Session,
		EntryCount:   len(result.Entries),
		Truncated:    result.Truncated,
		RenderedHTML: renderMarkdown(ops.RenderSessionMarkdown(result)),
	})
}

// HandleSearch handles GET /search: substring search over captured text.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	sourceTag := r.URL.Query().Get("tag")

	data := SearchPageData{
		PageData: PageData{
			Title:   "Search",
			Version: h.renderer.version,
			Nav:     "search",
		},
		Query:     query,
		SourceTag: sourceTag,
		HasQuery:  query != "",
	}

	if query != "" {
		result, err := ops.Search(r.Context(), h.db, ops.SearchInput{
			Query:     query,
			SourceTag: ptrString(sourceTag),
			Limit:     parseIntParam(r, "limit", ops.DefaultSearchLimit),
			Offset:    parseIntParam(r, "offset", 0),
		})
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		data.Items = result.Items
		data.Pagination = result.Pagination
	}

	// htmx swaps only the results when it targets #results
	if r.Header.Get("HX-Target") == "results" {
		h.renderer.renderBlock(w, http.StatusOK, "search", "search-results", data)
		return
	}

	h.renderer.renderPage(w, r, "search", data)
}

// HandleTags handles GET /tags: the source tag table and its usage.
func (h *Handlers) HandleTags(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Tags(r.Context(), h.db, h.tags)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "tags", TagsPageData{
		PageData: PageData{
			Title:   "Source tags",
			Version: h.renderer.version,
			Nav:     "tags",
		},
		Table: result.Table,
		Usage: result.Usage,
	})
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// ptrString returns a pointer to s if non-empty, nil otherwise.
func ptrString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
