package directory

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/kontrib/pkg/handlers"
	"github.com/JaimeStill/kontrib/pkg/pagination"
	"github.com/JaimeStill/kontrib/pkg/routes"
)

// Handler provides HTTP endpoints for CMS reference data.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "directory"),
		pagination: pagination,
	}
}

// Routes returns the route groups for listing and dashboard endpoints.
func (h *Handler) Routes() []routes.Group {
	return []routes.Group{
		{
			Prefix: "",
			Routes: []routes.Route{
				{Method: "GET", Pattern: "/users", Handler: h.Users},
				{Method: "GET", Pattern: "/items", Handler: h.Items},
				{Method: "GET", Pattern: "/types", Handler: h.Types},
				{Method: "GET", Pattern: "/languages", Handler: h.Languages},
				{Method: "GET", Pattern: "/workflows", Handler: h.Workflows},
			},
		},
		{
			Prefix: "/contributors",
			Routes: []routes.Route{
				{Method: "GET", Pattern: "/dashboard", Handler: h.Dashboard},
			},
		},
	}
}

// Users returns a page of the subscription user directory.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	result, err := h.sys.Users(r.Context(), page)
	h.respond(w, result, err)
}

// Items returns a page of content items.
func (h *Handler) Items(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	result, err := h.sys.Items(r.Context(), page)
	h.respond(w, result, err)
}

// Types returns a page of content types.
func (h *Handler) Types(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	result, err := h.sys.Types(r.Context(), page)
	h.respond(w, result, err)
}

// Languages returns a page of project languages.
func (h *Handler) Languages(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	result, err := h.sys.Languages(r.Context(), page)
	h.respond(w, result, err)
}

// Workflows returns a page of workflow definitions with their draft targets.
func (h *Handler) Workflows(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	result, err := h.sys.Workflows(r.Context(), page)
	h.respond(w, result, err)
}

// Dashboard returns the contributor overview, optionally filtered by ?filter=.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	result, err := h.sys.Dashboard(r.Context(), filter)
	h.respond(w, result, err)
}

func (h *Handler) respond(w http.ResponseWriter, result any, err error) {
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, result)
}
