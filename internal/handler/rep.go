package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/remo/internal/auth"
	"github.com/sakif/remo/internal/resource"
	"github.com/sakif/remo/internal/service"
)

// RepHandler serves the read-only "rep" resource.
//
// HANDLER RESPONSIBILITIES:
//   - HandleList   → GET /api/v1/rep/            (JSON page, or CSV/XLSX export)
//   - HandleDetail → GET /api/v1/rep/{id}/
//   - HandleSchema → GET /api/v1/rep/schema/
//   - HandleMe     → GET /api/me
//
// The handler only turns HTTP into service calls and back. Which fields the
// caller may see is decided in the service, from the viewer resolved here.
type RepHandler struct {
	reps   *service.RepService
	logger *slog.Logger
}

func NewRepHandler(reps *service.RepService, logger *slog.Logger) *RepHandler {
	return &RepHandler{reps: reps, logger: logger}
}

// ListResponse is the JSON body of the list endpoint.
type ListResponse struct {
	Meta    resource.Meta     `json:"meta"`
	Objects []resource.Object `json:"objects"`
}

// viewer resolves who is asking. OptionalAuth has already validated the
// token (if any); a token for a deleted or inactive user is anonymous.
func (h *RepHandler) viewer(r *http.Request) (resource.Viewer, error) {
	userID, _ := auth.UserIDFromContext(r.Context())
	return h.reps.Viewer(r.Context(), userID)
}

// HandleList lists reps, or exports them when ?format=csv|xlsx.
//
// HTTP: GET /api/v1/rep/?query=zig&profile__city__iexact=berlin&limit=20&offset=0
func (h *RepHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	params, err := h.reps.ParseListParams(values)
	if err != nil {
		writeError(w, err)
		return
	}

	viewer, err := h.viewer(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if params.Format.Export() {
		h.export(w, r, viewer, params)
		return
	}

	page, err := h.reps.List(r.Context(), viewer, params.Filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ListResponse{
		Meta:    resource.PageMeta(r.URL.Path, values, page.Filter, page.Total),
		Objects: page.Objects,
	})
}

func (h *RepHandler) export(w http.ResponseWriter, r *http.Request, viewer resource.Viewer, params resource.ListParams) {
	file, err := h.reps.Export(r.Context(), viewer, params.Filter, params.Format)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", `filename="`+file.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Data); err != nil {
		h.logger.Warn("export write interrupted",
			slog.String("filename", file.Filename),
			slog.String("error", err.Error()),
		)
	}
}

// HandleDetail returns one rep.
//
// HTTP: GET /api/v1/rep/{id}/
func (h *RepHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	viewer, err := h.viewer(r)
	if err != nil {
		writeError(w, err)
		return
	}

	obj, err := h.reps.Get(r.Context(), viewer, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

// HandleSchema describes the resource: fields, filtering and defaults.
//
// HTTP: GET /api/v1/rep/schema/
func (h *RepHandler) HandleSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.reps.Schema())
}

// HandleMe returns the signed-in user's own projection, email included.
//
// HTTP: GET /api/me
// Auth: required (RequireAuth)
func (h *RepHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	viewer, err := h.viewer(r)
	if err != nil {
		writeError(w, err)
		return
	}

	obj, err := h.reps.Me(r.Context(), viewer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, obj)
}
