package handler

import (
	"encoding/json"
	"net/http"

	"github.com/datasage/datasage/internal/analyst"
	"github.com/datasage/datasage/internal/models"
	"github.com/datasage/datasage/internal/source"
)

// SourcesHandler connects and inspects data sources. Connecting a new
// source replaces the active one; the previous source is closed.
type SourcesHandler struct {
	analyst *analyst.Analyst
}

func NewSourcesHandler(a *analyst.Analyst) *SourcesHandler {
	return &SourcesHandler{analyst: a}
}

// ConnectFiles handles POST /api/v1/sources/files
func (h *SourcesHandler) ConnectFiles(w http.ResponseWriter, r *http.Request) {
	var req models.ConnectFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Paths) == 0 {
		models.WriteError(w, http.StatusBadRequest, "paths is required")
		return
	}

	src, err := source.OpenFile(req.Name, req.Paths...)
	if err != nil {
		models.WriteError(w, http.StatusUnprocessableEntity, "could not open files: "+err.Error())
		return
	}

	h.analyst.SetSource(src)
	h.writeActive(w, r, http.StatusCreated)
}

// ConnectPostgres handles POST /api/v1/sources/postgres
func (h *SourcesHandler) ConnectPostgres(w http.ResponseWriter, r *http.Request) {
	var req models.ConnectPostgresRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.DSN == "" {
		models.WriteError(w, http.StatusBadRequest, "dsn is required")
		return
	}

	src, err := source.OpenPostgres(r.Context(), req.DSN, req.Name)
	if err != nil {
		models.WriteError(w, http.StatusUnprocessableEntity, "could not connect: "+err.Error())
		return
	}

	h.analyst.SetSource(src)
	h.writeActive(w, r, http.StatusCreated)
}

// Active handles GET /api/v1/sources/active
func (h *SourcesHandler) Active(w http.ResponseWriter, r *http.Request) {
	h.writeActive(w, r, http.StatusOK)
}

// Disconnect handles DELETE /api/v1/sources/active
func (h *SourcesHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if h.analyst.Source() == nil {
		models.WriteError(w, http.StatusNotFound, "no data source connected")
		return
	}
	if err := h.analyst.Close(); err != nil {
		models.WriteError(w, http.StatusInternalServerError, "closing source: "+err.Error())
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *SourcesHandler) writeActive(w http.ResponseWriter, r *http.Request, code int) {
	src := h.analyst.Source()
	if src == nil {
		models.WriteError(w, http.StatusNotFound, "no data source connected")
		return
	}

	tables, err := src.TableNames(r.Context())
	if err != nil {
		models.WriteError(w, http.StatusServiceUnavailable, "listing tables: "+err.Error())
		return
	}

	models.WriteJSON(w, code, models.SourceResponse{
		Status:  "success",
		Name:    src.Name(),
		Dialect: string(src.Dialect()),
		Tables:  tables,
	})
}
