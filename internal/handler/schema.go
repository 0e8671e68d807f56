package handler

import (
	"errors"
	"net/http"

	"github.com/datasage/datasage/internal/analyst"
	"github.com/datasage/datasage/internal/models"
	"github.com/datasage/datasage/internal/schema"
)

// SchemaHandler exposes the introspected schema snapshot.
type SchemaHandler struct {
	analyst *analyst.Analyst
}

func NewSchemaHandler(a *analyst.Analyst) *SchemaHandler {
	return &SchemaHandler{analyst: a}
}

// Get handles GET /api/v1/schema
func (h *SchemaHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.analyst.Snapshot(r.Context())
	if err != nil {
		writeSnapshotError(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, models.SchemaResponse{
		Status:   "success",
		Snapshot: snap,
	})
}

func writeSnapshotError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schema.ErrEmptySchema):
		models.WriteError(w, http.StatusUnprocessableEntity, "the data source has no discoverable columns")
	case errors.Is(err, schema.ErrSourceUnavailable):
		models.WriteError(w, http.StatusServiceUnavailable, "no data source connected or source unreachable")
	default:
		models.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
