package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/datasage/datasage/internal/analyst"
	"github.com/datasage/datasage/internal/models"
)

// QueryHandler handles direct SQL execution. Queries go through the same
// validator as translated ones, so this endpoint cannot bypass policy.
type QueryHandler struct {
	analyst *analyst.Analyst
}

func NewQueryHandler(a *analyst.Analyst) *QueryHandler {
	return &QueryHandler{analyst: a}
}

// Execute handles POST /api/v1/query
func (h *QueryHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.SetDefaults()

	if strings.TrimSpace(req.SQL) == "" {
		models.WriteError(w, http.StatusBadRequest, "sql is required")
		return
	}

	start := time.Now()
	rs, err := h.analyst.RunSQL(r.Context(), req.SQL)
	if err != nil {
		writeTranslationError(w, err)
		return
	}

	models.WriteJSON(w, http.StatusOK, models.QueryResponse{
		Status:    "success",
		Result:    rs,
		ElapsedMs: time.Since(start).Milliseconds(),
	})
}
