// Package handler contains the HTTP layer: request decoding, error
// mapping, response envelopes. Pipeline logic stays in analyst.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/datasage/datasage/internal/analyst"
	"github.com/datasage/datasage/internal/models"
	"github.com/datasage/datasage/internal/session"
)

// AskHandler handles POST /api/v1/ask
type AskHandler struct {
	analyst  *analyst.Analyst
	sessions *session.Registry
}

func NewAskHandler(a *analyst.Analyst, sessions *session.Registry) *AskHandler {
	return &AskHandler{analyst: a, sessions: sessions}
}

// Ask handles POST /api/v1/ask
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	sess, ok := h.sessions.Get(req.SessionID)
	if req.SessionID != "" && !ok {
		models.WriteError(w, http.StatusNotFound, "unknown session: "+req.SessionID)
		return
	}
	if sess == nil {
		sess = h.sessions.Create()
	}

	answer, err := h.analyst.Ask(r.Context(), req.Question, sess)
	if err != nil {
		writeTranslationError(w, err)
		return
	}

	models.WriteJSON(w, http.StatusOK, models.AskResponse{
		Status:    "success",
		SessionID: sess.ID,
		Answer:    answer,
	})
}

// CreateSession handles POST /api/v1/sessions
func (h *AskHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Create()
	models.WriteJSON(w, http.StatusCreated, map[string]string{
		"status":     "success",
		"session_id": sess.ID,
	})
}

// DropSession handles DELETE /api/v1/sessions/{session_id}
func (h *AskHandler) DropSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if _, ok := h.sessions.Get(sessionID); !ok {
		models.WriteError(w, http.StatusNotFound, "unknown session: "+sessionID)
		return
	}
	h.sessions.Drop(sessionID)
	models.WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// writeTranslationError maps the failure taxonomy onto HTTP status codes.
func writeTranslationError(w http.ResponseWriter, err error) {
	var te *analyst.TranslationError
	if !errors.As(err, &te) {
		models.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	code := http.StatusInternalServerError
	switch te.Kind {
	case analyst.KindInvalidRequest:
		code = http.StatusBadRequest
	case analyst.KindSourceUnavailable, analyst.KindConnectionLost:
		code = http.StatusServiceUnavailable
	case analyst.KindEmptySchema, analyst.KindSynthesisFailure,
		analyst.KindUnsafeStatement, analyst.KindUnknownIdentifier, analyst.KindUnsafeJoin:
		code = http.StatusUnprocessableEntity
	case analyst.KindExecutionTimeout:
		code = http.StatusGatewayTimeout
	case analyst.KindExecutionError:
		code = http.StatusInternalServerError
	}

	models.WriteKindError(w, code, string(te.Kind), te.Message, te.Detail)
}
