package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rajapam/broker/internal/service"
)

// SessionHandlers serves the session lifecycle API.
type SessionHandlers struct {
	sessions *service.SessionService
}

// NewSessionHandlers constructs session handlers.
func NewSessionHandlers(sessions *service.SessionService) *SessionHandlers {
	return &SessionHandlers{sessions: sessions}
}

func registerSessionRoutes(mux *http.ServeMux, h *SessionHandlers) {
	mux.HandleFunc("POST /api/sessions/connect", h.Connect)
	mux.HandleFunc("POST /api/sessions/{id}/disconnect", h.Disconnect)
	mux.HandleFunc("GET /api/sessions/{id}", h.Get)
}

// Connect runs the admission pipeline and provisions a session. Denials come
// back as 200 with success=false and a user-facing message; only
// infrastructure faults produce error statuses.
func (h *SessionHandlers) Connect(w http.ResponseWriter, r *http.Request) {
	var req service.ConnectRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.sessions.Connect(r.Context(), req)
	if err != nil {
		writeAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// Disconnect tears down a session's upstream resources and marks it closed.
func (h *SessionHandlers) Disconnect(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "validation",
			Err:     errors.New("session id is required"),
		})
		return
	}

	session, err := h.sessions.Disconnect(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, session)
}

// Get returns one session by id.
func (h *SessionHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "validation",
			Err:     errors.New("session id is required"),
		})
		return
	}

	session, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, session)
}
