package httpx

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/rajapam/broker/internal/core"
)

// RecordingHandlers serves transparent-mode connection descriptors for
// download.
type RecordingHandlers struct {
	descriptors core.DescriptorStore
	logger      *slog.Logger
}

// NewRecordingHandlers constructs recording handlers.
func NewRecordingHandlers(descriptors core.DescriptorStore, logger *slog.Logger) *RecordingHandlers {
	return &RecordingHandlers{descriptors: descriptors, logger: logger}
}

func registerRecordingRoutes(mux *http.ServeMux, h *RecordingHandlers) {
	mux.HandleFunc("GET /api/recordings/{sessionId}/descriptor", h.Descriptor)
}

// Descriptor streams the stored connection descriptor for a session.
func (h *RecordingHandlers) Descriptor(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.PathValue("sessionId"))
	if sessionID == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "validation",
			Err:     errors.New("session id is required"),
		})
		return
	}

	content, filename, err := h.descriptors.Open(r.Context(), sessionID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	defer func() {
		if closeErr := content.Close(); closeErr != nil && h.logger != nil {
			h.logger.Warn("failed to close descriptor reader",
				"session_id", sessionID,
				"error", closeErr,
			)
		}
	}()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": filename,
	}))
	if _, err := io.Copy(w, content); err != nil && h.logger != nil {
		h.logger.Warn("descriptor download interrupted",
			"session_id", sessionID,
			"error", err,
		)
	}
}
