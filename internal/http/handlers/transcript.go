package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/clinicware/booking-engine/internal/engine"
	"github.com/clinicware/booking-engine/internal/messaging"
	"github.com/clinicware/booking-engine/pkg/logging"
)

// TranscriptHandler exposes recent conversation lines for operator
// debugging.
type TranscriptHandler struct {
	transcripts *engine.RedisTranscript
	logger      *logging.Logger
}

// NewTranscriptHandler creates the handler.
func NewTranscriptHandler(transcripts *engine.RedisTranscript, logger *logging.Logger) *TranscriptHandler {
	if transcripts == nil {
		panic("handlers: transcript store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &TranscriptHandler{transcripts: transcripts, logger: logger}
}

// GetTranscript returns the most recent lines for a contact, oldest first.
func (h *TranscriptHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	clinicID := strings.TrimSpace(chi.URLParam(r, "clinicID"))
	phone := messaging.NormalizeDigits(chi.URLParam(r, "phone"))
	if clinicID == "" || phone == "" {
		writeError(w, http.StatusBadRequest, "clinic id and phone required")
		return
	}

	limit := int64(50)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	lines, err := h.transcripts.Recent(r.Context(), clinicID, phone, limit)
	if err != nil {
		h.logger.Error("transcript fetch failed", "error", err, "clinic_id", clinicID)
		writeError(w, http.StatusInternalServerError, "failed to load transcript")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lines": lines})
}
