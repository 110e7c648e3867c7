// Package handlers contains the HTTP handlers exposed by the booking API.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/clinicware/booking-engine/internal/engine"
	"github.com/clinicware/booking-engine/internal/messaging"
	"github.com/clinicware/booking-engine/pkg/logging"
)

// InboundMessage is the webhook payload posted by the messaging transport.
type InboundMessage struct {
	ClinicID    string `json:"clinic_id"`
	From        string `json:"from"`
	DisplayName string `json:"name,omitempty"`
	Text        string `json:"text"`
	MessageID   string `json:"message_id,omitempty"`
}

// WebhookHandler accepts inbound contact messages and enqueues them for the
// worker. The webhook never waits on the conversation engine.
type WebhookHandler struct {
	publisher *engine.Publisher
	logger    *logging.Logger
}

// NewWebhookHandler creates the handler.
func NewWebhookHandler(publisher *engine.Publisher, logger *logging.Logger) *WebhookHandler {
	if publisher == nil {
		panic("handlers: publisher required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{publisher: publisher, logger: logger}
}

// HandleMessages processes POST /webhooks/messages.
func (h *WebhookHandler) HandleMessages(w http.ResponseWriter, r *http.Request) {
	var payload InboundMessage
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	payload.ClinicID = strings.TrimSpace(payload.ClinicID)
	phone := messaging.NormalizeDigits(payload.From)
	if payload.ClinicID == "" || phone == "" {
		writeError(w, http.StatusBadRequest, "clinic_id and from are required")
		return
	}
	if strings.TrimSpace(payload.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	msg := engine.Inbound{
		ClinicID:    payload.ClinicID,
		Phone:       phone,
		DisplayName: strings.TrimSpace(payload.DisplayName),
		Text:        payload.Text,
		MessageID:   strings.TrimSpace(payload.MessageID),
	}
	if err := h.publisher.EnqueueInbound(r.Context(), msg); err != nil {
		h.logger.Error("failed to enqueue inbound message", "error", err, "clinic_id", msg.ClinicID)
		writeError(w, http.StatusInternalServerError, "failed to queue message")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// HealthCheck reports liveness.
func (h *WebhookHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
