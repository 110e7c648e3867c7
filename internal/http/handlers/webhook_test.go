package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clinicware/booking-engine/internal/engine"
	"github.com/clinicware/booking-engine/pkg/logging"
)

func newWebhookHarness(t *testing.T) (*WebhookHandler, *engine.MemoryQueue) {
	t.Helper()
	queue := engine.NewMemoryQueue(16)
	publisher := engine.NewPublisher(queue, logging.Default())
	return NewWebhookHandler(publisher, logging.Default()), queue
}

func postMessage(t *testing.T, h *WebhookHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/messages", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleMessages(rec, req)
	return rec
}

func TestHandleMessagesQueuesInbound(t *testing.T) {
	h, queue := newWebhookHarness(t)

	rec := postMessage(t, h, `{
		"clinic_id": "clinic-a",
		"from": "+55 (11) 99999-0000",
		"name": "Ana Silva",
		"text": "book a cleaning tomorrow",
		"message_id": "wamid.1"
	}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.JSONEq(t, `{"status":"queued"}`, rec.Body.String())

	messages, err := queue.Receive(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)

	var payload struct {
		ID      string         `json:"id"`
		Inbound engine.Inbound `json:"inbound"`
	}
	require.NoError(t, json.Unmarshal([]byte(messages[0].Body), &payload))
	require.NotEmpty(t, payload.ID)
	require.Equal(t, "clinic-a", payload.Inbound.ClinicID)
	require.Equal(t, "5511999990000", payload.Inbound.Phone, "phone must be normalized to digits")
	require.Equal(t, "Ana Silva", payload.Inbound.DisplayName)
	require.Equal(t, "book a cleaning tomorrow", payload.Inbound.Text)
	require.Equal(t, "wamid.1", payload.Inbound.MessageID)
}

func TestHandleMessagesRejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"missing clinic", `{"from":"+5511999990000","text":"hi"}`},
		{"missing phone", `{"clinic_id":"clinic-a","text":"hi"}`},
		{"phone without digits", `{"clinic_id":"clinic-a","from":"n/a","text":"hi"}`},
		{"empty text", `{"clinic_id":"clinic-a","from":"+5511999990000","text":"  "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, queue := newWebhookHarness(t)

			rec := postMessage(t, h, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			_, err := queue.Receive(ctx, 1, 0)
			require.ErrorIs(t, err, context.DeadlineExceeded, "nothing should be queued")
		})
	}
}

func TestHealthCheck(t *testing.T) {
	h, _ := newWebhookHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
