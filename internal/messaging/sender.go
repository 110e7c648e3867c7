package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/clinicware/booking-engine/pkg/logging"
)

// OutboundReply is one reply headed back to the contact.
type OutboundReply struct {
	ClinicID string `json:"clinic_id"`
	To       string `json:"to"`
	Body     string `json:"body"`
}

// ReplySender delivers replies to the external transport. Delivery is
// fire-and-forget: the engine never rolls back session state on a failed
// send.
type ReplySender interface {
	SendReply(ctx context.Context, reply OutboundReply) error
}

// WebhookSender posts replies as JSON to the transport layer's webhook.
type WebhookSender struct {
	url    string
	client *http.Client
	logger *logging.Logger
}

var _ ReplySender = (*WebhookSender)(nil)

// NewWebhookSender creates a sender targeting the given webhook URL.
func NewWebhookSender(url string, timeout time.Duration, logger *logging.Logger) *WebhookSender {
	if url == "" {
		panic("messaging: webhook url required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// SendReply posts the reply payload. Non-2xx responses are errors; callers
// log and move on.
func (s *WebhookSender) SendReply(ctx context.Context, reply OutboundReply) error {
	body, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("messaging: marshal reply: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("messaging: build reply request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("messaging: send reply: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("messaging: reply webhook returned %d", resp.StatusCode)
	}
	return nil
}

// LogSender writes replies to the log instead of a transport. Used in
// development and as the default when no webhook is configured.
type LogSender struct {
	logger *logging.Logger
}

var _ ReplySender = (*LogSender)(nil)

// NewLogSender creates a log-only sender.
func NewLogSender(logger *logging.Logger) *LogSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogSender{logger: logger}
}

// SendReply logs the reply body.
func (s *LogSender) SendReply(_ context.Context, reply OutboundReply) error {
	s.logger.Info("outbound reply", "clinic_id", reply.ClinicID, "to", reply.To, "body", reply.Body)
	return nil
}
