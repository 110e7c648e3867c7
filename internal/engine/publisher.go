package engine

import (
	"context"
	"fmt"

	"github.com/clinicware/booking-engine/pkg/logging"
)

// Publisher enqueues inbound messages for asynchronous processing by the
// worker. The webhook handler stays fast and never blocks on the engine.
type Publisher struct {
	queue  Queue
	logger *logging.Logger
}

// NewPublisher creates a queue-backed publisher.
func NewPublisher(queue Queue, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("engine: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{queue: queue, logger: logger}
}

// EnqueueInbound publishes one inbound turn.
func (p *Publisher) EnqueueInbound(ctx context.Context, msg Inbound) error {
	if ctx == nil {
		ctx = context.Background()
	}
	payload, body, err := encodePayload(queuePayload{Inbound: msg})
	if err != nil {
		return err
	}
	if err := p.queue.Send(ctx, body); err != nil {
		return fmt.Errorf("engine: enqueue inbound: %w", err)
	}
	p.logger.Debug("inbound message enqueued", "job_id", payload.ID, "clinic_id", msg.ClinicID)
	return nil
}
