package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Queue is the transport between the inbound webhook and the conversation
// worker. MemoryQueue and SQSQueue implement it.
type Queue interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]QueueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

// QueueMessage is one raw item pulled off the queue.
type QueueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// queuePayload is the wire envelope for one inbound turn.
type queuePayload struct {
	ID      string  `json:"id"`
	Inbound Inbound `json:"inbound"`
}

func encodePayload(payload queuePayload) (queuePayload, string, error) {
	if payload.ID == "" {
		payload.ID = uuid.NewString()
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return queuePayload{}, "", fmt.Errorf("engine: encode payload: %w", err)
	}
	return payload, string(body), nil
}
