package engine

import (
	"context"
	"testing"
)

func TestMemoryQueueSendReceive(t *testing.T) {
	q := NewMemoryQueue(4)
	ctx := context.Background()

	for _, body := range []string{"one", "two", "three"} {
		if err := q.Send(ctx, body); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}

	messages, err := q.Receive(ctx, 2, 0)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	if messages[0].Body != "one" || messages[1].Body != "two" {
		t.Errorf("unexpected batch order: %q, %q", messages[0].Body, messages[1].Body)
	}
	if messages[0].ID == "" || messages[0].ReceiptHandle == "" {
		t.Error("messages must carry an ID and receipt handle")
	}

	messages, err = q.Receive(ctx, 2, 0)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if len(messages) != 1 || messages[0].Body != "three" {
		t.Errorf("unexpected second batch: %+v", messages)
	}
}

func TestMemoryQueueReceiveTimesOutEmpty(t *testing.T) {
	q := NewMemoryQueue(4)

	messages, err := q.Receive(context.Background(), 5, 1)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("expected empty poll, got %d messages", len(messages))
	}
}

func TestMemoryQueueReceiveHonorsCancel(t *testing.T) {
	q := NewMemoryQueue(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := q.Receive(ctx, 1, 0); err == nil {
		t.Fatal("expected context error on cancelled receive")
	}
}
