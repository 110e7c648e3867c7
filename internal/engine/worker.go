package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/clinicware/booking-engine/internal/messaging"
	"github.com/clinicware/booking-engine/internal/observability/metrics"
	"github.com/clinicware/booking-engine/pkg/logging"
)

const (
	defaultWorkerCount = 2
	defaultWaitSeconds = 2
	defaultBatchSize   = 5
	maxWaitSeconds     = 20
	maxBatchSize       = 10
)

// Worker consumes inbound turns from the queue, drives the engine, and
// pushes the single reply back out through the sender.
type Worker struct {
	engine    *Engine
	queue     Queue
	sender    messaging.ReplySender
	processed ProcessedStore
	logger    *logging.Logger

	cfg workerConfig
	wg  sync.WaitGroup
}

type workerConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
	processed        ProcessedStore
}

// WorkerOption customizes worker behavior.
type WorkerOption func(*workerConfig)

// WithWorkerCount sets the number of concurrent consumer goroutines.
func WithWorkerCount(count int) WorkerOption {
	return func(cfg *workerConfig) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

// WithReceiveWaitSeconds sets the long-poll wait duration.
func WithReceiveWaitSeconds(seconds int) WorkerOption {
	return func(cfg *workerConfig) {
		if seconds < 0 {
			return
		}
		if seconds > maxWaitSeconds {
			seconds = maxWaitSeconds
		}
		cfg.receiveWaitSecs = seconds
	}
}

// WithReceiveBatchSize sets how many messages to fetch per poll.
func WithReceiveBatchSize(size int) WorkerOption {
	return func(cfg *workerConfig) {
		if size <= 0 {
			return
		}
		if size > maxBatchSize {
			size = maxBatchSize
		}
		cfg.receiveBatchSize = size
	}
}

// WithProcessedStore provides an idempotency store so queue redeliveries do
// not re-run a turn.
func WithProcessedStore(store ProcessedStore) WorkerOption {
	return func(cfg *workerConfig) {
		cfg.processed = store
	}
}

// NewWorker constructs a queue consumer around the engine.
func NewWorker(engine *Engine, queue Queue, sender messaging.ReplySender, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if engine == nil {
		panic("engine: engine cannot be nil")
	}
	if queue == nil {
		panic("engine: queue cannot be nil")
	}
	if sender == nil {
		panic("engine: reply sender cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := workerConfig{
		workers:          defaultWorkerCount,
		receiveWaitSecs:  defaultWaitSeconds,
		receiveBatchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Worker{
		engine:    engine,
		queue:     queue,
		sender:    sender,
		processed: cfg.processed,
		logger:    logger,
		cfg:       cfg,
	}
}

// Start launches worker goroutines until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

// Wait blocks until all worker goroutines exit.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("booking worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("booking worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Error("failed to receive booking jobs", "error", err, "worker_id", workerID)
			time.Sleep(backoff)
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if len(messages) == 0 {
			metrics.QueueDepthPolls.WithLabelValues("empty").Inc()
			continue
		}
		metrics.QueueDepthPolls.WithLabelValues("busy").Inc()

		for _, msg := range messages {
			w.handle(ctx, msg)
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg QueueMessage) {
	var payload queuePayload
	if err := json.Unmarshal([]byte(msg.Body), &payload); err != nil {
		w.logger.Error("failed to decode booking job", "error", err, "msg_id", msg.ID)
		w.deleteMessage(msg.ReceiptHandle)
		metrics.MessagesProcessed.WithLabelValues("malformed").Inc()
		return
	}
	inbound := payload.Inbound

	if w.processed != nil && inbound.MessageID != "" {
		fresh, err := w.processed.MarkProcessed(ctx, inbound.ClinicID, inbound.MessageID)
		if err != nil {
			w.logger.Warn("dedup check failed, processing anyway", "error", err, "job_id", payload.ID)
		} else if !fresh {
			w.logger.Info("skipping duplicate delivery", "job_id", payload.ID, "message_id", inbound.MessageID)
			w.deleteMessage(msg.ReceiptHandle)
			metrics.MessagesProcessed.WithLabelValues("duplicate").Inc()
			return
		}
	}

	reply, err := w.engine.HandleMessage(ctx, inbound)
	if err != nil {
		w.logger.Error("booking turn failed", "error", err, "job_id", payload.ID, "clinic_id", inbound.ClinicID)
		reply = Reply{Body: replyFailure()}
		metrics.MessagesProcessed.WithLabelValues("error").Inc()
	} else {
		metrics.MessagesProcessed.WithLabelValues("ok").Inc()
	}

	if reply.Body != "" {
		out := messaging.OutboundReply{
			ClinicID: inbound.ClinicID,
			To:       inbound.Phone,
			Body:     reply.Body,
		}
		if err := w.sender.SendReply(ctx, out); err != nil {
			// Fire-and-forget: the session already advanced.
			w.logger.Warn("reply delivery failed", "error", err, "job_id", payload.ID, "clinic_id", inbound.ClinicID)
		}
	}

	w.deleteMessage(msg.ReceiptHandle)
}

func (w *Worker) deleteMessage(receiptHandle string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.queue.Delete(ctx, receiptHandle); err != nil {
		w.logger.Error("failed to delete booking job", "error", err)
	}
}
