package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/OFFIS-RIT/bookgraph/pkg/logger"
)

// maxRetries is how often a delivery is retried before it goes to the
// dead-letter queue.
const maxRetries = 10

// AMQPDispatcher publishes jobs to the analyze queue for cmd/worker.
type AMQPDispatcher struct {
	mu sync.Mutex
	ch *amqp091.Channel
}

var _ Dispatcher = (*AMQPDispatcher)(nil)

func NewAMQPDispatcher(conn *amqp091.Connection) (*AMQPDispatcher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := SetupQueues(ch, AnalyzeQueue); err != nil {
		_ = ch.Close()
		return nil, err
	}
	return &AMQPDispatcher{ch: ch}, nil
}

// Submit publishes job. Channels are not safe for concurrent publishing, so
// calls are serialized.
func (d *AMQPDispatcher) Submit(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := PublishFIFO(ctx, d.ch, AnalyzeQueue, data, nil); err != nil {
		return fmt.Errorf("publish job %s: %w", job.TaskID, err)
	}
	return nil
}

func (d *AMQPDispatcher) Close() error {
	return d.ch.Close()
}

// Worker consumes the analyze queue and runs one job at a time.
type Worker struct {
	conn   *amqp091.Connection
	runner *Runner
}

func NewWorker(conn *amqp091.Connection, runner *Runner) *Worker {
	return &Worker{conn: conn, runner: runner}
}

// Run consumes until ctx is done or the delivery channel closes.
func (w *Worker) Run(ctx context.Context) error {
	ch, err := w.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open consumer channel: %w", err)
	}
	defer ch.Close()

	if err := SetupQueues(ch, AnalyzeQueue); err != nil {
		return err
	}
	// prefetch=1 so a worker holds a single book at a time
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.ConsumeWithContext(ctx, AnalyzeQueue, AnalyzeQueue+"_consumer", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	logger.Info("[Queue] Listening for messages", "queue", AnalyzeQueue)
	for {
		select {
		case <-ctx.Done():
			logger.Info("[Queue] Stopping consumer", "queue", AnalyzeQueue)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("[Queue] Message channel closed", "queue", AnalyzeQueue)
				return nil
			}
			w.handle(ctx, ch, msg)
		}
	}
}

func (w *Worker) handle(ctx context.Context, ch *amqp091.Channel, msg amqp091.Delivery) {
	start := time.Now()

	var job Job
	if err := json.Unmarshal(msg.Body, &job); err != nil || job.TaskID == "" {
		logger.Error("[Queue] Dropping malformed message", "err", err)
		if err := deadLetter(ctx, ch, msg); err != nil {
			logger.Error("[Queue] Failed to publish to DLQ", "err", err)
		}
		return
	}

	logger.Info("[Queue] Received job", "task_id", job.TaskID, "book_id", job.BookID)
	if err := w.runner.Run(ctx, job); err != nil {
		logger.Error("[Queue] Error processing message", "task_id", job.TaskID, "err", err)
		retryOrDeadLetter(ctx, ch, msg)
		return
	}
	if err := msg.Ack(false); err != nil {
		logger.Error("[Queue] Failed to ack message", "err", err)
	}
	logger.Info("[Queue] Message processed", "task_id", job.TaskID, "duration", time.Since(start).Round(time.Second))
}

func retryCount(headers amqp091.Table) int {
	switch v := headers["x-retries"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func retryOrDeadLetter(ctx context.Context, ch *amqp091.Channel, msg amqp091.Delivery) {
	retries := retryCount(msg.Headers)
	if retries >= maxRetries {
		if err := deadLetter(ctx, ch, msg); err != nil {
			logger.Error("[Queue] Failed to publish to DLQ", "err", err)
		}
		return
	}

	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["x-retries"] = int32(retries + 1)

	if err := PublishFIFO(ctx, ch, AnalyzeQueue+"_retry", msg.Body, headers); err != nil {
		logger.Error("[Queue] Failed to publish to retry queue", "err", err)
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}

func deadLetter(ctx context.Context, ch *amqp091.Channel, msg amqp091.Delivery) error {
	if err := PublishFIFO(ctx, ch, AnalyzeQueue+"_dlq", msg.Body, msg.Headers); err != nil {
		_ = msg.Nack(false, true)
		return err
	}
	return msg.Ack(false)
}
