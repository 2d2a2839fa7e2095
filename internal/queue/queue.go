// Package queue runs analysis jobs, either in-process or through RabbitMQ
// workers.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// AnalyzeQueue is the durable queue consumed by workers.
const AnalyzeQueue = "analyze_queue"

// retryDelay is how long a failed delivery waits in the retry queue.
const retryDelay = 10 * time.Second

// Job is one analysis request.
type Job struct {
	TaskID   string `json:"task_id"`
	BookID   string `json:"book_id"`
	Title    string `json:"title"`
	Filename string `json:"filename"`
	APIKey   string `json:"api_key,omitempty"`
}

// Dispatcher starts jobs without waiting for them to finish.
type Dispatcher interface {
	Submit(ctx context.Context, job Job) error
}

type AMQPConfig struct {
	User     string
	Password string
	Host     string
	Port     string
}

func (c AMQPConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", c.User, c.Password, c.Host, c.Port)
}

func Dial(c AMQPConfig) (*amqp091.Connection, error) {
	conn, err := amqp091.Dial(c.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// SetupQueues declares each queue together with its dead-letter queue and a
// retry queue that routes expired messages back to it.
func SetupQueues(ch *amqp091.Channel, queueNames ...string) error {
	for _, name := range queueNames {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare %s: %w", name, err)
		}

		dlqName := name + "_dlq"
		if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare %s: %w", dlqName, err)
		}

		retryName := name + "_retry"
		_, err := ch.QueueDeclare(
			retryName,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			amqp091.Table{
				"x-message-ttl":             int32(retryDelay / time.Millisecond),
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": name,
			},
		)
		if err != nil {
			return fmt.Errorf("declare %s: %w", retryName, err)
		}
	}
	return nil
}

// PublishFIFO publishes a persistent message on the default exchange.
func PublishFIFO(ctx context.Context, ch *amqp091.Channel, queueName string, data []byte, headers amqp091.Table) error {
	return ch.PublishWithContext(
		ctx,
		"",
		queueName,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         data,
			Headers:      headers,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
		},
	)
}
