package notify

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/alert"
)

type AMQPClient struct {
	conn    *amqp.Connection
	Channel *amqp.Channel
}

func DialAMQP(url string) (*AMQPClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	return &AMQPClient{conn: conn, Channel: ch}, nil
}

func (c *AMQPClient) Close() error {
	if err := c.Channel.Close(); err != nil {
		return err
	}
	return c.conn.Close()
}

// Publisher is the part of *amqp.Channel the queue transport needs.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// QueueTransport publishes each alert as a JSON message on a durable queue,
// for downstream consumers that fan out to other channels.
type QueueTransport struct {
	pub       Publisher
	queueName string
}

// NewQueueTransport declares queueName on ch and returns a transport for it.
func NewQueueTransport(ch *amqp.Channel, queueName string) (*QueueTransport, error) {
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("rabbitmq declare %q: %w", queueName, err)
	}
	return &QueueTransport{pub: ch, queueName: queueName}, nil
}

func (q *QueueTransport) Name() string { return "amqp" }

func (q *QueueTransport) Send(ctx context.Context, e alert.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}

	return q.pub.PublishWithContext(
		ctx,
		"",
		q.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Type:         e.Kind.String(),
			Body:         body,
		},
	)
}
