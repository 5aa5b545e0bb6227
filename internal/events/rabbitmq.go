package events

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/historyguide/apiserver/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQClient publishes to queues over a single AMQP channel.
type RabbitMQClient struct {
	conn         *amqp.Connection
	channel      *amqp.Channel
	queueDurable bool

	mu       sync.Mutex
	declared map[string]bool
}

// NewRabbitMQClient constructs a RabbitMQ client from config.
func NewRabbitMQClient(cfg config.RabbitMQConfig) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &RabbitMQClient{
		conn:         conn,
		channel:      ch,
		queueDurable: cfg.QueueDurable,
		declared:     make(map[string]bool),
	}, nil
}

// Publish sends a message to the named queue.
func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("rabbitmq channel is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.declared[channel] {
		if _, err := r.channel.QueueDeclare(channel, r.queueDurable, false, false, false, nil); err != nil {
			return "", err
		}
		r.declared[channel] = true
	}

	headers := amqp.Table{}
	for key, value := range attrs {
		headers[key] = value
	}

	messageID := uuid.NewString()
	deliveryMode := amqp.Transient
	if r.queueDurable {
		deliveryMode = amqp.Persistent
	}
	err := r.channel.PublishWithContext(ctx, "", channel, false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    messageID,
		Headers:      headers,
		DeliveryMode: deliveryMode,
		Body:         data,
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}

// Close closes the underlying channel and connection.
func (r *RabbitMQClient) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
