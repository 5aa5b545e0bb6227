package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/historyguide/apiserver/config"
)

// Open builds a Publisher for the configured backend. An empty backend
// yields a Publisher that drops events.
func Open(ctx context.Context, cfg config.EventsConfig, logger *slog.Logger) (*Publisher, error) {
	var backend Backend
	switch cfg.Backend {
	case "":
	case "rabbitmq":
		client, err := NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		backend = client
	case "pubsub":
		client, err := NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("connect pubsub: %w", err)
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
	p := NewPublisher(backend, cfg.Channel, logger)
	if cfg.Timeout > 0 {
		p.timeout = cfg.Timeout
	}
	return p, nil
}
