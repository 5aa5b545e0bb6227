// Package events publishes audit events to a message broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/historyguide/apiserver/types"
)

// Backend defines the broker operations used for publishing.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

const (
	DefaultTimeout = 5 * time.Second
	maxInFlight    = 64
)

// Publisher encodes events as JSON and hands them to a Backend.
// A Publisher without a backend drops every event.
type Publisher struct {
	backend Backend
	channel string
	logger  *slog.Logger
	now     func() time.Time
	timeout time.Duration

	slots    chan struct{}
	inFlight sync.WaitGroup
}

// NewPublisher constructs a Publisher. backend may be nil.
func NewPublisher(backend Backend, channel string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		backend: backend,
		channel: channel,
		logger:  logger,
		now:     time.Now,
		timeout: DefaultTimeout,
		slots:   make(chan struct{}, maxInFlight),
	}
}

// Publish sends event, filling in ID and OccurredAt when unset.
func (p *Publisher) Publish(ctx context.Context, event types.Event) error {
	if p.backend == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = p.now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	attrs := map[string]string{
		"type":     string(event.Type),
		"event_id": event.ID,
	}
	if _, err := p.backend.Publish(ctx, p.channel, data, attrs); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Emit publishes an event of type typ for userID in the background and returns
// immediately. Each publish gets its own deadline detached from ctx. When
// maxInFlight publishes are pending the event is dropped. Failures are logged.
func (p *Publisher) Emit(ctx context.Context, typ types.EventType, userID int) {
	if p.backend == nil {
		return
	}
	event := types.Event{Type: typ, UserID: userID}

	select {
	case p.slots <- struct{}{}:
	default:
		p.logger.WarnContext(ctx, "audit event dropped", "type", typ, "user_id", userID, "error", "too many pending events")
		return
	}

	p.inFlight.Add(1)
	go func() {
		defer p.inFlight.Done()
		defer func() { <-p.slots }()

		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()
		if err := p.Publish(pubCtx, event); err != nil {
			p.logger.WarnContext(pubCtx, "audit event dropped", "type", typ, "user_id", userID, "error", err)
		}
	}()
}

// Close waits for pending publishes and closes the underlying backend.
func (p *Publisher) Close() error {
	p.inFlight.Wait()
	if p.backend == nil {
		return nil
	}
	return p.backend.Close()
}
