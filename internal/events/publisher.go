// Package events delivers catalog change notifications after a transaction commits.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"product-catalog/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher delivers committed domain events. Delivery is best effort: a
// failed publish never undoes the change that produced the event.
type Publisher interface {
	Publish(ctx context.Context, events ...domain.Event) error
}

// LogPublisher writes every event to the structured log
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.Named("events")}
}

func (p *LogPublisher) Publish(_ context.Context, events ...domain.Event) error {
	for _, e := range events {
		p.logger.Info("Catalog event",
			zap.String("event_id", e.ID.String()),
			zap.String("type", string(e.Type)),
			zap.String("aggregate_id", e.AggregateID.String()),
			zap.Time("occurred_at", e.OccurredAt),
			zap.Any("data", e.Data),
		)
	}
	return nil
}

// RedisPublisher publishes events as JSON on a Redis pub/sub channel
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

func NewRedisPublisher(client *redis.Client, channel string, logger *zap.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel, logger: logger}
}

func (p *RedisPublisher) Publish(ctx context.Context, events ...domain.Event) error {
	var errs []error
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to encode event %s: %w", e.ID, err))
			continue
		}
		if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
			p.logger.Error("Failed to publish event",
				zap.Error(err),
				zap.String("type", string(e.Type)),
				zap.String("aggregate_id", e.AggregateID.String()),
			)
			errs = append(errs, fmt.Errorf("failed to publish event %s: %w", e.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps published events in memory. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *Recorder) Publish(_ context.Context, events ...domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

// Events returns a copy of the recorded events in publish order
func (r *Recorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event(nil), r.events...)
}

// Types lists the recorded event types in publish order
func (r *Recorder) Types() []domain.EventType {
	events := r.Events()
	out := make([]domain.EventType, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}
