// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/Isaque-Sangley/recolab-v2/internal/config"
	"github.com/Isaque-Sangley/recolab-v2/internal/logging"
	"github.com/Isaque-Sangley/recolab-v2/internal/metrics"
)

// Handler processes a decoded event payload. Returning an error causes
// the failure to be logged; the message is acknowledged either way.
type Handler func(ctx context.Context, payload []byte) error

// Bus is the in-process domain event bus backed by Watermill's gochannel
// Pub/Sub. Publish is fire-and-forget from the caller's perspective:
// publishing never fails a domain operation, and subscriber errors are
// contained to the subscriber.
type Bus struct {
	pubsub *gochannel.GoChannel

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewBus creates an event bus with the given configuration.
func NewBus(cfg config.EventsConfig) *Bus {
	adapter := NewLoggerAdapter(logging.WithComponent("events"))

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            int64(cfg.BufferSize),
		Persistent:                     cfg.PersistentSubscribe,
		BlockPublishUntilSubscriberAck: false,
	}, adapter)

	return &Bus{pubsub: pubsub}
}

// Publish marshals the event as JSON and publishes it to topic.
func (b *Bus) Publish(ctx context.Context, topic string, event interface{}) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("event bus is closed")
	}
	b.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		metrics.EventPublishErrors.WithLabelValues(topic).Inc()
		return fmt.Errorf("marshal event for %s: %w", topic, err)
	}

	msg := message.NewMessage(uuid.New().String(), data)
	msg.SetContext(ctx)
	if requestID := logging.RequestIDFromContext(ctx); requestID != "" {
		msg.Metadata.Set("request_id", requestID)
	}

	if err := b.pubsub.Publish(topic, msg); err != nil {
		metrics.EventPublishErrors.WithLabelValues(topic).Inc()
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	metrics.EventsPublished.WithLabelValues(topic).Inc()
	return nil
}

// Subscribe registers a named handler for topic and starts a consumer
// goroutine. The goroutine runs until ctx is canceled or the bus closes.
// Handler errors are logged and the message acknowledged, so one bad
// event cannot wedge the topic.
func (b *Bus) Subscribe(ctx context.Context, topic, name string, handler Handler) error {
	msgs, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	logger := logging.WithComponent("events").With().
		Str("topic", topic).
		Str("handler", name).
		Logger()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for msg := range msgs {
			if err := handler(msg.Context(), msg.Payload); err != nil {
				logger.Error().
					Err(err).
					Str("message_id", msg.UUID).
					Msg("event handler failed")
			}
			msg.Ack()
		}
		logger.Debug().Msg("subscriber stopped")
	}()

	return nil
}

// Close shuts down the bus and waits for subscriber goroutines to drain.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	err := b.pubsub.Close()
	b.wg.Wait()
	return err
}
