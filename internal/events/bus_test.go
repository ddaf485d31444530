// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/Isaque-Sangley/recolab-v2/internal/config"
)

func testBus(t *testing.T) *Bus {
	t.Helper()
	b := NewBus(config.EventsConfig{BufferSize: 16})
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBus_PublishSubscribe(t *testing.T) {
	b := testBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan RatingEvent, 1)
	err := b.Subscribe(ctx, TopicRatingCreated, "test", func(_ context.Context, payload []byte) error {
		var ev RatingEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return err
		}
		received <- ev
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	want := RatingEvent{UserID: 42, MovieID: 7, Score: 4.5, OccurredAt: time.Now().UTC()}
	if err := b.Publish(ctx, TopicRatingCreated, want); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-received:
		if got.UserID != want.UserID || got.MovieID != want.MovieID || got.Score != want.Score {
			t.Errorf("received %+v, want %+v", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_FailingSubscriberDoesNotBlock(t *testing.T) {
	b := testBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var handled atomic.Int64
	err := b.Subscribe(ctx, TopicModelDeployed, "failing", func(context.Context, []byte) error {
		handled.Add(1)
		return errors.New("handler boom")
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		ev := DeploymentEvent{ModelType: "neural_cf", Version: "v1", OccurredAt: time.Now()}
		if err := b.Publish(ctx, TopicModelDeployed, ev); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	deadline := time.After(2 * time.Second)
	for handled.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("handled %d events, want 3", handled.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestBus_PublishAfterClose(t *testing.T) {
	b := NewBus(config.EventsConfig{BufferSize: 1})
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := b.Publish(context.Background(), TopicRatingCreated, RatingEvent{}); err == nil {
		t.Error("expected error publishing to closed bus")
	}
}
