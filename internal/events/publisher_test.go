package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"product-catalog/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedisPublisher_PublishesJSON(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, "catalog.events")
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	publisher := NewRedisPublisher(client, "catalog.events", zap.NewNop())
	id := uuid.New()
	event := domain.NewEvent(domain.ProductCreated, id, map[string]interface{}{"slug": "laptop-hp-pavilion-15"}, time.Now())
	require.NoError(t, publisher.Publish(ctx, event))

	select {
	case msg := <-sub.Channel():
		var got domain.Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, event.ID, got.ID)
		assert.Equal(t, domain.ProductCreated, got.Type)
		assert.Equal(t, id, got.AggregateID)
		assert.Equal(t, "laptop-hp-pavilion-15", got.Data["slug"])
	case <-ctx.Done():
		t.Fatal("event was not delivered")
	}
}

func TestRedisPublisher_ReportsFailure(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	publisher := NewRedisPublisher(client, "catalog.events", zap.NewNop())
	err = publisher.Publish(context.Background(), domain.NewEvent(domain.BrandDeleted, uuid.New(), nil, time.Now()))
	assert.Error(t, err)
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	publisher := NewLogPublisher(zap.New(core))

	id := uuid.New()
	require.NoError(t, publisher.Publish(context.Background(),
		domain.NewEvent(domain.CategoryCreated, id, nil, time.Now()),
		domain.NewEvent(domain.CategoryDeleted, id, nil, time.Now()),
	))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "category.created", entries[0].ContextMap()["type"])
	assert.Equal(t, id.String(), entries[1].ContextMap()["aggregate_id"])
}

func TestRecorder_ConcurrentPublish(t *testing.T) {
	recorder := &Recorder{}
	id := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = recorder.Publish(context.Background(), domain.NewEvent(domain.ProductUpdated, id, nil, time.Now()))
		}()
	}
	wg.Wait()

	assert.Len(t, recorder.Events(), 20)
	assert.Len(t, recorder.Types(), 20)
}
