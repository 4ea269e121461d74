package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"shop-service/internal/models"
	"shop-service/internal/util"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingProducer struct {
	keys   []string
	events []interface{}
}

func (p *recordingProducer) PublishEvent(ctx context.Context, key string, event interface{}) error {
	p.keys = append(p.keys, key)
	p.events = append(p.events, event)
	return nil
}

func TestEventPublisherKeys(t *testing.T) {
	producer := &recordingProducer{}
	ep := NewEventPublisher(producer)
	ctx := context.Background()

	require.NoError(t, ep.PublishOrderPlaced(ctx, &models.OrderPlacedEvent{OrderID: 3}))
	require.NoError(t, ep.PublishOrderStatusChanged(ctx, &models.OrderStatusChangedEvent{OrderID: 3}))
	require.NoError(t, ep.PublishProductDeleted(ctx, &models.ProductDeletedEvent{ProductID: 8}))

	assert.Equal(t, []string{"order-3", "order-3", "product-8"}, producer.keys)
}

func encode(t *testing.T, event interface{}) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: raw}
}

func TestEventHandlerDispatch(t *testing.T) {
	util.SetLogger(zap.NewNop())
	eh := NewEventHandler()
	ctx := context.Background()

	var placed, deleted int64
	eh.OnOrderPlaced(func(ctx context.Context, e *models.OrderPlacedEvent) error {
		placed = e.OrderID
		return nil
	})
	eh.OnProductDeleted(func(ctx context.Context, e *models.ProductDeletedEvent) error {
		deleted = e.ProductID
		return errors.New("retry me")
	})

	require.NoError(t, eh.HandleMessage(ctx, encode(t, &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypeOrderPlaced},
		OrderID:   12,
	})))
	assert.Equal(t, int64(12), placed)

	err := eh.HandleMessage(ctx, encode(t, &models.ProductDeletedEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypeProductDeleted},
		ProductID: 4,
	}))
	assert.EqualError(t, err, "retry me")
	assert.Equal(t, int64(4), deleted)

	// no handler registered for status changes, unknown types are dropped too
	assert.NoError(t, eh.HandleMessage(ctx, encode(t, &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypeOrderStatusChanged},
	})))
	assert.NoError(t, eh.HandleMessage(ctx, encode(t, &models.BaseEvent{EventType: "SOMETHING_ELSE"})))

	assert.Error(t, eh.HandleMessage(ctx, kafka.Message{Value: []byte("not json")}))
}
