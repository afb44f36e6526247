package tracking

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wingo-backend/internal/models"
)

func TestHub_PublishToSubscribers(t *testing.T) {
	h := NewHub()
	orderID := uuid.New()

	a, unsubA := h.Subscribe(orderID)
	defer unsubA()
	b, unsubB := h.Subscribe(orderID)
	defer unsubB()
	other, unsubOther := h.Subscribe(uuid.New())
	defer unsubOther()

	event := models.OrderStatusEvent{OrderID: orderID, From: models.OrderStatusPending, Status: models.OrderStatusConfirmed, ChangedAt: time.Now()}
	h.Publish(event)

	assert.Equal(t, event, <-a)
	assert.Equal(t, event, <-b)
	select {
	case <-other:
		t.Fatal("subscriber of another order received the event")
	default:
	}
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	orderID := uuid.New()

	ch, unsub := h.Subscribe(orderID)
	assert.Equal(t, 1, h.Subscribers(orderID))

	unsub()
	unsub()
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, h.Subscribers(orderID))
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub()
	orderID := uuid.New()
	ch, unsub := h.Subscribe(orderID)
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			h.Publish(models.OrderStatusEvent{OrderID: orderID})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestHub_Close(t *testing.T) {
	h := NewHub()
	orderID := uuid.New()
	ch, unsub := h.Subscribe(orderID)

	h.Close()
	_, open := <-ch
	assert.False(t, open)
	unsub()

	late, _ := h.Subscribe(orderID)
	_, open = <-late
	require.False(t, open)
}
