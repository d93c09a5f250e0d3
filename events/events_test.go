package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewLogPublisher(zap.New(core))

	err := p.Publish(context.Background(), Event{Type: OrderCreated, OrderID: "o1", Status: "pending"})
	assert.NoError(t, err)
	assert.Equal(t, 1, logs.FilterField(zap.String("order_id", "o1")).Len())
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	_ = r.Publish(context.Background(), Event{Type: OrderCreated})
	_ = r.Publish(context.Background(), Event{Type: OrderCancelled})
	assert.Equal(t, []string{OrderCreated, OrderCancelled}, r.Types())
}
