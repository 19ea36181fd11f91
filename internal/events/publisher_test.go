package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSender struct {
	mu       sync.Mutex
	messages []Message
	sendErr  error
	result   SendResult
	hold     chan struct{}
}

func (f *fakeSender) SendAsync(_ context.Context, msg Message) (<-chan SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.messages = append(f.messages, msg)
	out := make(chan SendResult, 1)
	go func() {
		if f.hold != nil {
			<-f.hold
		}
		out <- f.result
	}()
	return out, nil
}

func (f *fakeSender) sent() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.messages...)
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	return zap.New(core), logs
}

func createdEvent() ProductCreated {
	return ProductCreated{
		Header: Header{
			EventID:        "evt-1",
			EventType:      EventProductCreated,
			ProductID:      42,
			ProductName:    "Widget",
			EventTimestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		},
		Category: "Tools",
		Price:    decimal.RequireFromString("9.99"),
		Quantity: 3,
	}
}

func TestPublish_SendsKeyedMessage(t *testing.T) {
	sender := &fakeSender{result: SendResult{Stream: "PRODUCT_EVENTS", Sequence: 7}}
	logger, logs := observedLogger()
	p := NewBestEffortPublisher(PublisherConfig{Enabled: true, Topic: "product-events"}, sender, logger)

	p.Publish(context.Background(), createdEvent())
	require.NoError(t, p.Close(context.Background()))

	msgs := sender.sent()
	require.Len(t, msgs, 1)
	assert.Equal(t, "product-events", msgs[0].Topic)
	assert.Equal(t, "product-42", msgs[0].Key)
	assert.Equal(t, "evt-1", msgs[0].ID)

	var body map[string]any
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &body))
	assert.Equal(t, "ProductCreatedEvent", body["eventType"])
	assert.Equal(t, float64(42), body["productId"])
	assert.Equal(t, "Widget", body["productName"])
	assert.Equal(t, "Tools", body["category"])

	assert.Equal(t, 1, logs.FilterMessage("event published").Len())
}

func TestPublish_DisabledSkips(t *testing.T) {
	sender := &fakeSender{}
	logger, logs := observedLogger()
	p := NewBestEffortPublisher(PublisherConfig{Enabled: false, Topic: "product-events"}, sender, logger)

	p.Publish(context.Background(), createdEvent())

	assert.Empty(t, sender.sent())
	assert.Equal(t, 1, logs.FilterMessage("messaging disabled; skipping event").Len())
}

func TestPublish_SendErrorIsSwallowed(t *testing.T) {
	sender := &fakeSender{sendErr: errors.New("no servers available")}
	logger, logs := observedLogger()
	p := NewBestEffortPublisher(PublisherConfig{Enabled: true, Topic: "product-events"}, sender, logger)

	assert.NotPanics(t, func() {
		p.Publish(context.Background(), ProductDeleted{Header: Header{EventType: EventProductDeleted, ProductID: 1}})
	})
	require.NoError(t, p.Close(context.Background()))
	assert.Equal(t, 1, logs.FilterMessage("could not publish event; broker may be unavailable").Len())
}

func TestPublish_FailedAckIsLogged(t *testing.T) {
	sender := &fakeSender{result: SendResult{Err: errors.New("nack")}}
	logger, logs := observedLogger()
	p := NewBestEffortPublisher(PublisherConfig{Enabled: true, Topic: "product-events"}, sender, logger)

	p.Publish(context.Background(), ProductUpdated{Header: Header{EventType: EventProductUpdated, ProductID: 5}, FieldUpdated: "PRICE"})
	require.NoError(t, p.Close(context.Background()))

	assert.Equal(t, 1, logs.FilterMessage("failed to publish event").Len())
}

func TestPublish_AckTimeout(t *testing.T) {
	sender := &fakeSender{hold: make(chan struct{})}
	defer close(sender.hold)
	logger, logs := observedLogger()
	p := NewBestEffortPublisher(PublisherConfig{Enabled: true, Topic: "t", AckTimeout: 20 * time.Millisecond}, sender, logger)

	p.Publish(context.Background(), createdEvent())
	require.NoError(t, p.Close(context.Background()))

	assert.Equal(t, 1, logs.FilterMessage("event acknowledgement timed out").Len())
}

func TestClose_HonoursContext(t *testing.T) {
	sender := &fakeSender{hold: make(chan struct{})}
	defer close(sender.hold)
	p := NewBestEffortPublisher(PublisherConfig{Enabled: true, Topic: "t", AckTimeout: time.Minute}, sender, zap.NewNop())

	p.Publish(context.Background(), createdEvent())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Close(ctx), context.DeadlineExceeded)
}

func TestUpdatedEvent_JSONShape(t *testing.T) {
	out, err := json.Marshal(ProductUpdated{
		Header:       Header{EventID: "e", EventType: EventProductUpdated, ProductID: 3, ProductName: "Gadget"},
		FieldUpdated: "QUANTITY",
		OldValue:     "1",
		NewValue:     "2",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"eventId":"e","eventType":"ProductUpdatedEvent","productId":3,"productName":"Gadget",
		"eventTimestamp":"0001-01-01T00:00:00Z","fieldUpdated":"QUANTITY","oldValue":"1","newValue":"2"
	}`, string(out))
}
