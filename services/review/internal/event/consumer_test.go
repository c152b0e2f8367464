package event

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	pkgkafka "github.com/utafrali/fitvibe/pkg/kafka"
)

type mockPurchaseRecorder struct {
	mock.Mock
}

func (m *mockPurchaseRecorder) Record(ctx context.Context, userID, productID, orderID string, at time.Time) error {
	args := m.Called(ctx, userID, productID, orderID, at)
	return args.Error(0)
}

var orderTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestEvent(eventType string, data any) *pkgkafka.Event {
	dataBytes, _ := json.Marshal(data)
	return &pkgkafka.Event{
		EventID:       "evt-test-123",
		EventType:     eventType,
		AggregateID:   "o-1",
		AggregateType: "order",
		Version:       1,
		Timestamp:     orderTime,
		Source:        "order-service",
		Data:          dataBytes,
	}
}

func TestHandle_OrderCreated_RecordsEachProductOnce(t *testing.T) {
	rec := new(mockPurchaseRecorder)
	h := NewConsumerHandler(rec, discardLogger())

	rec.On("Record", mock.Anything, "u-1", "p-1", "o-1", orderTime).Return(nil).Once()
	rec.On("Record", mock.Anything, "u-1", "p-2", "o-1", orderTime).Return(nil).Once()

	evt := newTestEvent(TopicOrderCreated, OrderCreatedData{
		ID:     "o-1",
		UserID: "u-1",
		Items:  []OrderItemData{{ProductID: "p-1"}, {ProductID: "p-2"}, {ProductID: "p-1"}, {ProductID: ""}},
	})
	require.NoError(t, h.Handle(context.Background(), evt))
	rec.AssertExpectations(t)
}

func TestHandle_OrderCreated_FallsBackToAggregateID(t *testing.T) {
	rec := new(mockPurchaseRecorder)
	h := NewConsumerHandler(rec, discardLogger())

	rec.On("Record", mock.Anything, "u-1", "p-1", "o-1", orderTime).Return(nil).Once()

	evt := newTestEvent(TopicOrderCreated, OrderCreatedData{UserID: "u-1", Items: []OrderItemData{{ProductID: "p-1"}}})
	require.NoError(t, h.Handle(context.Background(), evt))
	rec.AssertExpectations(t)
}

func TestHandle_OrderCreated_RecordErrorIsReturned(t *testing.T) {
	rec := new(mockPurchaseRecorder)
	h := NewConsumerHandler(rec, discardLogger())

	rec.On("Record", mock.Anything, "u-1", "p-1", "o-1", orderTime).Return(errors.New("db down"))

	evt := newTestEvent(TopicOrderCreated, OrderCreatedData{ID: "o-1", UserID: "u-1", Items: []OrderItemData{{ProductID: "p-1"}}})
	err := h.Handle(context.Background(), evt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record purchase of p-1")
}

func TestHandle_OrderCreated_BadPayloadIsDropped(t *testing.T) {
	rec := new(mockPurchaseRecorder)
	h := NewConsumerHandler(rec, discardLogger())

	evt := newTestEvent(TopicOrderCreated, nil)
	evt.Data = json.RawMessage(`{"items": "nope"}`)

	assert.NoError(t, h.Handle(context.Background(), evt))
	rec.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandle_OrderCreated_NoUserIsSkipped(t *testing.T) {
	rec := new(mockPurchaseRecorder)
	h := NewConsumerHandler(rec, discardLogger())

	evt := newTestEvent(TopicOrderCreated, OrderCreatedData{ID: "o-1", Items: []OrderItemData{{ProductID: "p-1"}}})
	assert.NoError(t, h.Handle(context.Background(), evt))
	rec.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandle_UnknownEventType(t *testing.T) {
	rec := new(mockPurchaseRecorder)
	h := NewConsumerHandler(rec, discardLogger())

	assert.NoError(t, h.Handle(context.Background(), newTestEvent("ecommerce.cart.updated", struct{}{})))
}

func TestHandle_IdempotentRedelivery(t *testing.T) {
	rec := new(mockPurchaseRecorder)
	h := NewConsumerHandler(rec, discardLogger())
	handle := pkgkafka.IdempotentHandler(pkgkafka.NewMemoryIdempotencyStore(time.Hour), h.Handle, discardLogger())

	rec.On("Record", mock.Anything, "u-1", "p-1", "o-1", orderTime).Return(nil).Once()

	evt := newTestEvent(TopicOrderCreated, OrderCreatedData{ID: "o-1", UserID: "u-1", Items: []OrderItemData{{ProductID: "p-1"}}})
	require.NoError(t, handle(context.Background(), evt))
	require.NoError(t, handle(context.Background(), evt))
	rec.AssertNumberOfCalls(t, "Record", 1)
}
