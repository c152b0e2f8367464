package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pkgkafka "github.com/utafrali/fitvibe/pkg/kafka"
)

// TopicOrderCreated is consumed to learn who bought what.
var TopicOrderCreated = pkgkafka.Topic("order", "created")

// OrderCreatedData is the part of the order.created payload the review
// service reads.
type OrderCreatedData struct {
	ID     string          `json:"id"`
	UserID string          `json:"user_id"`
	Items  []OrderItemData `json:"items"`
}

// OrderItemData is one line of an order.
type OrderItemData struct {
	ProductID string `json:"product_id"`
}

// PurchaseRecorder stores purchases and flags matching reviews as verified.
type PurchaseRecorder interface {
	Record(ctx context.Context, userID, productID, orderID string, at time.Time) error
}

// ConsumerHandler turns order events into purchase records.
type ConsumerHandler struct {
	purchases PurchaseRecorder
	logger    *slog.Logger
}

// NewConsumerHandler creates a new event consumer handler.
func NewConsumerHandler(purchases PurchaseRecorder, logger *slog.Logger) *ConsumerHandler {
	return &ConsumerHandler{
		purchases: purchases,
		logger:    logger,
	}
}

// Handle processes an incoming Kafka event based on its event type.
func (h *ConsumerHandler) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicOrderCreated:
		return h.handleOrderCreated(ctx, event)
	default:
		h.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (h *ConsumerHandler) handleOrderCreated(ctx context.Context, event *pkgkafka.Event) error {
	var data OrderCreatedData
	if err := event.UnmarshalData(&data); err != nil {
		// A malformed payload will not parse on retry either.
		h.logger.ErrorContext(ctx, "failed to decode order.created payload",
			slog.String("event_id", event.EventID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if data.UserID == "" {
		h.logger.WarnContext(ctx, "order.created without user, skipping",
			slog.String("event_id", event.EventID),
			slog.String("order_id", data.ID),
		)
		return nil
	}

	orderID := data.ID
	if orderID == "" {
		orderID = event.AggregateID
	}
	at := event.Timestamp
	if at.IsZero() {
		at = time.Now().UTC()
	}

	seen := make(map[string]struct{}, len(data.Items))
	for _, item := range data.Items {
		if item.ProductID == "" {
			continue
		}
		if _, dup := seen[item.ProductID]; dup {
			continue
		}
		seen[item.ProductID] = struct{}{}

		if err := h.purchases.Record(ctx, data.UserID, item.ProductID, orderID, at); err != nil {
			return fmt.Errorf("record purchase of %s: %w", item.ProductID, err)
		}
	}

	h.logger.InfoContext(ctx, "recorded purchases from order",
		slog.String("order_id", orderID),
		slog.String("user_id", data.UserID),
		slog.Int("products", len(seen)),
	)
	return nil
}

// NewOrderConsumer builds the order.created consumer. Duplicate deliveries
// are filtered through store and exhausted messages are parked on dlq.
func NewOrderConsumer(brokers []string, groupID string, handler *ConsumerHandler, store pkgkafka.IdempotencyStore, dlq *pkgkafka.DLQProducer, logger *slog.Logger) *pkgkafka.Consumer {
	cfg := pkgkafka.ConsumerConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    TopicOrderCreated,
		MinBytes: 1,
		MaxBytes: 10e6,
	}

	consumer := pkgkafka.NewConsumer(cfg, pkgkafka.IdempotentHandler(store, handler.Handle, logger), logger)
	if dlq != nil {
		consumer = consumer.WithDLQ(dlq)
	}
	return consumer
}
