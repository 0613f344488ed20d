package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Event types emitted on the order stream.
const (
	TypeOrderPlaced        = "order.placed"
	TypeOrderStatusChanged = "order.status_changed"
)

// BaseEvent carries the envelope fields shared by every event.
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent is published after an order is persisted.
type OrderPlacedEvent struct {
	BaseEvent
	OrderID    uuid.UUID `json:"order_id"`
	UserID     uuid.UUID `json:"user_id"`
	TotalPrice float64   `json:"total_price"`
	ItemCount  int       `json:"item_count"`
	IsPaid     bool      `json:"is_paid"`
}

// OrderStatusChangedEvent is published after an admin status update.
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID   uuid.UUID          `json:"order_id"`
	Status    domain.OrderStatus `json:"status"`
	UpdatedBy uuid.UUID          `json:"updated_by"`
}

// Publisher emits order events. Publishing is best-effort: callers log
// failures and proceed, they never fail the request over a broker error.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, order *domain.Order) error
	PublishOrderStatusChanged(ctx context.Context, order *domain.Order, updatedBy uuid.UUID) error
	Close() error
}

type kafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher writing to the given topic. With no
// brokers configured it returns a no-op publisher.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) Publisher {
	if len(brokers) == 0 {
		logger.Warn("no kafka brokers configured, order events disabled")
		return &noopPublisher{}
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}

	return &kafkaPublisher{writer: writer}
}

func (p *kafkaPublisher) publish(ctx context.Context, key string, event any) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

func (p *kafkaPublisher) PublishOrderPlaced(ctx context.Context, order *domain.Order) error {
	return p.publish(ctx, order.ID.String(), OrderPlacedEvent{
		BaseEvent: BaseEvent{
			EventID:   uuid.New().String(),
			EventType: TypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:    order.ID,
		UserID:     order.UserID,
		TotalPrice: order.TotalPrice,
		ItemCount:  len(order.OrderItems),
		IsPaid:     order.IsPaid,
	})
}

func (p *kafkaPublisher) PublishOrderStatusChanged(ctx context.Context, order *domain.Order, updatedBy uuid.UUID) error {
	return p.publish(ctx, order.ID.String(), OrderStatusChangedEvent{
		BaseEvent: BaseEvent{
			EventID:   uuid.New().String(),
			EventType: TypeOrderStatusChanged,
			Timestamp: time.Now(),
		},
		OrderID:   order.ID,
		Status:    order.Status,
		UpdatedBy: updatedBy,
	})
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

type noopPublisher struct{}

func (noopPublisher) PublishOrderPlaced(context.Context, *domain.Order) error { return nil }
func (noopPublisher) PublishOrderStatusChanged(context.Context, *domain.Order, uuid.UUID) error {
	return nil
}
func (noopPublisher) Close() error { return nil }
