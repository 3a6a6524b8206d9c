package orders

import (
	"context"
	"encoding/json"
	"time"

	"restoran-pos/internal/models"

	"go.uber.org/zap"
)

const (
	SubjectOrderCreated       = "orders.created"
	SubjectOrderStatusChanged = "orders.status_changed"

	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// Publisher delivers committed order events. Implementations must not block for long.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload []byte) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, []byte) error { return nil }

// OrderEvent is published after the transaction commits, never before.
type OrderEvent struct {
	EventType      string             `json:"eventType"`
	OccurredAt     time.Time          `json:"occurredAt"`
	OrderID        string             `json:"orderId"`
	Number         int64              `json:"number"`
	DateKey        string             `json:"dateKey"`
	LocationID     *string            `json:"locationId"`
	Table          *string            `json:"table,omitempty"`
	Status         models.OrderStatus `json:"status"`
	PreviousStatus models.OrderStatus `json:"previousStatus,omitempty"`
	Total          int64              `json:"total"`
	Items          []models.OrderItem `json:"items,omitempty"`
	ActorID        string             `json:"actorId"`
}

func newOrderEvent(eventType string, o *models.Order, at time.Time, actorID string) OrderEvent {
	return OrderEvent{
		EventType:  eventType,
		OccurredAt: at,
		OrderID:    o.ID,
		Number:     o.Number,
		DateKey:    o.DateKey,
		LocationID: o.LocationID,
		Table:      o.Table,
		Status:     o.Status,
		Total:      o.Total,
		ActorID:    actorID,
	}
}

// publish is best effort: the order is already committed, a lost event is only logged.
func (s *Service) publish(ctx context.Context, subject string, evt OrderEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		s.log.Error("order event marshal failed", zap.String("order_id", evt.OrderID), zap.Error(err))
		return
	}
	if err := s.events.Publish(ctx, subject, payload); err != nil {
		s.log.Warn("order event publish failed",
			zap.String("subject", subject),
			zap.String("order_id", evt.OrderID),
			zap.Error(err))
	}
}
