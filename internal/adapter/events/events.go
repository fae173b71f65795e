// Package events publishes order lifecycle events for downstream consumers.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// OrderPaidType is the event type emitted once an order is paid.
const OrderPaidType = "order.paid"

// OrderEvent is the JSON document published for an order.
type OrderEvent struct {
	Type        string          `json:"type"`
	OrderNumber string          `json:"orderNumber"`
	Gateway     string          `json:"gateway"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Currency    string          `json:"currency"`
	ItemIDs     []string        `json:"itemIds"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// Publisher delivers order events.
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

// NopPublisher drops events. It is used when no broker is configured.
type NopPublisher struct {
	logger *slog.Logger
}

func NewNopPublisher(logger *slog.Logger) *NopPublisher {
	return &NopPublisher{logger: logger}
}

func (p *NopPublisher) Publish(_ context.Context, event OrderEvent) error {
	p.logger.Debug("order event dropped, no broker configured",
		slog.String("type", event.Type),
		slog.String("order", event.OrderNumber),
	)
	return nil
}

func (p *NopPublisher) Close() error { return nil }
