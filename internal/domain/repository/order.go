package repository

import (
	"context"

	"github.com/polkiloo/artshop/internal/domain/model"
)

// OrderRepository describes persistence operations with orders.
type OrderRepository interface {
	// CreatePending stores a new order in pending status. Returns
	// ErrAlreadyExists when the order number is taken.
	CreatePending(ctx context.Context, order *model.Order) (*model.Order, error)
	// SaveGatewayParams records the exact parameters sent to the gateway.
	SaveGatewayParams(ctx context.Context, number, gateway, ref string, params map[string]string) error
	GetByNumber(ctx context.Context, number string) (*model.Order, error)
	GetByGatewayRef(ctx context.Context, gateway, ref string) (*model.Order, error)
	// ApplyResult moves a pending order to a terminal status. The boolean is
	// false when the order was already terminal and nothing changed. onPaid
	// messages are stored atomically with a transition to paid.
	ApplyResult(ctx context.Context, number string, status model.OrderStatus, onPaid []model.OutboxMessage) (*model.Order, bool, error)
}
