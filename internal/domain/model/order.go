package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus describes payment lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusPaid    OrderStatus = "paid"
	OrderStatusFailed  OrderStatus = "failed"
)

// Terminal reports whether no further transition is allowed from the status.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusPaid || s == OrderStatusFailed
}

// Customer holds delivery and contact details captured at checkout.
type Customer struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
	Note     string `json:"note"`
}

// CartItem is a snapshot of a product taken when the order was created.
type CartItem struct {
	ID    string          `json:"_id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
}

// Order describes a single checkout attempt.
type Order struct {
	ID            int64
	Number        string
	Status        OrderStatus
	Customer      Customer
	CartItems     []CartItem
	TotalAmount   decimal.Decimal
	ShippingCost  decimal.Decimal
	Currency      string
	Gateway       string
	GatewayRef    string
	GatewayParams map[string]string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ItemIDs returns identifiers of the purchased products in cart order.
func (o *Order) ItemIDs() []string {
	ids := make([]string, 0, len(o.CartItems))
	for _, item := range o.CartItems {
		ids = append(ids, item.ID)
	}
	return ids
}
