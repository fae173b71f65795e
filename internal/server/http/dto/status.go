package dto

import "encoding/json"

// OrderStatusResponse reports the payment state of an order.
type OrderStatusResponse struct {
	OrderNumber string      `json:"orderNumber"`
	Status      string      `json:"status"`
	TotalAmount json.Number `json:"totalAmount"`
	Currency    string      `json:"currency"`
}

// HealthResponse reports service readiness.
type HealthResponse struct {
	Status string `json:"status"`
}
