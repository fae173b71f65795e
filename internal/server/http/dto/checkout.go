package dto

import "github.com/shopspring/decimal"

// CustomerRequest carries delivery and contact details from the checkout form.
type CustomerRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
	Note     string `json:"note"`
}

// CartItemRequest is a cart line as kept by the storefront.
type CartItemRequest struct {
	ID    string          `json:"_id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
}

// CheckoutRequest is the create-payment body.
type CheckoutRequest struct {
	Order        CustomerRequest   `json:"order"`
	CartItems    []CartItemRequest `json:"cartItems"`
	ShippingCost *decimal.Decimal  `json:"shippingCost,omitempty"`
}

// CheckoutResponse tells the storefront where to redirect the customer.
type CheckoutResponse struct {
	URL         string `json:"url"`
	OrderNumber string `json:"orderNumber"`
	Receipt     string `json:"receipt"`
}

// ErrorResponse describes a rejected request.
type ErrorResponse struct {
	Error string `json:"error"`
}
