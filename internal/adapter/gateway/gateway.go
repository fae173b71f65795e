// Package gateway implements the payment gateways the shop can redirect a
// customer to. Each gateway initiates a payment for a pending order and
// authenticates the result callback it later delivers.
package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/polkiloo/artshop/internal/domain/model"
)

// Initiation is what a gateway returns when a payment has been set up.
type Initiation struct {
	// URL the customer is redirected to.
	URL string
	// Params are the parameters sent to the gateway, kept for audit.
	Params map[string]string
	// Reference is the gateway's own identifier of the payment.
	Reference string
}

// CallbackResult is an authenticated payment result.
type CallbackResult struct {
	OrderNumber string
	Reference   string
	// Status is paid or failed, or empty when the gateway reported an
	// intermediate state that must not change the order.
	Status  model.OrderStatus
	Code    string
	Message string
}

// Final reports whether the result settles the order.
func (r *CallbackResult) Final() bool {
	return r != nil && r.Status.Terminal()
}

// Response is the HTTP reply a gateway expects to its callback.
type Response struct {
	Status      int
	ContentType string
	Body        string
	Location    string
}

func textResponse(status int, body string) Response {
	return Response{Status: status, ContentType: "text/plain; charset=utf-8", Body: body}
}

func redirectResponse(location string) Response {
	return Response{Status: http.StatusFound, Location: location}
}

// Gateway is a payment gateway strategy.
type Gateway interface {
	Name() string
	// Initiate registers the payment for a pending order.
	Initiate(ctx context.Context, order *model.Order) (*Initiation, error)
	// ParseCallback authenticates callback parameters. It returns
	// ErrInvalidSignature when they cannot be trusted.
	ParseCallback(ctx context.Context, values url.Values) (*CallbackResult, error)
	// Acknowledge builds the reply to an accepted callback. res may be nil
	// when the callback referenced an unknown order.
	Acknowledge(res *CallbackResult) Response
	// Reject builds the reply to a callback that failed authentication.
	Reject() Response
}

func appendQuery(base, query string) string {
	if query == "" {
		return base
	}
	u, err := url.Parse(base)
	if err != nil || u.RawQuery == "" {
		return base + "?" + query
	}
	return base + "&" + query
}
