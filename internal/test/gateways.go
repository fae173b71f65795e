package test

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/polkiloo/artshop/internal/adapter/gateway"
	domainErrors "github.com/polkiloo/artshop/internal/domain/errors"
	"github.com/polkiloo/artshop/internal/domain/model"
)

// GatewayStub is a payment gateway trusting callbacks carrying the
// configured token in the "token" field.
type GatewayStub struct {
	NameVal    string
	Token      string
	InitiateFn func(context.Context, *model.Order) (*gateway.Initiation, error)
	ParseFn    func(context.Context, url.Values) (*gateway.CallbackResult, error)

	mu        sync.Mutex
	initiated []model.Order
}

// Name returns configured name or "stub".
func (g *GatewayStub) Name() string {
	if g.NameVal != "" {
		return g.NameVal
	}
	return "stub"
}

// Initiate records the order and returns a redirect to a fake payment page.
func (g *GatewayStub) Initiate(ctx context.Context, order *model.Order) (*gateway.Initiation, error) {
	g.mu.Lock()
	g.initiated = append(g.initiated, *order)
	g.mu.Unlock()
	if g.InitiateFn != nil {
		return g.InitiateFn(ctx, order)
	}
	return &gateway.Initiation{
		URL:       "https://pay.example/" + order.Number,
		Params:    map[string]string{"ORDERNUMBER": order.Number, "AMOUNT": order.TotalAmount.String()},
		Reference: "ref-" + order.Number,
	}, nil
}

// ParseCallback accepts values whose token matches and maps result=ok to
// paid, result=pending to no outcome and anything else to failed.
func (g *GatewayStub) ParseCallback(ctx context.Context, values url.Values) (*gateway.CallbackResult, error) {
	if g.ParseFn != nil {
		return g.ParseFn(ctx, values)
	}
	if values.Get("token") != g.Token {
		return nil, domainErrors.ErrInvalidSignature
	}
	res := &gateway.CallbackResult{
		OrderNumber: values.Get("order"),
		Reference:   values.Get("ref"),
		Code:        values.Get("result"),
	}
	switch values.Get("result") {
	case "ok":
		res.Status = model.OrderStatusPaid
	case "pending":
	default:
		res.Status = model.OrderStatusFailed
	}
	return res, nil
}

// Acknowledge returns plain OK.
func (g *GatewayStub) Acknowledge(*gateway.CallbackResult) gateway.Response {
	return gateway.Response{Status: http.StatusOK, ContentType: "text/plain; charset=utf-8", Body: "OK"}
}

// Reject returns plain REJECTED.
func (g *GatewayStub) Reject() gateway.Response {
	return gateway.Response{Status: http.StatusBadRequest, ContentType: "text/plain; charset=utf-8", Body: "REJECTED"}
}

// Initiated returns orders passed to Initiate.
func (g *GatewayStub) Initiated() []model.Order {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]model.Order(nil), g.initiated...)
}

// CallbackValues builds values accepted by GatewayStub.
func CallbackValues(token, order, result string) url.Values {
	return url.Values{"token": {token}, "order": {order}, "result": {result}}
}

var _ gateway.Gateway = (*GatewayStub)(nil)
