package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/polkiloo/artshop/internal/adapter/gateway"
	domainErrors "github.com/polkiloo/artshop/internal/domain/errors"
	"github.com/polkiloo/artshop/internal/domain/model"
	"github.com/polkiloo/artshop/internal/server/http/dto"
	"github.com/polkiloo/artshop/internal/server/http/middleware"
	testhelpers "github.com/polkiloo/artshop/internal/test"
	"github.com/polkiloo/artshop/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type catalogFacadeStub struct {
	products []model.Product
	err      error
}

func (s catalogFacadeStub) Products(context.Context) ([]model.Product, error) {
	return s.products, s.err
}

func (s catalogFacadeStub) Product(_ context.Context, id string) (*model.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, p := range s.products {
		if p.ID == id {
			product := p
			return &product, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

type paymentFacadeStub struct {
	createFn   func(context.Context, string, usecase.CheckoutRequest) (*usecase.CheckoutResult, error)
	callbackFn func(context.Context, string, url.Values) (*usecase.CallbackOutcome, error)
	statusFn   func(context.Context, string) (*model.Order, error)
}

func (s paymentFacadeStub) CreatePayment(ctx context.Context, gw string, req usecase.CheckoutRequest) (*usecase.CheckoutResult, error) {
	if s.createFn != nil {
		return s.createFn(ctx, gw, req)
	}
	return &usecase.CheckoutResult{URL: "https://pay.example/1", OrderNumber: "4815162344", Receipt: "receipt:4815162344"}, nil
}

func (s paymentFacadeStub) HandleCallback(ctx context.Context, gw string, values url.Values) (*usecase.CallbackOutcome, error) {
	if s.callbackFn != nil {
		return s.callbackFn(ctx, gw, values)
	}
	return &usecase.CallbackOutcome{Response: gateway.Response{Status: http.StatusOK, ContentType: "text/plain", Body: "OK"}}, nil
}

func (s paymentFacadeStub) OrderStatus(ctx context.Context, number string) (*model.Order, error) {
	if s.statusFn != nil {
		return s.statusFn(ctx, number)
	}
	return nil, domainErrors.ErrNotFound
}

func (s paymentFacadeStub) ParseReceipt(token string) (string, error) {
	return testhelpers.StrategyStub{}.ParseToken(token)
}

type healthFacadeStub struct {
	err error
}

func (s healthFacadeStub) HealthCheck(context.Context) error { return s.err }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func performRequest(t *testing.T, method, path, pattern string, handler gin.HandlerFunc, setup func(*gin.Context), body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.Handle(method, pattern, func(c *gin.Context) {
		if setup != nil {
			setup(c)
		}
		handler(c)
	})

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func validBody(t *testing.T) []byte {
	t.Helper()
	shipping := decimal.NewFromInt(500)
	body, err := json.Marshal(dto.CheckoutRequest{
		Order: dto.CustomerRequest{
			FullName: "Jana Nováková",
			Email:    "jana@example.com",
			Phone:    "+420 777 000 111",
			Address:  "Náměstí Míru 1",
			City:     "Praha",
			Zip:      "120 00",
			Country:  "CZ",
			Note:     "Please wrap",
		},
		CartItems:    []dto.CartItemRequest{{ID: "p1", Name: "Vltava at Dusk", Price: decimal.NewFromInt(5000), Image: "/img/vltava.jpg"}},
		ShippingCost: &shipping,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return body
}

var jsonHeaders = map[string]string{"Content-Type": "application/json"}

func TestCurrentOrderNumber(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if got := CurrentOrderNumber(c); got != "" {
		t.Fatalf("expected empty number when not set, got %q", got)
	}

	c.Set(middleware.OrderNumberContextKey, "4815162344")
	if got := CurrentOrderNumber(c); got != "4815162344" {
		t.Fatalf("expected 4815162344, got %q", got)
	}
}

func TestCatalogHandlerList(t *testing.T) {
	facade := catalogFacadeStub{products: []model.Product{
		{ID: "p1", Name: "Vltava at Dusk", Price: decimal.NewFromInt(5000), Image: "/img/vltava.jpg"},
		{ID: "p2", Name: "Snow over Petřín", Price: decimal.RequireFromString("1250.5"), Sold: true},
	}}
	resp := performRequest(t, http.MethodGet, "/api/products", "/api/products", NewCatalogHandler(facade).List, nil, nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var products []dto.ProductResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &products); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(products) != 2 || products[0].Price != "5000.00" || products[1].Price != "1250.50" || !products[1].Sold {
		t.Fatalf("unexpected products %+v", products)
	}
	if !strings.Contains(resp.Body.String(), `"price":5000.00`) {
		t.Fatalf("expected numeric price, got %s", resp.Body.String())
	}

	resp = performRequest(t, http.MethodGet, "/api/products", "/api/products", NewCatalogHandler(catalogFacadeStub{}).List, nil, nil, nil)
	if resp.Code != http.StatusOK || strings.TrimSpace(resp.Body.String()) != "[]" {
		t.Fatalf("expected empty list, got %d %s", resp.Code, resp.Body.String())
	}

	resp = performRequest(t, http.MethodGet, "/api/products", "/api/products", NewCatalogHandler(catalogFacadeStub{err: errors.New("db")}).List, nil, nil, nil)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
}

func TestCatalogHandlerGet(t *testing.T) {
	facade := catalogFacadeStub{products: []model.Product{{ID: "p1", Name: "Vltava at Dusk", Price: decimal.NewFromInt(5000)}}}
	handler := NewCatalogHandler(facade).Get

	resp := performRequest(t, http.MethodGet, "/api/products/p1", "/api/products/:id", handler, nil, nil, nil)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"name":"Vltava at Dusk"`) {
		t.Fatalf("unexpected response %d %s", resp.Code, resp.Body.String())
	}

	unknown := "x" + testhelpers.RandomID(12)
	resp = performRequest(t, http.MethodGet, "/api/products/"+unknown, "/api/products/:id", handler, nil, nil, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for %q, got %d", unknown, resp.Code)
	}

	resp = performRequest(t, http.MethodGet, "/api/products/p1", "/api/products/:id", NewCatalogHandler(catalogFacadeStub{err: errors.New("db")}).Get, nil, nil, nil)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
}

func TestPaymentHandlerCreatePayment(t *testing.T) {
	var (
		gotGateway string
		gotReq     usecase.CheckoutRequest
	)
	facade := paymentFacadeStub{createFn: func(_ context.Context, gw string, req usecase.CheckoutRequest) (*usecase.CheckoutResult, error) {
		gotGateway, gotReq = gw, req
		return &usecase.CheckoutResult{URL: "https://pay.example/4815162344", OrderNumber: "4815162344", Receipt: "r"}, nil
	}}
	handler := NewPaymentHandler(facade, discardLogger()).CreatePayment

	resp := performRequest(t, http.MethodPost, "/api/payments/comgate/create-payment", "/api/payments/:gateway/create-payment", handler, nil, validBody(t), jsonHeaders)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d %s", resp.Code, resp.Body.String())
	}
	var out dto.CheckoutResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.URL != "https://pay.example/4815162344" || out.OrderNumber != "4815162344" || out.Receipt != "r" {
		t.Fatalf("unexpected response %+v", out)
	}

	if gotGateway != "comgate" {
		t.Fatalf("expected gateway from path, got %q", gotGateway)
	}
	if gotReq.Customer.Email != "jana@example.com" || gotReq.Customer.Note != "Please wrap" || gotReq.Customer.Phone != "+420 777 000 111" {
		t.Fatalf("unexpected customer %+v", gotReq.Customer)
	}
	if len(gotReq.Items) != 1 || gotReq.Items[0].ID != "p1" || !gotReq.Items[0].Price.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("unexpected items %+v", gotReq.Items)
	}
	if gotReq.ShippingCost == nil || !gotReq.ShippingCost.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("unexpected shipping %v", gotReq.ShippingCost)
	}

	resp = performRequest(t, http.MethodPost, "/create-payment", "/create-payment", handler, nil, validBody(t), jsonHeaders)
	if resp.Code != http.StatusOK || gotGateway != "" {
		t.Fatalf("expected default gateway route, got %d gateway=%q", resp.Code, gotGateway)
	}
}

func TestPaymentHandlerCreatePaymentFailures(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"validation", fmt.Errorf("%w: email is invalid", domainErrors.ErrValidation), http.StatusBadRequest, "email is invalid"},
		{"sold", fmt.Errorf("%w: p1", domainErrors.ErrItemUnavailable), http.StatusConflict, "item unavailable"},
		{"unknown gateway", fmt.Errorf("%w: paypal", domainErrors.ErrUnknownGateway), http.StatusNotFound, "unknown gateway"},
		{"gateway down", fmt.Errorf("initiate: %w", domainErrors.ErrGatewayUnavailable), http.StatusServiceUnavailable, "payment initiation failed"},
		{"key", fmt.Errorf("%w: open /etc/keys/merchant.pem", domainErrors.ErrKeyLoad), http.StatusInternalServerError, "payment initiation failed"},
		{"signing", domainErrors.ErrSigning, http.StatusInternalServerError, "payment initiation failed"},
		{"other", errors.New("db down"), http.StatusInternalServerError, "internal error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			facade := paymentFacadeStub{createFn: func(context.Context, string, usecase.CheckoutRequest) (*usecase.CheckoutResult, error) {
				return nil, tc.err
			}}
			resp := performRequest(t, http.MethodPost, "/create-payment", "/create-payment", NewPaymentHandler(facade, discardLogger()).CreatePayment, nil, validBody(t), jsonHeaders)
			if resp.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, resp.Code)
			}
			var out dto.ErrorResponse
			if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !strings.Contains(out.Error, tc.body) {
				t.Fatalf("expected error containing %q, got %q", tc.body, out.Error)
			}
			if strings.Contains(out.Error, "/etc/keys") {
				t.Fatalf("key path leaked to client: %q", out.Error)
			}
		})
	}

	resp := performRequest(t, http.MethodPost, "/create-payment", "/create-payment", NewPaymentHandler(paymentFacadeStub{}, discardLogger()).CreatePayment, nil, []byte("{"), jsonHeaders)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", resp.Code)
	}
}

func TestPaymentHandlerCallback(t *testing.T) {
	var (
		gotGateway string
		gotValues  url.Values
	)
	facade := paymentFacadeStub{callbackFn: func(_ context.Context, gw string, values url.Values) (*usecase.CallbackOutcome, error) {
		gotGateway, gotValues = gw, values
		return &usecase.CallbackOutcome{Response: gateway.Response{Status: http.StatusOK, ContentType: "text/plain; charset=utf-8", Body: "code=0&message=OK"}}, nil
	}}
	handler := NewPaymentHandler(facade, discardLogger()).Callback

	resp := performRequest(t, http.MethodPost, "/api/payments/comgate/callback?transId=AB12", "/api/payments/:gateway/callback", handler, nil,
		[]byte("refId=4815162344&status=PAID"), map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
	if resp.Code != http.StatusOK || resp.Body.String() != "code=0&message=OK" {
		t.Fatalf("unexpected response %d %q", resp.Code, resp.Body.String())
	}
	if gotGateway != "comgate" {
		t.Fatalf("expected comgate, got %q", gotGateway)
	}
	if gotValues.Get("transId") != "AB12" || gotValues.Get("refId") != "4815162344" || gotValues.Get("status") != "PAID" {
		t.Fatalf("expected merged query and form values, got %v", gotValues)
	}
}

func TestPaymentHandlerCallbackResponses(t *testing.T) {
	cases := []struct {
		name     string
		outcome  *usecase.CallbackOutcome
		err      error
		status   int
		body     string
		location string
	}{
		{
			name:     "redirect",
			outcome:  &usecase.CallbackOutcome{Response: gateway.Response{Status: http.StatusFound, Location: "https://shop.example/result?status=paid"}},
			status:   http.StatusFound,
			location: "https://shop.example/result?status=paid",
		},
		{
			name:    "rejected",
			outcome: &usecase.CallbackOutcome{Response: gateway.Response{Status: http.StatusBadRequest, ContentType: "text/plain", Body: "REJECTED"}},
			err:     domainErrors.ErrInvalidSignature,
			status:  http.StatusBadRequest,
			body:    "REJECTED",
		},
		{
			name:    "acknowledged store failure",
			outcome: &usecase.CallbackOutcome{Response: gateway.Response{Status: http.StatusOK, ContentType: "text/plain", Body: "OK"}},
			err:     errors.New("db down"),
			status:  http.StatusOK,
			body:    "OK",
		},
		{name: "unknown gateway", err: domainErrors.ErrUnknownGateway, status: http.StatusNotFound},
		{name: "verifier key", err: domainErrors.ErrKeyLoad, status: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			facade := paymentFacadeStub{callbackFn: func(context.Context, string, url.Values) (*usecase.CallbackOutcome, error) {
				return tc.outcome, tc.err
			}}
			resp := performRequest(t, http.MethodGet, "/callback?ORDERNUMBER=1", "/callback", NewPaymentHandler(facade, discardLogger()).Callback, nil, nil, nil)
			if resp.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, resp.Code)
			}
			if tc.body != "" && resp.Body.String() != tc.body {
				t.Fatalf("expected body %q, got %q", tc.body, resp.Body.String())
			}
			if got := resp.Header().Get("Location"); got != tc.location {
				t.Fatalf("expected location %q, got %q", tc.location, got)
			}
		})
	}
}

func TestPaymentHandlerStatus(t *testing.T) {
	facade := paymentFacadeStub{statusFn: func(_ context.Context, number string) (*model.Order, error) {
		switch number {
		case "4815162344":
			return &model.Order{Number: number, Status: model.OrderStatusPaid, TotalAmount: decimal.NewFromInt(5500), Currency: "CZK"}, nil
		case "1234567897":
			return nil, errors.New("db down")
		default:
			return nil, domainErrors.ErrNotFound
		}
	}}
	handler := NewPaymentHandler(facade, discardLogger()).Status
	withOrder := func(number string) func(*gin.Context) {
		return func(c *gin.Context) { c.Set(middleware.OrderNumberContextKey, number) }
	}

	resp := performRequest(t, http.MethodGet, "/api/orders/status", "/api/orders/status", handler, withOrder("4815162344"), nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var out dto.OrderStatusResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.OrderNumber != "4815162344" || out.Status != "paid" || out.TotalAmount != "5500.00" || out.Currency != "CZK" {
		t.Fatalf("unexpected status %+v", out)
	}

	resp = performRequest(t, http.MethodGet, "/api/orders/status", "/api/orders/status", handler, withOrder("5550001118"), nil, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}

	resp = performRequest(t, http.MethodGet, "/api/orders/status", "/api/orders/status", handler, withOrder("1234567897"), nil, nil)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	resp := performRequest(t, http.MethodGet, "/healthz", "/healthz", NewHealthHandler(healthFacadeStub{}, discardLogger()).Check, nil, nil, nil)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"ok"`) {
		t.Fatalf("unexpected response %d %s", resp.Code, resp.Body.String())
	}

	resp = performRequest(t, http.MethodGet, "/healthz", "/healthz", NewHealthHandler(healthFacadeStub{err: errors.New("refused")}, discardLogger()).Check, nil, nil, nil)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

var (
	_ CatalogFacade = catalogFacadeStub{}
	_ PaymentFacade = paymentFacadeStub{}
	_ HealthFacade  = healthFacadeStub{}
)
