package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/artshop/internal/adapter/gateway"
	domainErrors "github.com/polkiloo/artshop/internal/domain/errors"
	"github.com/polkiloo/artshop/internal/domain/model"
	"github.com/polkiloo/artshop/internal/domain/repository"
	pkgAuth "github.com/polkiloo/artshop/internal/pkg/auth"
)

const orderNumberAttempts = 5

// GatewayResolver resolves a gateway by name, empty name selecting default.
type GatewayResolver interface {
	Get(name string) (gateway.Gateway, error)
}

// CartItemInput is a cart line as submitted by the storefront. Only ID is
// trusted; name and price are taken from the catalog.
type CartItemInput struct {
	ID    string
	Name  string
	Price decimal.Decimal
	Image string
}

// CheckoutRequest is the create-payment input.
type CheckoutRequest struct {
	Customer model.Customer
	Items    []CartItemInput
	// ShippingCost is what the storefront displayed. It is compared with the
	// server side rate and otherwise ignored.
	ShippingCost *decimal.Decimal
}

// CheckoutResult tells the storefront where to send the customer.
type CheckoutResult struct {
	URL         string
	OrderNumber string
	Receipt     string
	Gateway     string
}

// CallbackOutcome is the result of processing a gateway callback.
type CallbackOutcome struct {
	Gateway      string
	Result       *gateway.CallbackResult
	Order        *model.Order
	Transitioned bool
	// Response is the reply the gateway expects.
	Response gateway.Response
}

// PaymentOptions holds payment settings.
type PaymentOptions struct {
	Currency string
	Shipping ShippingRates
}

// PaymentUseCase orchestrates checkout and gateway callbacks.
type PaymentUseCase struct {
	gateways GatewayResolver
	orders   repository.OrderRepository
	products repository.ProductRepository
	numbers  OrderNumberGenerator
	receipts pkgAuth.Strategy
	opts     PaymentOptions
	logger   *slog.Logger
}

// NewPaymentUseCase constructs PaymentUseCase.
func NewPaymentUseCase(
	gateways GatewayResolver,
	orders repository.OrderRepository,
	products repository.ProductRepository,
	numbers OrderNumberGenerator,
	receipts pkgAuth.Strategy,
	opts PaymentOptions,
	logger *slog.Logger,
) *PaymentUseCase {
	return &PaymentUseCase{
		gateways: gateways,
		orders:   orders,
		products: products,
		numbers:  numbers,
		receipts: receipts,
		opts:     opts,
		logger:   logger,
	}
}

// CreatePayment validates the checkout, persists a pending order and asks
// the gateway for a payment redirect.
func (u *PaymentUseCase) CreatePayment(ctx context.Context, gatewayName string, req CheckoutRequest) (*CheckoutResult, error) {
	gw, err := u.gateways.Get(gatewayName)
	if err != nil {
		return nil, err
	}

	customer, err := validateCustomer(req.Customer)
	if err != nil {
		return nil, err
	}
	items, err := u.resolveItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	shipping, err := u.opts.Shipping.For(customer.Country)
	if err != nil {
		return nil, err
	}
	if req.ShippingCost != nil && !req.ShippingCost.Equal(shipping) {
		u.logger.Warn("client shipping cost ignored",
			slog.String("country", customer.Country),
			slog.String("client", req.ShippingCost.String()),
			slog.String("server", shipping.String()),
		)
	}

	total := shipping
	for _, item := range items {
		total = total.Add(item.Price)
	}

	order, err := u.createPending(ctx, &model.Order{
		Status:       model.OrderStatusPending,
		Customer:     customer,
		CartItems:    items,
		TotalAmount:  total,
		ShippingCost: shipping,
		Currency:     u.opts.Currency,
		Gateway:      gw.Name(),
	})
	if err != nil {
		return nil, err
	}

	logger := u.logger.With(slog.String("order", order.Number), slog.String("gateway", gw.Name()))

	initiation, err := gw.Initiate(ctx, order)
	if err != nil {
		logger.Error("payment initiation failed", slog.Any("error", err))
		return nil, fmt.Errorf("initiate payment for order %s: %w", order.Number, err)
	}
	if err := u.orders.SaveGatewayParams(ctx, order.Number, gw.Name(), initiation.Reference, initiation.Params); err != nil {
		logger.Error("store gateway parameters", slog.Any("error", err))
		return nil, fmt.Errorf("store gateway parameters for order %s: %w", order.Number, err)
	}

	receipt, err := u.receipts.IssueToken(order.Number)
	if err != nil {
		logger.Error("issue receipt", slog.Any("error", err))
		return nil, fmt.Errorf("issue receipt for order %s: %w", order.Number, err)
	}

	logger.Info("payment initiated", slog.String("total", order.TotalAmount.String()), slog.String("currency", order.Currency))
	return &CheckoutResult{
		URL:         initiation.URL,
		OrderNumber: order.Number,
		Receipt:     receipt,
		Gateway:     gw.Name(),
	}, nil
}

func (u *PaymentUseCase) createPending(ctx context.Context, order *model.Order) (*model.Order, error) {
	for attempt := 1; attempt <= orderNumberAttempts; attempt++ {
		number, err := u.numbers.Next()
		if err != nil {
			return nil, err
		}
		order.Number = number

		created, err := u.orders.CreatePending(ctx, order)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, domainErrors.ErrAlreadyExists) {
			return nil, fmt.Errorf("create pending order: %w", err)
		}
		u.logger.Debug("order number clash", slog.String("order", number), slog.Int("attempt", attempt))
	}
	return nil, fmt.Errorf("allocate order number: %d attempts clashed", orderNumberAttempts)
}

func (u *PaymentUseCase) resolveItems(ctx context.Context, input []CartItemInput) ([]model.CartItem, error) {
	if len(input) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", domainErrors.ErrValidation)
	}

	ids := make([]string, 0, len(input))
	seen := make(map[string]struct{}, len(input))
	for _, item := range input {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: cart item without id", domainErrors.ErrValidation)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: item %s is in the cart twice", domainErrors.ErrValidation, id)
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	products, err := u.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load cart products: %w", err)
	}
	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]model.CartItem, 0, len(ids))
	for i, id := range ids {
		product, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: unknown item %s", domainErrors.ErrValidation, id)
		}
		if product.Sold {
			return nil, fmt.Errorf("%w: %s", domainErrors.ErrItemUnavailable, id)
		}
		if !input[i].Price.IsZero() && !input[i].Price.Equal(product.Price) {
			u.logger.Warn("client item price ignored",
				slog.String("item", id),
				slog.String("client", input[i].Price.String()),
				slog.String("catalog", product.Price.String()),
			)
		}
		items = append(items, model.CartItem{ID: product.ID, Name: product.Name, Price: product.Price, Image: product.Image})
	}
	return items, nil
}

func validateCustomer(c model.Customer) (model.Customer, error) {
	c.FullName = strings.TrimSpace(c.FullName)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Address = strings.TrimSpace(c.Address)
	c.City = strings.TrimSpace(c.City)
	c.Zip = strings.TrimSpace(c.Zip)
	c.Country = strings.ToUpper(strings.TrimSpace(c.Country))
	c.Note = strings.TrimSpace(c.Note)

	required := []struct {
		field string
		value string
	}{
		{"fullName", c.FullName},
		{"email", c.Email},
		{"address", c.Address},
		{"city", c.City},
		{"zip", c.Zip},
		{"country", c.Country},
	}
	for _, r := range required {
		if r.value == "" {
			return c, fmt.Errorf("%w: %s is required", domainErrors.ErrValidation, r.field)
		}
	}

	addr, err := mail.ParseAddress(c.Email)
	if err != nil || addr.Address != c.Email {
		return c, fmt.Errorf("%w: email is invalid", domainErrors.ErrValidation)
	}
	return c, nil
}

// HandleCallback authenticates a gateway callback and settles the order.
// The returned outcome carries the gateway reply whenever one should be
// sent, also together with a non-nil error.
func (u *PaymentUseCase) HandleCallback(ctx context.Context, gatewayName string, values url.Values) (*CallbackOutcome, error) {
	gw, err := u.gateways.Get(gatewayName)
	if err != nil {
		return nil, err
	}
	outcome := &CallbackOutcome{Gateway: gw.Name()}

	res, err := gw.ParseCallback(ctx, values)
	if err != nil {
		if errors.Is(err, domainErrors.ErrInvalidSignature) {
			u.logger.Error("callback rejected",
				slog.String("gateway", gw.Name()),
				slog.String("order", callbackOrderHint(values)),
				slog.Any("error", err),
			)
			outcome.Response = gw.Reject()
			return outcome, err
		}
		u.logger.Error("callback could not be verified", slog.String("gateway", gw.Name()), slog.Any("error", err))
		return nil, err
	}
	outcome.Result = res
	logger := u.logger.With(slog.String("gateway", gw.Name()), slog.String("order", res.OrderNumber))

	order, err := u.callbackOrder(ctx, gw.Name(), res)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			logger.Warn("callback for unknown order", slog.String("reference", res.Reference), slog.String("code", res.Code))
			outcome.Response = gw.Acknowledge(nil)
			return outcome, nil
		}
		logger.Error("callback order lookup failed", slog.Any("error", err))
		outcome.Response = gw.Acknowledge(res)
		return outcome, err
	}
	if order.Gateway != gw.Name() || (res.Reference != "" && order.GatewayRef != "" && res.Reference != order.GatewayRef) {
		logger.Warn("callback does not match order payment",
			slog.String("order_gateway", order.Gateway),
			slog.String("order_reference", order.GatewayRef),
			slog.String("reference", res.Reference),
		)
		outcome.Response = gw.Acknowledge(nil)
		return outcome, nil
	}
	number := order.Number

	if !res.Final() {
		logger.Info("callback without final outcome", slog.String("code", res.Code))
		outcome.Response = gw.Acknowledge(res)
		return outcome, nil
	}

	onPaid, err := paidMessages(number, gw.Name())
	if err != nil {
		return nil, err
	}
	order, transitioned, err := u.orders.ApplyResult(ctx, number, res.Status, onPaid)
	switch {
	case errors.Is(err, domainErrors.ErrNotFound):
		logger.Warn("callback for unknown order", slog.String("code", res.Code))
		outcome.Response = gw.Acknowledge(nil)
		return outcome, nil
	case err != nil:
		logger.Error("apply payment result", slog.Any("error", err))
		outcome.Response = gw.Acknowledge(res)
		return outcome, err
	}

	outcome.Order = order
	outcome.Transitioned = transitioned
	outcome.Response = gw.Acknowledge(res)
	if transitioned {
		logger.Info("order settled", slog.String("status", string(order.Status)), slog.String("code", res.Code))
	} else {
		logger.Info("duplicate callback ignored",
			slog.String("status", string(order.Status)),
			slog.String("reported", string(res.Status)),
		)
	}
	return outcome, nil
}

// callbackOrder resolves the order a verified callback refers to.
func (u *PaymentUseCase) callbackOrder(ctx context.Context, gatewayName string, res *gateway.CallbackResult) (*model.Order, error) {
	if res.OrderNumber != "" {
		if !ValidateOrderNumber(res.OrderNumber) {
			return nil, fmt.Errorf("%w: malformed order number %q", domainErrors.ErrNotFound, res.OrderNumber)
		}
		return u.orders.GetByNumber(ctx, res.OrderNumber)
	}
	if res.Reference == "" {
		return nil, fmt.Errorf("%w: callback without order reference", domainErrors.ErrNotFound)
	}
	order, err := u.orders.GetByGatewayRef(ctx, gatewayName, res.Reference)
	if err != nil {
		return nil, err
	}
	res.OrderNumber = order.Number
	return order, nil
}

// OrderStatus returns the stored order for a receipt holder.
func (u *PaymentUseCase) OrderStatus(ctx context.Context, number string) (*model.Order, error) {
	if !ValidateOrderNumber(number) {
		return nil, domainErrors.ErrNotFound
	}
	return u.orders.GetByNumber(ctx, number)
}

// ParseReceipt returns order number the receipt was issued for.
func (u *PaymentUseCase) ParseReceipt(token string) (string, error) {
	return u.receipts.ParseToken(token)
}

type outboxPayload struct {
	OrderNumber string `json:"orderNumber"`
	Gateway     string `json:"gateway"`
}

func paidMessages(number, gatewayName string) ([]model.OutboxMessage, error) {
	payload, err := json.Marshal(outboxPayload{OrderNumber: number, Gateway: gatewayName})
	if err != nil {
		return nil, fmt.Errorf("marshal outbox payload: %w", err)
	}
	types := []model.OutboxMessageType{
		model.OutboxNotifyCustomer,
		model.OutboxNotifyOperator,
		model.OutboxInventoryMarkSold,
		model.OutboxOrderPaidEvent,
	}
	messages := make([]model.OutboxMessage, 0, len(types))
	for _, t := range types {
		messages = append(messages, model.OutboxMessage{Type: t, AggregateID: number, Payload: payload})
	}
	return messages, nil
}

func callbackOrderHint(values url.Values) string {
	for _, key := range []string{"ORDERNUMBER", "refId"} {
		if v := values.Get(key); v != "" {
			return v
		}
	}
	return ""
}
