package gateway

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	domainErrors "github.com/polkiloo/artshop/internal/domain/errors"
	"github.com/polkiloo/artshop/internal/domain/model"
)

const (
	ComgateName = "comgate"

	comgateLabelLimit = 16
)

// ComgateOptions configures Comgate.
type ComgateOptions struct {
	URL      string
	Merchant string
	Secret   string
	Test     bool
	Timeout  time.Duration
}

// Comgate creates payments through the Comgate HTTP API and authenticates
// its push notifications with the shared merchant secret.
type Comgate struct {
	opts   ComgateOptions
	client *resty.Client
	logger *slog.Logger
}

var _ Gateway = (*Comgate)(nil)

// NewComgate builds the gateway with its own HTTP client.
func NewComgate(opts ComgateOptions, logger *slog.Logger) (*Comgate, error) {
	if opts.Merchant == "" || opts.Secret == "" {
		return nil, fmt.Errorf("comgate merchant and secret must be provided")
	}
	parsed, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse comgate url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("comgate url must be absolute")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.URL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/x-www-form-urlencoded")

	return &Comgate{opts: opts, client: client, logger: logger}, nil
}

func (c *Comgate) Name() string { return ComgateName }

func (c *Comgate) Initiate(ctx context.Context, order *model.Order) (*Initiation, error) {
	form := map[string]string{
		"merchant":    c.opts.Merchant,
		"test":        strconv.FormatBool(c.opts.Test),
		"price":       strconv.FormatInt(model.MinorUnits(order.TotalAmount), 10),
		"curr":        strings.ToUpper(order.Currency),
		"label":       comgateLabel(order),
		"refId":       order.Number,
		"method":      "ALL",
		"email":       order.Customer.Email,
		"prepareOnly": "true",
		"country":     comgateCountry(order.Customer.Country),
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(withSecret(form, c.opts.Secret)).
		Post("/create")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrGatewayUnavailable, err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		c.logger.Error("comgate create failed", slog.Int("status", resp.StatusCode()), slog.String("order", order.Number))
		return nil, fmt.Errorf("%w: comgate returned %d", domainErrors.ErrGatewayUnavailable, resp.StatusCode())
	}

	values, err := url.ParseQuery(strings.TrimSpace(resp.String()))
	if err != nil {
		return nil, fmt.Errorf("%w: malformed comgate response", domainErrors.ErrGatewayUnavailable)
	}
	if code := values.Get("code"); code != "0" {
		c.logger.Error("comgate refused payment",
			slog.String("order", order.Number),
			slog.String("code", code),
			slog.String("message", values.Get("message")),
		)
		return nil, fmt.Errorf("%w: comgate code %s", domainErrors.ErrGatewayUnavailable, code)
	}

	redirect, transID := values.Get("redirect"), values.Get("transId")
	if redirect == "" || transID == "" {
		return nil, fmt.Errorf("%w: comgate response without redirect", domainErrors.ErrGatewayUnavailable)
	}

	form["transId"] = transID
	return &Initiation{URL: redirect, Params: form, Reference: transID}, nil
}

func (c *Comgate) ParseCallback(_ context.Context, values url.Values) (*CallbackResult, error) {
	merchant, secret := values.Get("merchant"), values.Get("secret")
	if !constantTimeEqual(merchant, c.opts.Merchant) || !constantTimeEqual(secret, c.opts.Secret) {
		return nil, fmt.Errorf("%w: comgate merchant or secret mismatch", domainErrors.ErrInvalidSignature)
	}

	result := &CallbackResult{
		OrderNumber: values.Get("refId"),
		Reference:   values.Get("transId"),
		Code:        values.Get("status"),
	}
	switch strings.ToUpper(result.Code) {
	case "PAID":
		result.Status = model.OrderStatusPaid
	case "CANCELLED":
		result.Status = model.OrderStatusFailed
	}
	return result, nil
}

func (c *Comgate) Acknowledge(*CallbackResult) Response {
	return textResponse(http.StatusOK, "code=0&message=OK")
}

func (c *Comgate) Reject() Response {
	return textResponse(http.StatusBadRequest, "code=1400&message=Invalid secret")
}

func withSecret(form map[string]string, secret string) map[string]string {
	out := make(map[string]string, len(form)+1)
	for k, v := range form {
		out[k] = v
	}
	out["secret"] = secret
	return out
}

func comgateLabel(order *model.Order) string {
	label := "Order " + order.Number
	if len(order.CartItems) == 1 && order.CartItems[0].Name != "" {
		label = order.CartItems[0].Name
	}
	runes := []rune(label)
	if len(runes) > comgateLabelLimit {
		runes = runes[:comgateLabelLimit]
	}
	return string(runes)
}

func comgateCountry(country string) string {
	country = strings.ToUpper(strings.TrimSpace(country))
	if len(country) != 2 {
		return "ALL"
	}
	return country
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
