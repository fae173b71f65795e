package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	domainErrors "github.com/polkiloo/artshop/internal/domain/errors"
	"github.com/polkiloo/artshop/internal/domain/model"
	"github.com/polkiloo/artshop/internal/pkg/digest"
)

const (
	GPWebpayName = "gpwebpay"

	gpOperationCreateOrder = "CREATE_ORDER"
	gpMaxOrderNumberLength = 15
)

// ISO 4217 numeric codes accepted by GP webpay.
var gpCurrencyCodes = map[string]string{
	"CZK": "203",
	"EUR": "978",
	"USD": "840",
	"GBP": "826",
	"PLN": "985",
	"HUF": "348",
}

// GPWebpayOptions configures GPWebpay.
type GPWebpayOptions struct {
	URL            string
	MerchantNumber string
	CallbackURL    string
	ResultRedirect string
}

// GPWebpay redirects the customer to the GP webpay card form with a signed
// request and verifies the signed result delivered to the callback URL.
type GPWebpay struct {
	opts     GPWebpayOptions
	signer   *digest.Signer
	verifier *digest.Verifier
	logger   *slog.Logger
}

var _ Gateway = (*GPWebpay)(nil)

// NewGPWebpay builds the gateway. signer must use the merchant private key,
// verifier the gateway public key.
func NewGPWebpay(opts GPWebpayOptions, signer *digest.Signer, verifier *digest.Verifier, logger *slog.Logger) (*GPWebpay, error) {
	if opts.MerchantNumber == "" {
		return nil, fmt.Errorf("gpwebpay merchant number must be provided")
	}
	if _, err := url.ParseRequestURI(opts.URL); err != nil {
		return nil, fmt.Errorf("parse gpwebpay url: %w", err)
	}
	if _, err := url.ParseRequestURI(opts.CallbackURL); err != nil {
		return nil, fmt.Errorf("parse gpwebpay callback url: %w", err)
	}
	return &GPWebpay{opts: opts, signer: signer, verifier: verifier, logger: logger}, nil
}

func (g *GPWebpay) Name() string { return GPWebpayName }

func (g *GPWebpay) Initiate(_ context.Context, order *model.Order) (*Initiation, error) {
	if !validGPOrderNumber(order.Number) {
		return nil, fmt.Errorf("%w: order number %q is not numeric or too long", domainErrors.ErrValidation, order.Number)
	}
	currency, ok := gpCurrencyCodes[strings.ToUpper(order.Currency)]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported currency %q", domainErrors.ErrSigning, order.Currency)
	}

	params := digest.Params{
		"MERCHANTNUMBER": g.opts.MerchantNumber,
		"OPERATION":      gpOperationCreateOrder,
		"ORDERNUMBER":    order.Number,
		"AMOUNT":         strconv.FormatInt(model.MinorUnits(order.TotalAmount), 10),
		"CURRENCY":       currency,
		"DEPOSITFLAG":    "1",
		"MERORDERNUM":    order.Number,
		"URL":            g.opts.CallbackURL,
	}
	if order.Customer.Email != "" {
		params["EMAIL"] = order.Customer.Email
	}

	signed, err := g.signer.Sign(params)
	if err != nil {
		return nil, err
	}

	return &Initiation{
		URL:       appendQuery(g.opts.URL, digest.EncodeQuery(signed)),
		Params:    signed,
		Reference: order.Number,
	}, nil
}

func (g *GPWebpay) ParseCallback(_ context.Context, values url.Values) (*CallbackResult, error) {
	params := digest.FromValues(values)
	if err := g.verifier.Verify(params); err != nil {
		return nil, err
	}

	prcode, srcode := params["PRCODE"], params["SRCODE"]
	status := model.OrderStatusFailed
	if prcode == "0" && srcode == "0" {
		status = model.OrderStatusPaid
	}

	return &CallbackResult{
		OrderNumber: params["ORDERNUMBER"],
		Reference:   params["ORDERNUMBER"],
		Status:      status,
		Code:        prcode + "/" + srcode,
		Message:     params["RESULTTEXT"],
	}, nil
}

func (g *GPWebpay) Acknowledge(res *CallbackResult) Response {
	if g.opts.ResultRedirect == "" {
		return textResponse(http.StatusOK, "OK")
	}
	query := ""
	if res != nil && res.OrderNumber != "" {
		query = url.Values{"order": {res.OrderNumber}}.Encode()
	}
	return redirectResponse(appendQuery(g.opts.ResultRedirect, query))
}

func (g *GPWebpay) Reject() Response {
	return textResponse(http.StatusBadRequest, "INVALID SIGNATURE")
}

func validGPOrderNumber(number string) bool {
	if number == "" || len(number) > gpMaxOrderNumberLength {
		return false
	}
	for _, r := range number {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
