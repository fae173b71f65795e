package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/artshop/internal/domain/errors"
	"github.com/polkiloo/artshop/internal/domain/model"
	"github.com/polkiloo/artshop/internal/server/http/dto"
	"github.com/polkiloo/artshop/internal/usecase"
)

const initiationFailed = "payment initiation failed"

// PaymentHandler manages checkout, gateway callbacks and order status.
type PaymentHandler struct {
	facade PaymentFacade
	logger *slog.Logger
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(facade PaymentFacade, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{facade: facade, logger: logger}
}

// CreatePayment handles POST /api/payments/:gateway/create-payment and the
// default gateway route.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
		return
	}

	res, err := h.facade.CreatePayment(c.Request.Context(), c.Param("gateway"), toCheckoutRequest(req))
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrValidation):
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		case errors.Is(err, domainErrors.ErrItemUnavailable):
			c.JSON(http.StatusConflict, dto.ErrorResponse{Error: "item unavailable"})
		case errors.Is(err, domainErrors.ErrUnknownGateway):
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "unknown gateway"})
		case errors.Is(err, domainErrors.ErrGatewayUnavailable):
			c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: initiationFailed})
		case errors.Is(err, domainErrors.ErrKeyLoad), errors.Is(err, domainErrors.ErrSigning):
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: initiationFailed})
		default:
			h.logger.Error("create payment", slog.Any("error", err))
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.CheckoutResponse{
		URL:         res.URL,
		OrderNumber: res.OrderNumber,
		Receipt:     res.Receipt,
	})
}

// Callback handles GET|POST /api/payments/:gateway/callback and the default
// gateway route. Query and form parameters are merged.
func (h *PaymentHandler) Callback(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	outcome, err := h.facade.HandleCallback(c.Request.Context(), c.Param("gateway"), c.Request.Form)
	if outcome == nil {
		if errors.Is(err, domainErrors.ErrUnknownGateway) {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusInternalServerError)
		return
	}

	resp := outcome.Response
	if resp.Location != "" {
		c.Redirect(resp.Status, resp.Location)
		return
	}
	c.Data(resp.Status, resp.ContentType, []byte(resp.Body))
}

// Status handles GET /api/orders/status for the receipt holder.
func (h *PaymentHandler) Status(c *gin.Context) {
	order, err := h.facade.OrderStatus(c.Request.Context(), CurrentOrderNumber(c))
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, dto.OrderStatusResponse{
		OrderNumber: order.Number,
		Status:      string(order.Status),
		TotalAmount: amount(order.TotalAmount),
		Currency:    order.Currency,
	})
}

func toCheckoutRequest(req dto.CheckoutRequest) usecase.CheckoutRequest {
	items := make([]usecase.CartItemInput, 0, len(req.CartItems))
	for _, item := range req.CartItems {
		items = append(items, usecase.CartItemInput{
			ID:    item.ID,
			Name:  item.Name,
			Price: item.Price,
			Image: item.Image,
		})
	}
	return usecase.CheckoutRequest{
		Customer: model.Customer{
			FullName: req.Order.FullName,
			Email:    req.Order.Email,
			Phone:    req.Order.Phone,
			Address:  req.Order.Address,
			City:     req.Order.City,
			Zip:      req.Order.Zip,
			Country:  req.Order.Country,
			Note:     req.Order.Note,
		},
		Items:        items,
		ShippingCost: req.ShippingCost,
	}
}
