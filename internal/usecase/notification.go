package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/polkiloo/artshop/internal/adapter/events"
	"github.com/polkiloo/artshop/internal/adapter/mailer"
	"github.com/polkiloo/artshop/internal/domain/model"
	"github.com/polkiloo/artshop/internal/domain/repository"
	pkgAuth "github.com/polkiloo/artshop/internal/pkg/auth"
)

// NotificationOptions configures notification recipients. The customer
// receipt links to the order status page when both PublicBaseURL and
// Receipts are set.
type NotificationOptions struct {
	OperatorEmail string
	PublicBaseURL string
	Receipts      pkgAuth.Strategy
}

// NotificationUseCase performs the side effects recorded in the outbox for
// a paid order.
type NotificationUseCase struct {
	orders    repository.OrderRepository
	products  repository.ProductRepository
	sender    mailer.Sender
	publisher events.Publisher
	opts      NotificationOptions
	logger    *slog.Logger
}

// NewNotificationUseCase constructs NotificationUseCase.
func NewNotificationUseCase(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	sender mailer.Sender,
	publisher events.Publisher,
	opts NotificationOptions,
	logger *slog.Logger,
) *NotificationUseCase {
	return &NotificationUseCase{
		orders:    orders,
		products:  products,
		sender:    sender,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
	}
}

// Handle performs the side effect of msg. Every handler is safe to repeat.
func (u *NotificationUseCase) Handle(ctx context.Context, msg model.OutboxMessage) error {
	order, err := u.orders.GetByNumber(ctx, msg.AggregateID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", msg.AggregateID, err)
	}
	if order.Status != model.OrderStatusPaid {
		return fmt.Errorf("order %s is %s, not paid", order.Number, order.Status)
	}

	switch msg.Type {
	case model.OutboxNotifyCustomer:
		return u.notifyCustomer(ctx, order)
	case model.OutboxNotifyOperator:
		return u.notifyOperator(ctx, order)
	case model.OutboxInventoryMarkSold:
		if err := u.products.MarkSold(ctx, order.ItemIDs()); err != nil {
			return fmt.Errorf("mark items of order %s sold: %w", order.Number, err)
		}
		return nil
	case model.OutboxOrderPaidEvent:
		return u.publishPaid(ctx, order)
	default:
		return fmt.Errorf("unknown outbox message type %q", msg.Type)
	}
}

func (u *NotificationUseCase) notifyCustomer(ctx context.Context, order *model.Order) error {
	statusURL, err := u.statusURL(order.Number)
	if err != nil {
		return err
	}
	msg, err := mailer.CustomerReceipt(order, u.opts.OperatorEmail, statusURL)
	if err != nil {
		return err
	}
	return u.sender.Send(ctx, msg)
}

func (u *NotificationUseCase) statusURL(number string) (string, error) {
	if u.opts.PublicBaseURL == "" || u.opts.Receipts == nil {
		return "", nil
	}
	token, err := u.opts.Receipts.IssueToken(number)
	if err != nil {
		return "", fmt.Errorf("issue receipt for order %s: %w", number, err)
	}
	return u.opts.PublicBaseURL + "/api/orders/status?" + url.Values{"receipt": {token}}.Encode(), nil
}

func (u *NotificationUseCase) notifyOperator(ctx context.Context, order *model.Order) error {
	if u.opts.OperatorEmail == "" {
		u.logger.Warn("operator e-mail not configured, sale notice skipped", slog.String("order", order.Number))
		return nil
	}
	msg, err := mailer.OperatorNotice(order, u.opts.OperatorEmail)
	if err != nil {
		return err
	}
	return u.sender.Send(ctx, msg)
}

func (u *NotificationUseCase) publishPaid(ctx context.Context, order *model.Order) error {
	return u.publisher.Publish(ctx, events.OrderEvent{
		Type:        events.OrderPaidType,
		OrderNumber: order.Number,
		Gateway:     order.Gateway,
		TotalAmount: order.TotalAmount,
		Currency:    order.Currency,
		ItemIDs:     order.ItemIDs(),
		OccurredAt:  order.UpdatedAt,
	})
}
