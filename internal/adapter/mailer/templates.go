package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/polkiloo/artshop/internal/domain/model"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.tmpl"))

type orderView struct {
	*model.Order
	Items    []itemView
	Total     string
	Shipping  string
	StatusURL string
}

type itemView struct {
	Name  string
	Price string
}

func newOrderView(order *model.Order) orderView {
	view := orderView{
		Order:    order,
		Total:    formatAmount(order.TotalAmount.StringFixed(2), order.Currency),
		Shipping: formatAmount(order.ShippingCost.StringFixed(2), order.Currency),
	}
	for _, item := range order.CartItems {
		view.Items = append(view.Items, itemView{
			Name:  item.Name,
			Price: formatAmount(item.Price.StringFixed(2), order.Currency),
		})
	}
	return view
}

func formatAmount(amount, currency string) string {
	return strings.TrimSuffix(amount, ".00") + " " + currency
}

// CustomerReceipt renders the confirmation sent to the buyer. An empty
// statusURL leaves the status link out.
func CustomerReceipt(order *model.Order, replyTo, statusURL string) (Message, error) {
	view := newOrderView(order)
	view.StatusURL = statusURL
	body, err := render("customer_receipt.tmpl", view)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      []string{order.Customer.Email},
		ReplyTo: replyTo,
		Subject: fmt.Sprintf("Order %s confirmed", order.Number),
		Body:    body,
	}, nil
}

// OperatorNotice renders the sale notification sent to the shop operator.
func OperatorNotice(order *model.Order, operator string) (Message, error) {
	body, err := render("operator_notice.tmpl", newOrderView(order))
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      []string{operator},
		ReplyTo: order.Customer.Email,
		Subject: fmt.Sprintf("New paid order %s", order.Number),
		Body:    body,
	}, nil
}

func render(name string, view orderView) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, view); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
