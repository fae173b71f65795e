package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmockv3 "github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/artshop/internal/domain/errors"
	"github.com/polkiloo/artshop/internal/domain/model"
)

var orderCols = []string{
	"id", "number", "status", "customer", "cart_items", "total_minor", "shipping_minor",
	"currency", "gateway", "gateway_ref", "gateway_params", "created_at", "updated_at",
}

func orderRows(number string, status model.OrderStatus) *pgxmockv3.Rows {
	now := time.Now()
	return pgxmockv3.NewRows(orderCols).AddRow(
		int64(7),
		number,
		status,
		[]byte(`{"fullName":"Jana Nováková","email":"jana@example.com","country":"CZ"}`),
		[]byte(`[{"_id":"p1","name":"Vltava at Dusk","price":"5000","image":"vltava.jpg"}]`),
		int64(550000),
		int64(50000),
		"CZK",
		"gpwebpay",
		"",
		[]byte(`{"AMOUNT":"550000"}`),
		now,
		now,
	)
}

func sampleOrder() *model.Order {
	return &model.Order{
		Number:   "1234567890",
		Customer: model.Customer{FullName: "Jana Nováková", Email: "jana@example.com", Country: "CZ"},
		CartItems: []model.CartItem{
			{ID: "p1", Name: "Vltava at Dusk", Price: decimal.NewFromInt(5000), Image: "vltava.jpg"},
		},
		TotalAmount:  decimal.NewFromInt(5500),
		ShippingCost: decimal.NewFromInt(500),
		Currency:     "CZK",
		Gateway:      "gpwebpay",
	}
}

func TestOrderRepositoryCreatePending(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}
	order := sampleOrder()

	createdAt := time.Now()
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs("1234567890", model.OrderStatusPending, pgxmockv3.AnyArg(), pgxmockv3.AnyArg(), int64(550000), int64(50000), "CZK", "gpwebpay").
		WillReturnRows(pgxmockv3.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(10), createdAt, createdAt))
	created, err := repo.CreatePending(context.Background(), order)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID != 10 || created.Status != model.OrderStatusPending || created.Number != order.Number {
		t.Fatalf("unexpected order: %+v", created)
	}
	if order.ID != 0 {
		t.Fatalf("input order must not be mutated")
	}

	mock.ExpectQuery("INSERT INTO orders").
		WithArgs("1234567890", model.OrderStatusPending, pgxmockv3.AnyArg(), pgxmockv3.AnyArg(), int64(550000), int64(50000), "CZK", "gpwebpay").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	if _, err := repo.CreatePending(context.Background(), order); !errors.Is(err, domainErrors.ErrAlreadyExists) {
		t.Fatalf("expected already exists error, got %v", err)
	}

	mock.ExpectQuery("INSERT INTO orders").
		WithArgs("1234567890", model.OrderStatusPending, pgxmockv3.AnyArg(), pgxmockv3.AnyArg(), int64(550000), int64(50000), "CZK", "gpwebpay").
		WillReturnError(errors.New("insert"))
	if _, err := repo.CreatePending(context.Background(), order); err == nil || errors.Is(err, domainErrors.ErrAlreadyExists) {
		t.Fatalf("expected plain error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestOrderRepositorySaveGatewayParams(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}
	params := map[string]string{"AMOUNT": "550000"}

	mock.ExpectExec("UPDATE orders SET gateway=").
		WithArgs("comgate", "AB12-CD34", []byte(`{"AMOUNT":"550000"}`), "1").
		WillReturnResult(pgxmockv3.NewResult("UPDATE", 1))
	if err := repo.SaveGatewayParams(context.Background(), "1", "comgate", "AB12-CD34", params); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mock.ExpectExec("UPDATE orders SET gateway=").
		WithArgs("comgate", "", pgxmockv3.AnyArg(), "2").
		WillReturnResult(pgxmockv3.NewResult("UPDATE", 0))
	if err := repo.SaveGatewayParams(context.Background(), "2", "comgate", "", params); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	mock.ExpectExec("UPDATE orders SET gateway=").
		WithArgs("comgate", "", pgxmockv3.AnyArg(), "3").
		WillReturnError(errors.New("update"))
	if err := repo.SaveGatewayParams(context.Background(), "3", "comgate", "", params); err == nil {
		t.Fatal("expected error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestOrderRepositoryGet(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	mock.ExpectQuery("FROM orders WHERE number=").WithArgs("1234567890").WillReturnRows(orderRows("1234567890", model.OrderStatusPending))
	order, err := repo.GetByNumber(context.Background(), "1234567890")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != model.OrderStatusPending || order.Customer.Email != "jana@example.com" {
		t.Fatalf("unexpected order: %+v", order)
	}
	if len(order.CartItems) != 1 || !order.CartItems[0].Price.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("unexpected cart items: %+v", order.CartItems)
	}
	if !order.TotalAmount.Equal(decimal.NewFromInt(5500)) || !order.ShippingCost.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("unexpected amounts: total=%s shipping=%s", order.TotalAmount, order.ShippingCost)
	}
	if order.GatewayParams["AMOUNT"] != "550000" {
		t.Fatalf("unexpected gateway params: %v", order.GatewayParams)
	}

	mock.ExpectQuery("FROM orders WHERE number=").WithArgs("missing").WillReturnError(pgx.ErrNoRows)
	if _, err := repo.GetByNumber(context.Background(), "missing"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	mock.ExpectQuery("FROM orders WHERE number=").WithArgs("err").WillReturnError(errors.New("fail"))
	if _, err := repo.GetByNumber(context.Background(), "err"); err == nil {
		t.Fatal("expected error")
	}

	mock.ExpectQuery("FROM orders WHERE gateway=").WithArgs("comgate", "AB12").WillReturnRows(orderRows("42", model.OrderStatusPaid))
	order, err = repo.GetByGatewayRef(context.Background(), "comgate", "AB12")
	if err != nil || order.Number != "42" {
		t.Fatalf("unexpected result: %+v err=%v", order, err)
	}

	mock.ExpectQuery("FROM orders WHERE gateway=").WithArgs("comgate", "none").WillReturnError(pgx.ErrNoRows)
	if _, err := repo.GetByGatewayRef(context.Background(), "comgate", "none"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	mock.ExpectQuery("FROM orders WHERE gateway=").WithArgs("comgate", "err").WillReturnError(errors.New("fail"))
	if _, err := repo.GetByGatewayRef(context.Background(), "comgate", "err"); err == nil {
		t.Fatal("expected error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestOrderRepositoryGetCorruptedJSON(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	now := time.Now()
	mock.ExpectQuery("FROM orders WHERE number=").WithArgs("1").WillReturnRows(
		pgxmockv3.NewRows(orderCols).AddRow(int64(1), "1", model.OrderStatusPending, []byte(`{`), []byte(`[]`),
			int64(0), int64(0), "CZK", "gpwebpay", "", []byte(`{}`), now, now),
	)
	if _, err := repo.GetByNumber(context.Background(), "1"); err == nil {
		t.Fatal("expected decode error")
	}
}

func outboxMessages(number string) []model.OutboxMessage {
	return []model.OutboxMessage{
		{ID: uuid.MustParse("11111111-1111-1111-1111-111111111111"), Type: model.OutboxNotifyCustomer, AggregateID: number, Payload: []byte(`{"orderNumber":"` + number + `"}`)},
		{ID: uuid.MustParse("22222222-2222-2222-2222-222222222222"), Type: model.OutboxInventoryMarkSold, AggregateID: number, Payload: []byte(`{"orderNumber":"` + number + `"}`)},
	}
}

func TestOrderRepositoryApplyResultPaid(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}
	msgs := outboxMessages("1234567890")

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE orders SET status=").WithArgs(model.OrderStatusPaid, "1234567890").WillReturnRows(orderRows("1234567890", model.OrderStatusPaid))
	for _, msg := range msgs {
		mock.ExpectExec("INSERT INTO outbox_messages").
			WithArgs(msg.ID, msg.Type, msg.AggregateID, msg.Payload).
			WillReturnResult(pgxmockv3.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	order, transitioned, err := repo.ApplyResult(context.Background(), "1234567890", model.OrderStatusPaid, msgs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !transitioned || order.Status != model.OrderStatusPaid {
		t.Fatalf("unexpected result: order=%+v transitioned=%v", order, transitioned)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestOrderRepositoryApplyResultFailedSkipsOutbox(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE orders SET status=").WithArgs(model.OrderStatusFailed, "1").WillReturnRows(orderRows("1", model.OrderStatusFailed))
	mock.ExpectCommit()

	order, transitioned, err := repo.ApplyResult(context.Background(), "1", model.OrderStatusFailed, outboxMessages("1"))
	if err != nil || !transitioned || order.Status != model.OrderStatusFailed {
		t.Fatalf("unexpected result: order=%+v transitioned=%v err=%v", order, transitioned, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestOrderRepositoryApplyResultAlreadyTerminal(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE orders SET status=").WithArgs(model.OrderStatusFailed, "1").WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("FROM orders WHERE number=").WithArgs("1").WillReturnRows(orderRows("1", model.OrderStatusPaid))
	mock.ExpectCommit()

	order, transitioned, err := repo.ApplyResult(context.Background(), "1", model.OrderStatusFailed, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transitioned || order.Status != model.OrderStatusPaid {
		t.Fatalf("expected paid order to stay paid: order=%+v transitioned=%v", order, transitioned)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestOrderRepositoryApplyResultErrors(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	if _, _, err := repo.ApplyResult(context.Background(), "1", model.OrderStatusPending, nil); !errors.Is(err, domainErrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE orders SET status=").WithArgs(model.OrderStatusPaid, "missing").WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("FROM orders WHERE number=").WithArgs("missing").WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()
	if _, _, err := repo.ApplyResult(context.Background(), "missing", model.OrderStatusPaid, nil); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE orders SET status=").WithArgs(model.OrderStatusPaid, "1").WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("FROM orders WHERE number=").WithArgs("1").WillReturnError(errors.New("select"))
	mock.ExpectRollback()
	if _, _, err := repo.ApplyResult(context.Background(), "1", model.OrderStatusPaid, nil); err == nil {
		t.Fatal("expected select error")
	}

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE orders SET status=").WithArgs(model.OrderStatusPaid, "1").WillReturnError(errors.New("update"))
	mock.ExpectRollback()
	if _, _, err := repo.ApplyResult(context.Background(), "1", model.OrderStatusPaid, nil); err == nil {
		t.Fatal("expected update error")
	}

	msgs := outboxMessages("1")
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE orders SET status=").WithArgs(model.OrderStatusPaid, "1").WillReturnRows(orderRows("1", model.OrderStatusPaid))
	mock.ExpectExec("INSERT INTO outbox_messages").WithArgs(msgs[0].ID, msgs[0].Type, msgs[0].AggregateID, msgs[0].Payload).WillReturnError(errors.New("outbox"))
	mock.ExpectRollback()
	if _, _, err := repo.ApplyResult(context.Background(), "1", model.OrderStatusPaid, msgs); err == nil {
		t.Fatal("expected outbox insert error")
	}

	mock.ExpectBegin().WillReturnError(errors.New("begin"))
	if _, _, err := repo.ApplyResult(context.Background(), "1", model.OrderStatusPaid, nil); err == nil {
		t.Fatal("expected begin error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestInsertOutboxAssignsMissingID(t *testing.T) {
	_, mock := newMockStorage(t)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO outbox_messages").
		WithArgs(pgxmockv3.AnyArg(), model.OutboxOrderPaidEvent, "1", []byte(`{}`)).
		WillReturnResult(pgxmockv3.NewResult("INSERT", 1))
	tx, err := mock.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := insertOutboxTx(context.Background(), tx, model.OutboxMessage{Type: model.OutboxOrderPaidEvent, AggregateID: "1", Payload: []byte(`{}`)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}
