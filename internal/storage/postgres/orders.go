package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/artshop/internal/domain/errors"
	"github.com/polkiloo/artshop/internal/domain/model"
)

type orderRepository struct {
	storage *Storage
}

const orderColumns = `id, number, status, customer, cart_items, total_minor, shipping_minor, currency,
       gateway, COALESCE(gateway_ref, ''), COALESCE(gateway_params, '{}'::jsonb), created_at, updated_at`

func (r *orderRepository) CreatePending(ctx context.Context, order *model.Order) (*model.Order, error) {
	customer, err := json.Marshal(order.Customer)
	if err != nil {
		return nil, fmt.Errorf("encode customer: %w", err)
	}
	items, err := json.Marshal(order.CartItems)
	if err != nil {
		return nil, fmt.Errorf("encode cart items: %w", err)
	}

	const query = `INSERT INTO orders (number, status, customer, cart_items, total_minor, shipping_minor, currency, gateway)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
                   RETURNING id, created_at, updated_at`
	created := *order
	created.Status = model.OrderStatusPending
	err = r.storage.pool.QueryRow(ctx, query,
		order.Number,
		model.OrderStatusPending,
		customer,
		items,
		model.MinorUnits(order.TotalAmount),
		model.MinorUnits(order.ShippingCost),
		order.Currency,
		order.Gateway,
	).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domainErrors.ErrAlreadyExists
		}
		return nil, err
	}
	return &created, nil
}

func (r *orderRepository) SaveGatewayParams(ctx context.Context, number, gateway, ref string, params map[string]string) error {
	encoded, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode gateway params: %w", err)
	}

	const query = `UPDATE orders SET gateway=$1, gateway_ref=NULLIF($2, ''), gateway_params=$3, updated_at=NOW() WHERE number=$4`
	tag, err := r.storage.pool.Exec(ctx, query, gateway, ref, encoded, number)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *orderRepository) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE number=$1`
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, query, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetByGatewayRef(ctx context.Context, gateway, ref string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE gateway=$1 AND gateway_ref=$2`
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, query, gateway, ref))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) ApplyResult(ctx context.Context, number string, status model.OrderStatus, onPaid []model.OutboxMessage) (*model.Order, bool, error) {
	if !status.Terminal() {
		return nil, false, fmt.Errorf("%w: status %q is not terminal", domainErrors.ErrValidation, status)
	}

	updateQuery := `UPDATE orders SET status=$1, updated_at=NOW()
                    WHERE number=$2 AND status='pending'
                    RETURNING ` + orderColumns
	selectQuery := `SELECT ` + orderColumns + ` FROM orders WHERE number=$1`

	var (
		order        *model.Order
		transitioned bool
	)
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		updated, err := scanOrder(tx.QueryRow(ctx, updateQuery, status, number))
		if errors.Is(err, pgx.ErrNoRows) {
			existing, err := scanOrder(tx.QueryRow(ctx, selectQuery, number))
			if errors.Is(err, pgx.ErrNoRows) {
				return domainErrors.ErrNotFound
			}
			if err != nil {
				return err
			}
			order = existing
			return nil
		}
		if err != nil {
			return err
		}

		order, transitioned = updated, true
		if status != model.OrderStatusPaid {
			return nil
		}
		for _, msg := range onPaid {
			if err := insertOutboxTx(ctx, tx, msg); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return order, transitioned, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		order                  model.Order
		customer, items, extra []byte
		totalMinor, shipMinor  int64
	)
	err := row.Scan(
		&order.ID,
		&order.Number,
		&order.Status,
		&customer,
		&items,
		&totalMinor,
		&shipMinor,
		&order.Currency,
		&order.Gateway,
		&order.GatewayRef,
		&extra,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(customer, &order.Customer); err != nil {
		return nil, fmt.Errorf("decode customer: %w", err)
	}
	if err := json.Unmarshal(items, &order.CartItems); err != nil {
		return nil, fmt.Errorf("decode cart items: %w", err)
	}
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &order.GatewayParams); err != nil {
			return nil, fmt.Errorf("decode gateway params: %w", err)
		}
	}
	order.TotalAmount = model.FromMinorUnits(totalMinor)
	order.ShippingCost = model.FromMinorUnits(shipMinor)
	return &order, nil
}
