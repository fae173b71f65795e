package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/artshop/internal/domain/errors"
	"github.com/polkiloo/artshop/internal/domain/model"
)

type productRepository struct {
	storage *Storage
}

const productColumns = `id, name, price_minor, image, sold, created_at, updated_at`

func (r *productRepository) List(ctx context.Context) ([]model.Product, error) {
	const query = `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC, id`
	rows, err := r.storage.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	const query = `SELECT ` + productColumns + ` FROM products WHERE id=$1`
	product, err := scanProduct(r.storage.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return product, nil
}

func (r *productRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`
	rows, err := r.storage.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

func (r *productRepository) MarkSold(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	const query = `UPDATE products SET sold=TRUE, updated_at=NOW() WHERE id = ANY($1) AND NOT sold`
	_, err := r.storage.pool.Exec(ctx, query, ids)
	return err
}

func collectProducts(rows pgx.Rows) ([]model.Product, error) {
	defer rows.Close()

	var result []model.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	var (
		p          model.Product
		priceMinor int64
	)
	if err := row.Scan(&p.ID, &p.Name, &priceMinor, &p.Image, &p.Sold, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Price = model.FromMinorUnits(priceMinor)
	return &p, nil
}
