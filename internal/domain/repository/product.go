package repository

import (
	"context"

	"github.com/polkiloo/artshop/internal/domain/model"
)

// ProductRepository provides access to the catalog.
type ProductRepository interface {
	List(ctx context.Context) ([]model.Product, error)
	GetByID(ctx context.Context, id string) (*model.Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]model.Product, error)
	MarkSold(ctx context.Context, ids []string) error
}
