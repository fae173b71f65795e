package usecase

import (
	"context"

	"github.com/polkiloo/artshop/internal/domain/model"
	"github.com/polkiloo/artshop/internal/domain/repository"
)

// CatalogUseCase exposes the storefront catalog.
type CatalogUseCase struct {
	products repository.ProductRepository
}

// NewCatalogUseCase constructs CatalogUseCase.
func NewCatalogUseCase(products repository.ProductRepository) *CatalogUseCase {
	return &CatalogUseCase{products: products}
}

// List returns all products, newest first. Sold paintings stay listed.
func (u *CatalogUseCase) List(ctx context.Context) ([]model.Product, error) {
	return u.products.List(ctx)
}

// Get returns single product or ErrNotFound.
func (u *CatalogUseCase) Get(ctx context.Context, id string) (*model.Product, error) {
	return u.products.GetByID(ctx, id)
}
