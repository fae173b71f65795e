package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a painting offered in the catalog. Paintings are unique, so a
// product can be sold only once.
type Product struct {
	ID        string
	Name      string
	Price     decimal.Decimal
	Image     string
	Sold      bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
