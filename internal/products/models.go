package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Stock is a plain counter decremented when an
// order for the product is paid.
type Product struct {
	ID            int64               `json:"id"`
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	Price         decimal.Decimal     `json:"price"`
	DiscountPrice decimal.NullDecimal `json:"discount_price"`
	Image         string              `json:"image"`
	CategoryID    int64               `json:"category_id"`
	Stock         int                 `json:"stock"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

type NewProduct struct {
	Name          string  `json:"name" validate:"required"`
	Description   string  `json:"description"`
	Price         float64 `json:"price" validate:"required,gt=0"`
	DiscountPrice float64 `json:"discount_price" validate:"omitempty,gt=0"`
	Image         string  `json:"image"`
	CategoryID    int64   `json:"category_id" validate:"required"`
	Stock         int     `json:"stock" validate:"min=0"`
}
