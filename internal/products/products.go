package products

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("product not found")

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

const productColumns = `id, name, description, price, discount_price, image, category_id, stock, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.DiscountPrice,
		&p.Image, &p.CategoryID, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (c *Conf) InsertProduct(ctx context.Context, np NewProduct) (Product, error) {
	price := decimal.NewFromFloat(np.Price)
	var discount decimal.NullDecimal
	if np.DiscountPrice > 0 {
		discount = decimal.NullDecimal{Decimal: decimal.NewFromFloat(np.DiscountPrice), Valid: true}
	}

	query := `
		INSERT INTO products (name, description, price, discount_price, image, category_id, stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING ` + productColumns
	product, err := scanProduct(c.db.QueryRowContext(ctx, query, np.Name, np.Description,
		price, discount, np.Image, np.CategoryID, np.Stock))
	if err != nil {
		return Product{}, fmt.Errorf("failed to insert product: %w", err)
	}
	return product, nil
}

func (c *Conf) GetProductByID(ctx context.Context, id int64) (Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	product, err := scanProduct(c.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("failed to query product: %w", err)
	}
	return product, nil
}

// ListProducts returns a page of products, optionally filtered by category.
func (c *Conf) ListProducts(ctx context.Context, categoryID int64, limit, offset int) ([]Product, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + productColumns + ` FROM products`
	args := []any{}
	if categoryID > 0 {
		query += ` WHERE category_id = $1`
		args = append(args, categoryID)
	}
	query += fmt.Sprintf(` ORDER BY id LIMIT %d OFFSET %d`, limit, offset)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out = append(out, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return out, nil
}

func (c *Conf) UpdateProduct(ctx context.Context, id int64, np NewProduct) (Product, error) {
	price := decimal.NewFromFloat(np.Price)
	var discount decimal.NullDecimal
	if np.DiscountPrice > 0 {
		discount = decimal.NullDecimal{Decimal: decimal.NewFromFloat(np.DiscountPrice), Valid: true}
	}

	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, discount_price = $4, image = $5, category_id = $6, stock = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING ` + productColumns
	product, err := scanProduct(c.db.QueryRowContext(ctx, query, np.Name, np.Description,
		price, discount, np.Image, np.CategoryID, np.Stock, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

func (c *Conf) DeleteProduct(ctx context.Context, id int64) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementStock settles paid quantities against the stock counter. The
// counter never goes below zero; there is no reservation beyond this.
func (c *Conf) DecrementStock(ctx context.Context, id int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", quantity)
	}
	query := `
		UPDATE products
		SET stock = GREATEST(stock - $1, 0), updated_at = NOW()
		WHERE id = $2
	`
	res, err := c.db.ExecContext(ctx, query, quantity, id)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
