package categories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("category not found")

type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type NewCategory struct {
	Name  string `json:"name" validate:"required"`
	Image string `json:"image"`
}

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

func (c *Conf) InsertCategory(ctx context.Context, nc NewCategory) (Category, error) {
	query := `
		INSERT INTO categories (name, image, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING id, name, image, created_at, updated_at
	`
	var cat Category
	err := c.db.QueryRowContext(ctx, query, nc.Name, nc.Image).
		Scan(&cat.ID, &cat.Name, &cat.Image, &cat.CreatedAt, &cat.UpdatedAt)
	if err != nil {
		return Category{}, fmt.Errorf("failed to insert category: %w", err)
	}
	return cat, nil
}

func (c *Conf) GetCategoryByID(ctx context.Context, id int64) (Category, error) {
	query := `SELECT id, name, image, created_at, updated_at FROM categories WHERE id = $1`
	var cat Category
	err := c.db.QueryRowContext(ctx, query, id).
		Scan(&cat.ID, &cat.Name, &cat.Image, &cat.CreatedAt, &cat.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Category{}, ErrNotFound
		}
		return Category{}, fmt.Errorf("failed to query category: %w", err)
	}
	return cat, nil
}

func (c *Conf) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, name, image, created_at, updated_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var cat Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Image, &cat.CreatedAt, &cat.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return out, nil
}

func (c *Conf) UpdateCategory(ctx context.Context, id int64, nc NewCategory) (Category, error) {
	query := `
		UPDATE categories
		SET name = $1, image = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING id, name, image, created_at, updated_at
	`
	var cat Category
	err := c.db.QueryRowContext(ctx, query, nc.Name, nc.Image, id).
		Scan(&cat.ID, &cat.Name, &cat.Image, &cat.CreatedAt, &cat.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Category{}, ErrNotFound
		}
		return Category{}, fmt.Errorf("failed to update category: %w", err)
	}
	return cat, nil
}

func (c *Conf) DeleteCategory(ctx context.Context, id int64) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
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
