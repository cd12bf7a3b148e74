package orders

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is a normal outcome for the payment-intent lookup: the
	// webhook may simply not have run yet.
	ErrNotFound = errors.New("order not found")
	// ErrDuplicatePaymentIntent means an order already exists for the
	// payment intent. Callers treat it as "already processed", not failure.
	ErrDuplicatePaymentIntent = errors.New("order already exists for payment intent")
)

// Store is the order persistence surface the handlers depend on.
type Store interface {
	Create(ctx context.Context, no NewOrder) (Order, error)
	GetByID(ctx context.Context, id int64) (Order, error)
	GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (Order, error)
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	MonthlyIncome(ctx context.Context) ([]MonthlyIncome, error)
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

const orderNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateOrderNumber returns a 6-character alphanumeric code. Collisions are
// possible but not checked here; the unique index rejects the rare clash.
func GenerateOrderNumber() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = orderNumberAlphabet[int(b)%len(orderNumberAlphabet)]
	}
	return string(buf), nil
}

// Create persists a new order with status confirmed. A unique violation on
// payment_intent_id is reported as ErrDuplicatePaymentIntent so a webhook
// retry that races the first delivery still resolves to exactly one order.
func (c *Conf) Create(ctx context.Context, no NewOrder) (Order, error) {
	orderNumber, err := GenerateOrderNumber()
	if err != nil {
		return Order{}, err
	}

	productIDs, err := json.Marshal(no.ProductIDs)
	if err != nil {
		return Order{}, fmt.Errorf("encoding product ids: %w", err)
	}
	address, err := json.Marshal(no.Address)
	if err != nil {
		return Order{}, fmt.Errorf("encoding address: %w", err)
	}

	query := `
		INSERT INTO orders (user_id, payment_intent_id, order_number, status, product_ids, amount, shipping, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	order := Order{
		UserID:          no.UserID,
		PaymentIntentID: no.PaymentIntentID,
		OrderNumber:     orderNumber,
		Status:          StatusConfirmed,
		ProductIDs:      no.ProductIDs,
		Amount:          no.Amount,
		Shipping:        no.Shipping,
		Address:         no.Address,
	}
	err = c.db.QueryRowContext(ctx, query, no.UserID, no.PaymentIntentID, orderNumber,
		StatusConfirmed, productIDs, no.Amount, no.Shipping, address).
		Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "orders_order_number_key" {
				return Order{}, fmt.Errorf("order number collision: %w", err)
			}
			return Order{}, ErrDuplicatePaymentIntent
		}
		return Order{}, fmt.Errorf("failed to insert order: %w", err)
	}
	return order, nil
}

const orderColumns = `id, user_id, payment_intent_id, order_number, status, product_ids, amount, shipping, address, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var (
		o          Order
		productIDs []byte
		address    []byte
	)
	err := row.Scan(&o.ID, &o.UserID, &o.PaymentIntentID, &o.OrderNumber, &o.Status,
		&productIDs, &o.Amount, &o.Shipping, &address, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	if err := json.Unmarshal(productIDs, &o.ProductIDs); err != nil {
		return Order{}, fmt.Errorf("decoding product ids: %w", err)
	}
	if err := json.Unmarshal(address, &o.Address); err != nil {
		return Order{}, fmt.Errorf("decoding address: %w", err)
	}
	return o, nil
}

func (c *Conf) GetByID(ctx context.Context, id int64) (Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	order, err := scanOrder(c.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("failed to query order: %w", err)
	}
	return order, nil
}

func (c *Conf) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE payment_intent_id = $1`
	order, err := scanOrder(c.db.QueryRowContext(ctx, query, paymentIntentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("failed to query order by payment intent: %w", err)
	}
	return order, nil
}

func (c *Conf) ListByUser(ctx context.Context, userID int64) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`
	return c.list(ctx, query, userID)
}

func (c *Conf) ListAll(ctx context.Context) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`
	return c.list(ctx, query)
}

func (c *Conf) list(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		out = append(out, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return out, nil
}

func (c *Conf) UpdateStatus(ctx context.Context, id int64, status string) error {
	if !ValidStatus(status) {
		return fmt.Errorf("invalid order status: %s", status)
	}
	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`
	res, err := c.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
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

func (c *Conf) MonthlyIncome(ctx context.Context) ([]MonthlyIncome, error) {
	query := `
		SELECT to_char(date_trunc('month', created_at), 'YYYY-MM') AS month,
		       COALESCE(SUM(amount), 0) AS income,
		       COUNT(*) AS orders
		FROM orders
		WHERE status NOT IN ($1, $2)
		GROUP BY 1
		ORDER BY 1
	`
	rows, err := c.db.QueryContext(ctx, query, StatusCancelled, StatusRefunded)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly income: %w", err)
	}
	defer rows.Close()

	var out []MonthlyIncome
	for rows.Next() {
		var mi MonthlyIncome
		if err := rows.Scan(&mi.Month, &mi.Income, &mi.Orders); err != nil {
			return nil, fmt.Errorf("failed to scan monthly income: %w", err)
		}
		out = append(out, mi)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating monthly income: %w", err)
	}
	return out, nil
}
