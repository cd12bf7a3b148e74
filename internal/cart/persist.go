package cart

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Conf persists cart snapshots in postgres, one row per user.
type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

func (c *Conf) Load(ctx context.Context, userID int64) (State, bool, error) {
	query := `
		SELECT snapshot
		FROM carts
		WHERE user_id = $1
	`
	var raw []byte
	err := c.db.QueryRowContext(ctx, query, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return State{}, false, nil
		}
		return State{}, false, fmt.Errorf("failed to query cart snapshot: %w", err)
	}

	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, false, fmt.Errorf("failed to decode cart snapshot: %w", err)
	}
	return st, true, nil
}

func (c *Conf) Save(ctx context.Context, userID int64, state State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode cart snapshot: %w", err)
	}

	query := `
		INSERT INTO carts (user_id, snapshot, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET snapshot = $2, updated_at = NOW()
	`
	_, err = c.db.ExecContext(ctx, query, userID, raw)
	if err != nil {
		return fmt.Errorf("failed to save cart snapshot: %w", err)
	}
	return nil
}
