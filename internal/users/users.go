package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

func (c *Conf) InsertUser(ctx context.Context, nu NewUser) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hashing password: %w", err)
	}

	roles, err := json.Marshal([]string{"user"})
	if err != nil {
		return User{}, fmt.Errorf("encoding roles: %w", err)
	}

	query := `
		INSERT INTO users (name, email, password_hash, roles, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	user := User{Name: nu.Name, Email: nu.Email, Roles: []string{"user"}}
	err = c.db.QueryRowContext(ctx, query, nu.Name, nu.Email, string(hash), roles).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrDuplicateEmail
		}
		return User{}, fmt.Errorf("failed to insert user: %w", err)
	}
	return user, nil
}

// Authenticate returns the user when the email/password pair matches.
func (c *Conf) Authenticate(ctx context.Context, login Login) (User, error) {
	user, err := c.getByEmail(ctx, login.Email)
	if err != nil {
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(login.Password)); err != nil {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (c *Conf) getByEmail(ctx context.Context, email string) (User, error) {
	query := `
		SELECT id, name, email, password_hash, roles, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	var (
		user  User
		roles []byte
	)
	err := c.db.QueryRowContext(ctx, query, email).
		Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &roles, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("failed to query user: %w", err)
	}
	if err := json.Unmarshal(roles, &user.Roles); err != nil {
		return User{}, fmt.Errorf("decoding roles: %w", err)
	}
	return user, nil
}

func (c *Conf) ListUsers(ctx context.Context) ([]User, error) {
	query := `
		SELECT id, name, email, roles, created_at, updated_at
		FROM users
		ORDER BY id
	`
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var (
			user  User
			roles []byte
		)
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &roles, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		if err := json.Unmarshal(roles, &user.Roles); err != nil {
			return nil, fmt.Errorf("decoding roles: %w", err)
		}
		out = append(out, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return out, nil
}
