package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lojaonline/internal/models"
)

const customerColumns = `id, name, email, password_hash, phone, created_at`

func scanCustomer(row rowScanner) (*models.Customer, error) {
	var c models.Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.PasswordHash, &c.Phone, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCustomer inserts a customer. A taken email yields ErrDuplicate and
// no row is written.
func (db *Database) CreateCustomer(ctx context.Context, c *models.Customer) error {
	c.CreatedAt = time.Now().UTC()
	err := db.conn.QueryRowContext(ctx,
		db.q(`INSERT INTO customers (name, email, password_hash, phone, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id`),
		c.Name, c.Email, c.PasswordHash, c.Phone, c.CreatedAt,
	).Scan(&c.ID)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create customer: %w", err)
	}
	return nil
}

// GetCustomer returns a customer by id or ErrNotFound.
func (db *Database) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	row := db.conn.QueryRowContext(ctx, db.q(`SELECT `+customerColumns+` FROM customers WHERE id = ?`), id)
	c, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer %d: %w", id, err)
	}
	return c, nil
}

// GetCustomerByEmail looks a customer up by exact (case-sensitive) email.
func (db *Database) GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	row := db.conn.QueryRowContext(ctx, db.q(`SELECT `+customerColumns+` FROM customers WHERE email = ?`), email)
	c, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer by email: %w", err)
	}
	return c, nil
}
