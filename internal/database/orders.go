package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lojaonline/internal/models"

	"github.com/shopspring/decimal"
)

// Tx is a checkout transaction. It is only handed out by WithTx.
type Tx struct {
	tx      *sql.Tx
	dialect string
}

func (t *Tx) q(query string) string {
	return rebind(t.dialect, query)
}

// GetProduct reads a product inside the transaction. On PostgreSQL the row
// stays locked until the transaction ends.
func (t *Tx) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ?`
	if t.dialect == DriverPostgres {
		query += ` FOR UPDATE`
	}
	p, err := scanProduct(t.tx.QueryRowContext(ctx, t.q(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

// DecrementStock removes qty units from a product. The update only applies
// while enough stock remains; otherwise ErrStockConflict is returned.
func (t *Tx) DecrementStock(ctx context.Context, productID int64, qty int) error {
	res, err := t.tx.ExecContext(ctx,
		t.q(`UPDATE products SET stock = stock - ? WHERE id = ? AND stock >= ?`),
		qty, productID, qty,
	)
	if err != nil {
		return fmt.Errorf("decrement stock for product %d: %w", productID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement stock for product %d: %w", productID, err)
	}
	if n == 0 {
		return ErrStockConflict
	}
	return nil
}

// CreateOrder inserts the order header. A reused checkout token yields
// ErrDuplicate.
func (t *Tx) CreateOrder(ctx context.Context, customerID int64, total decimal.Decimal, token string) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx,
		t.q(`INSERT INTO orders (customer_id, total, checkout_token, created_at) VALUES (?, ?, ?, ?) RETURNING id`),
		customerID, total, token, time.Now().UTC(),
	).Scan(&id)
	if isUniqueViolation(err) {
		return 0, ErrDuplicate
	}
	if err != nil {
		return 0, fmt.Errorf("create order: %w", err)
	}
	return id, nil
}

// AddLine records one order line with the unit price captured at checkout.
func (t *Tx) AddLine(ctx context.Context, orderID, productID int64, qty int, unitPrice decimal.Decimal) error {
	_, err := t.tx.ExecContext(ctx,
		t.q(`INSERT INTO order_lines (order_id, product_id, quantity, unit_price) VALUES (?, ?, ?, ?)`),
		orderID, productID, qty, unitPrice,
	)
	if err != nil {
		return fmt.Errorf("add order line (order %d, product %d): %w", orderID, productID, err)
	}
	return nil
}

// RecordPayment stores the payment row for an order.
func (t *Tx) RecordPayment(ctx context.Context, orderID int64, amount decimal.Decimal, status string) error {
	_, err := t.tx.ExecContext(ctx,
		t.q(`INSERT INTO payments (order_id, amount, status, created_at) VALUES (?, ?, ?, ?)`),
		orderID, amount, status, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record payment for order %d: %w", orderID, err)
	}
	return nil
}

// GetOrder returns an order with its lines and payment.
func (db *Database) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	var o models.Order
	err := db.conn.QueryRowContext(ctx,
		db.q(`SELECT id, customer_id, total, checkout_token, created_at FROM orders WHERE id = ?`), id,
	).Scan(&o.ID, &o.CustomerID, &o.Total, &o.CheckoutToken, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}

	rows, err := db.conn.QueryContext(ctx, db.q(`
		SELECT l.order_id, l.product_id, p.name, l.quantity, l.unit_price
		FROM order_lines l
		JOIN products p ON p.id = l.product_id
		WHERE l.order_id = ?
		ORDER BY l.product_id`), id)
	if err != nil {
		return nil, fmt.Errorf("get order %d lines: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var l models.OrderLine
		if err := rows.Scan(&l.OrderID, &l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		o.Lines = append(o.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close() // sqlite runs on a single connection

	var p models.Payment
	err = db.conn.QueryRowContext(ctx,
		db.q(`SELECT order_id, amount, status, created_at FROM payments WHERE order_id = ?`), id,
	).Scan(&p.OrderID, &p.Amount, &p.Status, &p.CreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("get order %d payment: %w", id, err)
	default:
		o.Payment = &p
	}

	return &o, nil
}

// GetOrderByToken returns the order, with its lines, created by a checkout
// token.
func (db *Database) GetOrderByToken(ctx context.Context, token string) (*models.Order, error) {
	var id int64
	err := db.conn.QueryRowContext(ctx, db.q(`SELECT id FROM orders WHERE checkout_token = ?`), token).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order by token: %w", err)
	}
	return db.GetOrder(ctx, id)
}

// ListOrdersByCustomer returns the customer's orders, newest first, without lines.
func (db *Database) ListOrdersByCustomer(ctx context.Context, customerID int64) ([]models.Order, error) {
	rows, err := db.conn.QueryContext(ctx,
		db.q(`SELECT id, customer_id, total, checkout_token, created_at FROM orders WHERE customer_id = ? ORDER BY id DESC`),
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.Total, &o.CheckoutToken, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// CountOrders returns the number of persisted orders.
func (db *Database) CountOrders(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}
