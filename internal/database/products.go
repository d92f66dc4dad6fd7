package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lojaonline/internal/models"
)

const productColumns = `id, name, price, description, stock, image_url`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var p models.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Description, &p.Stock, &p.ImageURL); err != nil {
		return nil, err
	}
	return &p, nil
}

func collectProducts(rows *sql.Rows) ([]models.Product, error) {
	defer rows.Close()
	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// GetProduct returns the product with the given id or ErrNotFound.
func (db *Database) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	row := db.conn.QueryRowContext(ctx, db.q(`SELECT `+productColumns+` FROM products WHERE id = ?`), id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

// ListProducts returns the whole catalog ordered by id.
func (db *Database) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return collectProducts(rows)
}

// ListFeatured returns up to limit products that are in stock.
func (db *Database) ListFeatured(ctx context.Context, limit int) ([]models.Product, error) {
	if limit <= 0 {
		limit = 8
	}
	rows, err := db.conn.QueryContext(ctx,
		db.q(`SELECT `+productColumns+` FROM products WHERE stock > 0 ORDER BY id LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list featured products: %w", err)
	}
	return collectProducts(rows)
}

// CreateProduct inserts a product and sets its ID.
func (db *Database) CreateProduct(ctx context.Context, p *models.Product) error {
	err := db.conn.QueryRowContext(ctx,
		db.q(`INSERT INTO products (name, price, description, stock, image_url) VALUES (?, ?, ?, ?, ?) RETURNING id`),
		p.Name, p.Price, p.Description, p.Stock, p.ImageURL,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// UpdateProduct overwrites price, stock and descriptive fields.
func (db *Database) UpdateProduct(ctx context.Context, p *models.Product) error {
	res, err := db.conn.ExecContext(ctx,
		db.q(`UPDATE products SET name = ?, price = ?, description = ?, stock = ?, image_url = ? WHERE id = ?`),
		p.Name, p.Price, p.Description, p.Stock, p.ImageURL, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update product %d: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountProducts returns the number of catalog rows.
func (db *Database) CountProducts(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}
