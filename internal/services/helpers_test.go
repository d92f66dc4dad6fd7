package services

import (
	"context"
	"path/filepath"
	"testing"

	"lojaonline/internal/database"
	"lojaonline/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.NewDatabase(context.Background(), database.DriverSQLite, filepath.Join(t.TempDir(), "loja.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func addProduct(t *testing.T, db *database.Database, name, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: decimal.RequireFromString(price), Stock: stock}
	require.NoError(t, db.CreateProduct(context.Background(), p))
	return p
}

func addCustomer(t *testing.T, db *database.Database, email string) *models.Customer {
	t.Helper()
	c := &models.Customer{Name: "Maria", Email: email, PasswordHash: "x"}
	require.NoError(t, db.CreateCustomer(context.Background(), c))
	return c
}

func stockOf(t *testing.T, db *database.Database, id int64) int {
	t.Helper()
	p, err := db.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func orderCount(t *testing.T, db *database.Database) int {
	t.Helper()
	n, err := db.CountOrders(context.Background())
	require.NoError(t, err)
	return n
}
