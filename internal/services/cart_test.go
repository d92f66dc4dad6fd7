package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartView(t *testing.T) {
	db := openTestDB(t)
	a := addProduct(t, db, "Caneca", "50.00", 5)
	b := addProduct(t, db, "Camiseta", "30.00", 1)
	svc := NewCartService(db)

	view, err := svc.View(context.Background(), map[int64]int{a.ID: 2, b.ID: 3, 777: 1})
	require.NoError(t, err)

	require.Len(t, view.Lines, 2)
	assert.False(t, view.Lines[0].Short)
	assert.True(t, view.Lines[1].Short)
	assert.Equal(t, []int64{777}, view.Missing)
	assert.True(t, decimal.RequireFromString("190.00").Equal(view.Total))
	assert.Equal(t, 5, view.Count)
	assert.False(t, view.CanCheckout())
	assert.False(t, view.Empty())
}

func TestCartView_Empty(t *testing.T) {
	svc := NewCartService(openTestDB(t))
	view, err := svc.View(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, view.Empty())
	assert.False(t, view.CanCheckout())
	assert.True(t, view.Total.IsZero())
}

func TestCartView_Purchasable(t *testing.T) {
	db := openTestDB(t)
	a := addProduct(t, db, "Caneca", "50.00", 5)
	view, err := NewCartService(db).View(context.Background(), map[int64]int{a.ID: 5})
	require.NoError(t, err)
	assert.True(t, view.CanCheckout())
}
