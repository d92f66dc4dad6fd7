package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatBRL(t *testing.T) {
	got := FormatBRL(decimal.RequireFromString("1234.5"))
	assert.Contains(t, got, "R$ ")
	assert.Contains(t, got, ",50")
	assert.Contains(t, FormatBRL(decimal.Zero), "0,00")
}

func TestCheckoutLineSubtotal(t *testing.T) {
	p := Product{ID: 1, Name: "Caneca", Price: decimal.RequireFromString("19.90"), Stock: 3}
	l := NewCheckoutLine(p, 3)
	assert.Equal(t, "59.70", l.Subtotal.StringFixed(2))
	assert.True(t, p.InStock(3))
	assert.False(t, p.InStock(4))
	assert.Equal(t, DefaultImageURL, p.ImageOrDefault())
}
