package models

import (
	"github.com/shopspring/decimal"
)

// DefaultImageURL is shown for products registered without a picture.
const DefaultImageURL = "/static/img/produto-sem-imagem.png"

type Product struct {
	ID          int64           `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Description string          `json:"description" db:"description"`
	Stock       int             `json:"stock" db:"stock"`
	ImageURL    string          `json:"image_url" db:"image_url"`
}

// ImageOrDefault returns the product image or the placeholder when none was set.
func (p Product) ImageOrDefault() string {
	if p.ImageURL == "" {
		return DefaultImageURL
	}
	return p.ImageURL
}

// InStock reports whether qty units can currently be sold.
func (p Product) InStock(qty int) bool {
	return p.Stock >= qty
}

// ProductForm carries the fields of the demo product seed.
type ProductForm struct {
	Name        string `form:"name" yaml:"name" binding:"required"`
	Price       string `form:"price" yaml:"price" binding:"required"`
	Description string `form:"description" yaml:"description"`
	Stock       int    `form:"stock" yaml:"stock"`
	ImageURL    string `form:"image_url" yaml:"image_url"`
}
