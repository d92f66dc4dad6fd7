package services

import (
	"context"
	"errors"
	"log"

	"lojaonline/internal/database"
	"lojaonline/internal/models"

	"github.com/shopspring/decimal"
)

// CartLine is one row of the cart page.
type CartLine struct {
	models.CheckoutLine
	Short bool // requested more than the current stock
}

// CartView is the priced cart shown on /carrinho. Unlike a checkout
// preview it tolerates problems so the customer can fix them.
type CartView struct {
	Lines   []CartLine
	Missing []int64
	Total   decimal.Decimal
	Count   int
}

// Empty reports whether there is nothing to show.
func (v *CartView) Empty() bool {
	return len(v.Lines) == 0 && len(v.Missing) == 0
}

// CanCheckout reports whether every line is purchasable.
func (v *CartView) CanCheckout() bool {
	if len(v.Lines) == 0 || len(v.Missing) > 0 {
		return false
	}
	for _, l := range v.Lines {
		if l.Short {
			return false
		}
	}
	return true
}

// CartService prices session carts for display.
type CartService struct {
	products productReader
}

func NewCartService(products CatalogStore) *CartService {
	return &CartService{products: products}
}

// View prices the cart. Products that no longer exist are listed in
// Missing; lines exceeding stock are flagged Short.
func (cs *CartService) View(ctx context.Context, snapshot map[int64]int) (*CartView, error) {
	view := &CartView{Total: decimal.Zero}
	for _, id := range sortedIDs(snapshot) {
		qty := snapshot[id]
		p, err := cs.products.GetProduct(ctx, id)
		if errors.Is(err, database.ErrNotFound) {
			log.Printf("CartService.View - product %d no longer exists", id)
			view.Missing = append(view.Missing, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		line := CartLine{CheckoutLine: models.NewCheckoutLine(*p, qty), Short: !p.InStock(qty)}
		view.Lines = append(view.Lines, line)
		view.Total = view.Total.Add(line.Subtotal)
		view.Count += qty
	}
	return view, nil
}
