package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatusSuccess is the only status the simulated gateway produces.
const PaymentStatusSuccess = "SUCESSO"

// Order is created exactly once per successful checkout.
type Order struct {
	ID            int64           `json:"id"`
	CustomerID    int64           `json:"customer_id"`
	Total         decimal.Decimal `json:"total"`
	CheckoutToken string          `json:"-"`
	CreatedAt     time.Time       `json:"created_at"`
	Lines         []OrderLine     `json:"lines,omitempty"`
	Payment       *Payment        `json:"payment,omitempty"`
}

// OrderLine keeps the unit price captured at checkout time so that
// later price changes never alter historical orders.
type OrderLine struct {
	OrderID     int64           `json:"order_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Subtotal returns unit price times quantity.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Payment struct {
	OrderID   int64           `json:"order_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// CheckoutLine is derived from the cart and the live catalog on every
// preview; it is never cached.
type CheckoutLine struct {
	Product   Product         `json:"product"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// NewCheckoutLine snapshots the product price for qty units.
func NewCheckoutLine(p Product, qty int) CheckoutLine {
	return CheckoutLine{
		Product:   p,
		Quantity:  qty,
		UnitPrice: p.Price,
		Subtotal:  p.Price.Mul(decimal.NewFromInt(int64(qty))),
	}
}

// CheckoutSummary is the result of the price & validate phase.
type CheckoutSummary struct {
	Lines []CheckoutLine  `json:"lines"`
	Total decimal.Decimal `json:"total"`
	Token string          `json:"token,omitempty"`
}

// ItemCount returns the total number of units in the summary.
func (s CheckoutSummary) ItemCount() int {
	n := 0
	for _, l := range s.Lines {
		n += l.Quantity
	}
	return n
}
