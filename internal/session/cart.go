package session

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidQuantity is returned for quantities that are not integers or
// are out of range for the operation.
var ErrInvalidQuantity = errors.New("quantidade inválida")

// Cart maps product ids to requested quantities. Every stored quantity is
// greater than zero.
type Cart map[int64]int

// Add increases the quantity of a product. qty must be positive.
func (c Cart) Add(productID int64, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	c[productID] += qty
	return nil
}

// SetQuantity overwrites the quantity of a product. Zero removes the entry.
func (c Cart) SetQuantity(productID int64, qty int) error {
	if qty < 0 {
		return ErrInvalidQuantity
	}
	if qty == 0 {
		c.Remove(productID)
		return nil
	}
	c[productID] = qty
	return nil
}

// Remove deletes a product. Removing an absent product is a no-op.
func (c Cart) Remove(productID int64) {
	delete(c, productID)
}

// Snapshot returns a copy of the cart contents.
func (c Cart) Snapshot() map[int64]int {
	out := make(map[int64]int, len(c))
	for id, qty := range c {
		out[id] = qty
	}
	return out
}

// Clear empties the cart in place.
func (c Cart) Clear() {
	for id := range c {
		delete(c, id)
	}
}

// Len returns the number of distinct products.
func (c Cart) Len() int {
	return len(c)
}

// Count returns the number of units across all products.
func (c Cart) Count() int {
	n := 0
	for _, qty := range c {
		n += qty
	}
	return n
}

// ParseAddQuantity parses the quantidade field of the add form.
// An empty value means 1.
func ParseAddQuantity(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1, nil
	}
	qty, err := strconv.Atoi(raw)
	if err != nil || qty <= 0 {
		return 0, ErrInvalidQuantity
	}
	return qty, nil
}

// ParseQuantity parses the quantidade field of the update form. The value
// is required and must be a non-negative integer.
func ParseQuantity(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrInvalidQuantity
	}
	qty, err := strconv.Atoi(raw)
	if err != nil || qty < 0 {
		return 0, ErrInvalidQuantity
	}
	return qty, nil
}
