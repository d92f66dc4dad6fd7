package services

import (
	"errors"
	"fmt"
)

// Validation failures. Nothing is written when one of these is returned.
var (
	ErrPasswordTooShort = errors.New("A senha deve ter pelo menos 6 caracteres!")
	ErrMissingField     = errors.New("Preencha todos os campos obrigatórios.")
	ErrDuplicateEmail   = errors.New("Email já existe!")
	ErrAuthentication   = errors.New("Email ou senha incorretos.")
	ErrCustomerNotFound = errors.New("Cliente não encontrado.")
)

// Checkout rejections.
var (
	ErrEmptyCart         = errors.New("Seu carrinho está vazio!")
	ErrProductNotFound   = errors.New("Produto não encontrado.")
	ErrInsufficientStock = errors.New("estoque insuficiente")
	ErrPersistence       = errors.New("Não foi possível concluir o pedido. Tente novamente.")
	ErrDuplicateCheckout = errors.New("checkout already committed")
	ErrCheckoutConflict  = errors.New("Este pedido já foi confirmado com outro carrinho. Revise o carrinho e confirme novamente.")
)

// ProductNotFoundError names the cart product that no longer exists.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return ErrProductNotFound.Error()
}

func (e *ProductNotFoundError) Unwrap() error { return ErrProductNotFound }

// InsufficientStockError reports the first cart line whose quantity exceeds
// the current stock.
type InsufficientStockError struct {
	Product   string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Estoque insuficiente para %s.", e.Product)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// PersistenceError wraps a storage failure during commit. Its message is
// safe to show to customers; the cause is only logged.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return ErrPersistence.Error()
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// IsValidation reports whether err is a user input error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrPasswordTooShort) || errors.Is(err, ErrMissingField)
}
