package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"lojaonline/internal/database"
	"lojaonline/internal/metrics"
	"lojaonline/internal/services"
	"lojaonline/internal/session"

	"github.com/gin-gonic/gin"
)

// IdempotencyHeader lets API clients replay a checkout safely.
const IdempotencyHeader = "Idempotency-Key"

// CheckoutPage previews the order without committing anything.
func (h *Handler) CheckoutPage(c *gin.Context) {
	s := currentSession(c)
	summary, err := h.checkout.Preview(c.Request.Context(), s.Cart.Snapshot())
	if err != nil {
		h.checkoutRejected(c, "CheckoutPage", err)
		return
	}
	token := s.EnsureCheckoutToken()
	h.render(c, http.StatusOK, "checkout.html", "Finalizar compra", gin.H{"summary": summary, "token": token})
}

// HandleCheckout commits the cart and redirects to the order page.
func (h *Handler) HandleCheckout(c *gin.Context) {
	s := currentSession(c)
	token := strings.TrimSpace(c.GetHeader(IdempotencyHeader))
	if token == "" {
		token = strings.TrimSpace(c.PostForm("checkout_token"))
	}
	if token == "" {
		token = s.CheckoutToken
	}

	res, err := h.checkout.Commit(c.Request.Context(), services.CommitRequest{
		CustomerID:    s.CustomerID,
		CustomerName:  s.CustomerName,
		CustomerEmail: s.CustomerEmail,
		Cart:          s.Cart,
		Token:         token,
	})
	if err != nil {
		h.checkoutRejected(c, "HandleCheckout", err)
		return
	}

	s.CheckoutToken = ""
	if res.Replayed {
		h.metrics.ObserveCheckout(metrics.OutcomeReplayed)
	} else {
		h.metrics.ObserveCheckout(metrics.OutcomeSuccess)
	}
	h.flashRedirect(c, session.FlashSuccess, "Pedido concluído com sucesso!", fmt.Sprintf("/pedido/%d", res.OrderID))
}

// checkoutRejected sends the customer back to the cart with the reason.
// The cart is left as it was.
func (h *Handler) checkoutRejected(c *gin.Context, where string, err error) {
	kind := session.FlashError
	outcome := metrics.OutcomeError
	message := err.Error()

	var persistence *services.PersistenceError
	switch {
	case errors.Is(err, services.ErrEmptyCart):
		kind, outcome = session.FlashWarning, metrics.OutcomeEmptyCart
	case errors.Is(err, services.ErrProductNotFound):
		outcome = metrics.OutcomeNotFound
	case errors.Is(err, services.ErrInsufficientStock):
		outcome = metrics.OutcomeInsufficient
	case errors.Is(err, services.ErrCheckoutConflict):
		kind, outcome = session.FlashWarning, metrics.OutcomeConflict
		currentSession(c).CheckoutToken = ""
	case errors.As(err, &persistence):
		h.customers.Audit(services.EventCheckoutError, fmt.Sprintf("customer=%d", currentSession(c).CustomerID), c.ClientIP())
	default:
		log.Printf("Handler.%s - Error: %v", where, err)
		message = services.ErrPersistence.Error()
	}
	if c.Request.Method == http.MethodPost {
		h.metrics.ObserveCheckout(outcome)
	}
	h.flashRedirect(c, kind, message, "/carrinho")
}

// OrderPage shows one order of the logged in customer.
func (h *Handler) OrderPage(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		h.flashRedirect(c, session.FlashError, "Pedido não encontrado.", "/pedidos")
		return
	}
	order, err := h.orders.GetOrder(c.Request.Context(), id)
	if errors.Is(err, database.ErrNotFound) || (err == nil && order.CustomerID != currentSession(c).CustomerID) {
		h.flashRedirect(c, session.FlashError, "Pedido não encontrado.", "/pedidos")
		return
	}
	if err != nil {
		h.serverError(c, "OrderPage", err)
		return
	}
	h.render(c, http.StatusOK, "order.html", fmt.Sprintf("Pedido #%d", order.ID), gin.H{"order": order})
}

// OrdersPage lists the customer's orders, newest first.
func (h *Handler) OrdersPage(c *gin.Context) {
	orders, err := h.orders.ListOrdersByCustomer(c.Request.Context(), currentSession(c).CustomerID)
	if err != nil {
		h.serverError(c, "OrdersPage", err)
		return
	}
	h.render(c, http.StatusOK, "orders.html", "Meus pedidos", gin.H{"orders": orders})
}
