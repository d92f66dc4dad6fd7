package handlers

import (
	"net/http"
	"strconv"

	"lojaonline/internal/services"
	"lojaonline/internal/session"

	"github.com/gin-gonic/gin"
)

const invalidQuantityMessage = "Quantidade inválida."

// CartPage shows the cart priced against the live catalog.
func (h *Handler) CartPage(c *gin.Context) {
	view, err := h.carts.View(c.Request.Context(), currentSession(c).Cart.Snapshot())
	if err != nil {
		h.serverError(c, "CartPage", err)
		return
	}
	h.render(c, http.StatusOK, "cart.html", "Carrinho", gin.H{"cart": view})
}

// AddToCart adds quantidade units (default 1) of a product. Stock is only
// checked at checkout.
func (h *Handler) AddToCart(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		h.flashRedirect(c, session.FlashError, services.ErrProductNotFound.Error(), "/")
		return
	}
	qty, err := session.ParseAddQuantity(c.PostForm("quantidade"))
	if err != nil {
		h.flashRedirect(c, session.FlashError, invalidQuantityMessage, "/produto/"+strconv.FormatInt(id, 10))
		return
	}

	p, found, err := h.catalog.Product(c.Request.Context(), id)
	if err != nil {
		h.serverError(c, "AddToCart", err)
		return
	}
	if !found {
		h.flashRedirect(c, session.FlashError, services.ErrProductNotFound.Error(), "/")
		return
	}

	if err := currentSession(c).Cart.Add(id, qty); err != nil {
		h.flashRedirect(c, session.FlashError, invalidQuantityMessage, "/carrinho")
		return
	}
	h.flashRedirect(c, session.FlashSuccess, p.Name+" adicionado ao carrinho.", "/carrinho")
}

// RemoveFromCart drops a product line. Removing an absent product is fine.
func (h *Handler) RemoveFromCart(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		h.flashRedirect(c, session.FlashError, services.ErrProductNotFound.Error(), "/carrinho")
		return
	}
	currentSession(c).Cart.Remove(id)
	h.flashRedirect(c, session.FlashInfo, "Produto removido do carrinho.", "/carrinho")
}

// UpdateCartItem sets the quantity of a line; 0 removes it.
func (h *Handler) UpdateCartItem(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		h.flashRedirect(c, session.FlashError, services.ErrProductNotFound.Error(), "/carrinho")
		return
	}
	qty, err := session.ParseQuantity(c.PostForm("quantidade"))
	if err != nil {
		h.flashRedirect(c, session.FlashError, invalidQuantityMessage, "/carrinho")
		return
	}
	if err := currentSession(c).Cart.SetQuantity(id, qty); err != nil {
		h.flashRedirect(c, session.FlashError, invalidQuantityMessage, "/carrinho")
		return
	}
	h.flashRedirect(c, session.FlashSuccess, "Carrinho atualizado.", "/carrinho")
}
