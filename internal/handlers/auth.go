package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"lojaonline/internal/models"
	"lojaonline/internal/services"
	"lojaonline/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RegisterPage shows the registration form.
func (h *Handler) RegisterPage(c *gin.Context) {
	h.render(c, http.StatusOK, "register.html", "Cadastro", gin.H{"form": models.RegisterForm{}})
}

// HandleRegister creates the customer and sends them to the login page.
func (h *Handler) HandleRegister(c *gin.Context) {
	var form models.RegisterForm
	if err := c.ShouldBind(&form); err != nil {
		log.Printf("HandleRegister - bind error: %v", err)
	}

	customer, err := h.customers.Register(c.Request.Context(), services.RegisterInput{
		Name:     form.Name,
		Email:    form.Email,
		Password: form.Password,
		Phone:    form.Phone,
	})
	if err != nil {
		status := http.StatusInternalServerError
		message := "Não foi possível concluir o cadastro. Tente novamente."
		switch {
		case services.IsValidation(err):
			status, message = http.StatusBadRequest, err.Error()
		case errors.Is(err, services.ErrDuplicateEmail):
			status, message = http.StatusConflict, err.Error()
		default:
			log.Printf("HandleRegister - Error: %v", err)
		}
		form.Password = ""
		h.render(c, status, "register.html", "Cadastro", gin.H{"form": form, "error": message})
		return
	}

	h.customers.Audit(services.EventRegistered, fmt.Sprintf("customer=%d email=%s", customer.ID, customer.Email), c.ClientIP())
	h.flashRedirect(c, session.FlashSuccess, "Cadastrado com sucesso! Faça login.", "/login")
}

// LoginPage shows the login form.
func (h *Handler) LoginPage(c *gin.Context) {
	h.render(c, http.StatusOK, "login.html", "Entrar", gin.H{"email": ""})
}

// HandleLogin authenticates the customer and starts a fresh session id
// that keeps the current cart.
func (h *Handler) HandleLogin(c *gin.Context) {
	var form models.LoginForm
	if err := c.ShouldBind(&form); err != nil {
		log.Printf("HandleLogin - bind error: %v", err)
	}

	customer, err := h.customers.Verify(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		if !errors.Is(err, services.ErrAuthentication) {
			log.Printf("HandleLogin - Error: %v", err)
		}
		h.customers.Audit(services.EventLoginFailed, "email="+form.Email, c.ClientIP())
		h.render(c, http.StatusUnauthorized, "login.html", "Entrar", gin.H{
			"email": form.Email,
			"error": services.ErrAuthentication.Error(),
		})
		return
	}

	s := currentSession(c)
	if err := h.sessions.Delete(c.Request.Context(), s.ID); err != nil {
		log.Printf("HandleLogin - Error dropping old session: %v", err)
	}
	s.ID = uuid.NewString()
	s.Login(customer)
	h.customers.Audit(services.EventLoginSuccess, fmt.Sprintf("customer=%d", customer.ID), c.ClientIP())
	h.flashRedirect(c, session.FlashSuccess, fmt.Sprintf("Bem-vindo(a), %s!", customer.Name), "/perfil")
}

// ProfilePage shows the logged in customer.
func (h *Handler) ProfilePage(c *gin.Context) {
	s := currentSession(c)
	customer, err := h.customers.Get(c.Request.Context(), s.CustomerID)
	if errors.Is(err, services.ErrCustomerNotFound) {
		s.Logout()
		h.flashRedirect(c, session.FlashError, "Login necessário.", "/login")
		return
	}
	if err != nil {
		h.serverError(c, "ProfilePage", err)
		return
	}

	orders, err := h.orders.ListOrdersByCustomer(c.Request.Context(), customer.ID)
	if err != nil {
		h.serverError(c, "ProfilePage", err)
		return
	}
	h.render(c, http.StatusOK, "profile.html", "Meu perfil", gin.H{"customer": customer, "orders": orders})
}

// Logout drops the session and starts an anonymous one.
func (h *Handler) Logout(c *gin.Context) {
	old := currentSession(c)
	if old.LoggedIn() {
		h.customers.Audit(services.EventLogout, fmt.Sprintf("customer=%d", old.CustomerID), c.ClientIP())
	}
	old.Logout()
	if err := h.sessions.Delete(c.Request.Context(), old.ID); err != nil {
		log.Printf("Logout - Error deleting session: %v", err)
	}

	c.Set(sessionKey, session.New())
	h.flashRedirect(c, session.FlashInfo, "Conta deslogada.", "/login")
}
