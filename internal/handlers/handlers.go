package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"lojaonline/internal/database"
	"lojaonline/internal/metrics"
	"lojaonline/internal/models"
	"lojaonline/internal/services"
	"lojaonline/internal/session"

	"github.com/gin-gonic/gin"
)

// OrderReader is the read side of the order store.
type OrderReader interface {
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID int64) ([]models.Order, error)
	Ping(ctx context.Context) error
}

// Deps groups everything the HTTP layer needs.
type Deps struct {
	Catalog      *services.CatalogService
	Carts        *services.CartService
	Customers    *services.CustomerService
	Checkout     *services.CheckoutService
	Orders       OrderReader
	Sessions     session.Store
	Metrics      *metrics.ServerMetrics
	SessionTTL   time.Duration
	SecureCookie bool
}

// Handler serves the storefront pages.
type Handler struct {
	catalog   *services.CatalogService
	carts     *services.CartService
	customers *services.CustomerService
	checkout  *services.CheckoutService
	orders    OrderReader
	sessions  session.Store
	metrics   *metrics.ServerMetrics

	sessionTTL   time.Duration
	secureCookie bool
}

func NewHandler(d Deps) *Handler {
	if d.Metrics == nil {
		d.Metrics = metrics.NewServerMetrics("web")
	}
	if d.SessionTTL <= 0 {
		d.SessionTTL = 24 * time.Hour
	}
	return &Handler{
		catalog:      d.Catalog,
		carts:        d.Carts,
		customers:    d.Customers,
		checkout:     d.Checkout,
		orders:       d.Orders,
		sessions:     d.Sessions,
		metrics:      d.Metrics,
		sessionTTL:   d.SessionTTL,
		secureCookie: d.SecureCookie,
	}
}

// NewRouter builds the gin engine with every storefront route.
func NewRouter(h *Handler, renderer *HTMLRenderer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(h.metrics.Middleware())
	r.SetTrustedProxies([]string{"127.0.0.1", "::1"})
	r.HTMLRender = renderer

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	web := r.Group("/", h.SessionMiddleware())
	{
		web.GET("/", h.HomePage)
		web.GET("/produtos", h.ProductsPage)
		web.GET("/produto/:id", h.ProductPage)

		web.GET("/registrar", h.RegisterPage)
		web.POST("/registrar", h.HandleRegister)
		web.GET("/login", h.LoginPage)
		web.POST("/login", h.HandleLogin)
		web.GET("/logout", h.Logout)

		auth := web.Group("/", h.RequireLogin())
		{
			auth.GET("/perfil", h.ProfilePage)

			auth.GET("/carrinho", h.CartPage)
			auth.POST("/carrinho/adicionar/:id", h.AddToCart)
			auth.GET("/carrinho/remover/:id", h.RemoveFromCart)
			auth.POST("/carrinho/atualizar/:id", h.UpdateCartItem)

			auth.GET("/checkout", h.CheckoutPage)
			auth.POST("/checkout", h.HandleCheckout)

			auth.GET("/pedidos", h.OrdersPage)
			auth.GET("/pedido/:id", h.OrderPage)
		}
	}
	return r
}

// page adds the layout fields every template expects.
func (h *Handler) page(c *gin.Context, title string, data gin.H) gin.H {
	if data == nil {
		data = gin.H{}
	}
	s := currentSession(c)
	data["title"] = title
	data["loggedIn"] = s.LoggedIn()
	data["customerName"] = s.CustomerName
	data["cartCount"] = s.Cart.Count()
	data["flash"] = s.PopFlash()
	return data
}

// render saves the session and writes a page.
func (h *Handler) render(c *gin.Context, code int, name, title string, data gin.H) {
	data = h.page(c, title, data)
	h.saveSession(c)
	c.HTML(code, name, data)
}

// redirect saves the session before sending the client elsewhere.
func (h *Handler) redirect(c *gin.Context, location string) {
	h.saveSession(c)
	c.Redirect(http.StatusSeeOther, location)
}

func (h *Handler) flashRedirect(c *gin.Context, kind, message, location string) {
	currentSession(c).SetFlash(kind, message)
	h.redirect(c, location)
}

func (h *Handler) serverError(c *gin.Context, where string, err error) {
	log.Printf("Handler.%s - Error: %v", where, err)
	h.render(c, http.StatusInternalServerError, "error.html", "Erro", gin.H{
		"message": "Ocorreu um erro inesperado. Tente novamente em instantes.",
	})
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// HomePage lists the featured products.
func (h *Handler) HomePage(c *gin.Context) {
	products, err := h.catalog.Featured(c.Request.Context())
	if err != nil {
		h.serverError(c, "HomePage", err)
		return
	}
	h.render(c, http.StatusOK, "home.html", "Início", gin.H{"products": products})
}

// ProductsPage lists the whole catalog, sold out products included.
func (h *Handler) ProductsPage(c *gin.Context) {
	products, err := h.catalog.All(c.Request.Context())
	if err != nil {
		h.serverError(c, "ProductsPage", err)
		return
	}
	h.render(c, http.StatusOK, "products.html", "Produtos", gin.H{"products": products})
}

// ProductPage shows one product. Unknown ids go back home with a notice.
func (h *Handler) ProductPage(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		h.flashRedirect(c, session.FlashError, services.ErrProductNotFound.Error(), "/")
		return
	}
	p, found, err := h.catalog.Product(c.Request.Context(), id)
	if err != nil {
		h.serverError(c, "ProductPage", err)
		return
	}
	if !found {
		h.flashRedirect(c, session.FlashError, services.ErrProductNotFound.Error(), "/")
		return
	}
	h.render(c, http.StatusOK, "product.html", p.Name, gin.H{"product": p})
}

// Health reports whether the database answers.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.orders.Ping(ctx); err != nil {
		log.Printf("Handler.Health - database ping failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

var _ OrderReader = (*database.Database)(nil)
