package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewServerMetrics("test")

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/produto/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/produto/1", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nada", nil))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Requests.WithLabelValues("/produto/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("unmatched", "404")))
}

func TestObserveCheckoutAndHandler(t *testing.T) {
	m := NewServerMetrics("test")
	m.ObserveCheckout(OutcomeSuccess)
	m.ObserveCheckout(OutcomeInsufficient)
	m.ObserveCheckout(OutcomeSuccess)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Checkouts.WithLabelValues(OutcomeSuccess)))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "loja_test_checkouts_total")
}

func TestIndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewServerMetrics("a")
		NewServerMetrics("a")
	})
}
