package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/orders-api/internal/middleware"
	"github.com/jwalitptl/orders-api/pkg/auth"
	"github.com/jwalitptl/orders-api/pkg/metrics"
)

type routesFunc func(*gin.RouterGroup)

func (f routesFunc) RegisterRoutes(rg *gin.RouterGroup) { f(rg) }

func setup(t *testing.T, jwt auth.JWTService) (*gin.Engine, *metrics.Metrics) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg, "test")

	cfg := RouterConfig{
		Mode:           gin.TestMode,
		RequestTimeout: time.Second,
		CORSConfig:     middleware.DefaultCORSConfig(),
		Metrics:        m,
		Gatherer:       reg,
		MetricsPath:    "/metrics",
	}
	if jwt != nil {
		cfg.Auth = middleware.NewAuthMiddleware(jwt)
	}

	health := routesFunc(func(rg *gin.RouterGroup) {
		rg.GET("/health/live", func(c *gin.Context) { c.Status(http.StatusOK) })
	})
	orders := routesFunc(func(rg *gin.RouterGroup) {
		rg.GET("/orders", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": []int{}}) })
	})

	r := NewRouter(cfg, health, orders)
	r.Setup()
	return r.Engine(), m
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoutesAndMetrics(t *testing.T) {
	r, m := setup(t, nil)

	w := get(r, "/api/v1/orders", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderXRequestID))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/orders", "200")))

	w = get(r, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_http_requests_total")
}

func TestAuthGuardsResourcesOnly(t *testing.T) {
	jwt := auth.NewJWTService("secret", "orders-api", time.Hour)
	token, err := jwt.GenerateAccessToken(1, "admin")
	require.NoError(t, err)

	r, _ := setup(t, jwt)

	assert.Equal(t, http.StatusOK, get(r, "/api/v1/health/live", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/v1/orders", "").Code)
	assert.Equal(t, http.StatusOK, get(r, "/api/v1/orders", token).Code)
}
