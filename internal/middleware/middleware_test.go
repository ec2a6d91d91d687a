package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/orders-api/pkg/auth"
)

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.POST("/echo", func(c *gin.Context) {
		if _, err := c.GetRawData(); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})
	return r
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	r := newEngine(RequestID(), Logger())

	w := serve(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Len(t, w.Header().Get(HeaderXRequestID), 36)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderXRequestID, "abc")
	w = serve(r, req)
	assert.Equal(t, "abc", w.Header().Get(HeaderXRequestID))
}

func TestRecovery(t *testing.T) {
	r := newEngine(RequestID(), Recovery())
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error_type":"OTHER","errors":"Problem në server","message":"Problem në server"}`, w.Body.String())
}

func TestCORS(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"https://app.example.com"}
	r := newEngine(CORS(cfg))

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := serve(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	r := newEngine(NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 2}).RateLimit())

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/ping", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/ping", nil)).Code)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), msgRateLimited)
}

func TestSizeLimit(t *testing.T) {
	r := newEngine(SizeLimit(SizeLimitConfig{MaxBodySize: 8, MaxHeaderSize: 64}))

	w := serve(r, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("tiny")))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("far too large")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "Request body exceeds 8 bytes.")

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Padding", strings.Repeat("x", 100))
	assert.Equal(t, http.StatusRequestHeaderFieldsTooLarge, serve(r, req).Code)
}

func TestSecurityHeaders(t *testing.T) {
	w := serve(newEngine(SecurityHeaders(DefaultSecurityConfig())), httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestTimeoutSetsDeadline(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Timeout(time.Minute))

	var hasDeadline bool
	r.GET("/ping", func(c *gin.Context) {
		_, hasDeadline = c.Request.Context().Deadline()
		c.Status(http.StatusOK)
	})

	serve(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.True(t, hasDeadline)
}

func TestAuthenticate(t *testing.T) {
	svc := auth.NewJWTService("secret", "orders-api", time.Hour)
	token, err := svc.GenerateAccessToken(3, "ada")
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewAuthMiddleware(svc).Authenticate())
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.GetInt64(ContextUserID), "username": c.GetString(ContextUsername)})
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer abc", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(r, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.JSONEq(t, `{"id":3,"username":"ada"}`, w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), `"error_type":"OTHER"`)
			}
		})
	}
}
