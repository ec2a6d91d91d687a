package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	promhandler "github.com/jwalitptl/orders-api/internal/handler/prometheus"
	"github.com/jwalitptl/orders-api/internal/middleware"
	"github.com/jwalitptl/orders-api/pkg/metrics"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type RouterConfig struct {
	Mode           string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	CORSConfig     middleware.CORSConfig

	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int

	// Auth guards the resource routes when set. Health and metrics stay public.
	Auth *middleware.AuthMiddleware

	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	MetricsPath string
}

type Router struct {
	engine  *gin.Engine
	config  RouterConfig
	health  Handler
	handler []Handler
}

func NewRouter(config RouterConfig, health Handler, handlers ...Handler) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	engine := gin.New()

	r := &Router{
		engine:  engine,
		config:  config,
		health:  health,
		handler: handlers,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		r.metricsMiddleware(),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.CORS(config.CORSConfig),
		middleware.Timeout(config.RequestTimeout),
	)

	if config.RateLimitEnabled {
		engine.Use(middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		}).RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	if r.config.Gatherer != nil && r.config.MetricsPath != "" {
		r.engine.GET(r.config.MetricsPath, promhandler.New(r.config.Gatherer).Metrics())
	}

	api := r.engine.Group("/api/v1")
	if r.health != nil {
		r.health.RegisterRoutes(api)
	}

	limits := middleware.DefaultSizeLimitConfig()
	if r.config.MaxBodyBytes > 0 {
		limits.MaxBodySize = r.config.MaxBodyBytes
	}
	resources := api.Group("", middleware.SizeLimit(limits))
	if r.config.Auth != nil {
		resources.Use(r.config.Auth.Authenticate())
	}
	for _, h := range r.handler {
		h.RegisterRoutes(resources)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r.config.Metrics == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		r.config.Metrics.RequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		r.config.Metrics.RequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
