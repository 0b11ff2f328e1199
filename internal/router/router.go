package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/slotbook/booking-api/internal/handler/appointment"
	"github.com/slotbook/booking-api/internal/handler/booking"
	"github.com/slotbook/booking-api/internal/handler/business"
	"github.com/slotbook/booking-api/internal/handler/catalog"
	"github.com/slotbook/booking-api/internal/handler/changerequest"
	"github.com/slotbook/booking-api/internal/handler/health"
	"github.com/slotbook/booking-api/internal/handler/master"
	"github.com/slotbook/booking-api/internal/middleware"
)

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec
}

type Config struct {
	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int
	CORSConfig       middleware.CORSConfig
	MetricsPrefix    string
}

type Router struct {
	engine         *gin.Engine
	auth           *middleware.AuthMiddleware
	healthH        *health.Handler
	bookingH       *booking.Handler
	appointmentH   *appointment.Handler
	changeRequestH *changerequest.Handler
	masterH        *master.Handler
	businessH      *business.Handler
	catalogH       *catalog.Handler
	metrics        *routerMetrics
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	healthH *health.Handler,
	bookingH *booking.Handler,
	appointmentH *appointment.Handler,
	changeRequestH *changerequest.Handler,
	masterH *master.Handler,
	businessH *business.Handler,
	catalogH *catalog.Handler,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	r := &Router{
		engine:         engine,
		auth:           auth,
		healthH:        healthH,
		bookingH:       bookingH,
		appointmentH:   appointmentH,
		changeRequestH: changeRequestH,
		masterH:        masterH,
		businessH:      businessH,
		catalogH:       catalogH,
		metrics:        initRouterMetrics(config.MetricsPrefix),
	}

	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		r.metricsMiddleware(),
		middleware.Timeout(middleware.DefaultTimeoutConfig()),
		middleware.CORS(config.CORSConfig),
	)

	if config.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(config.RateLimitRPS, config.RateLimitBurst)
		engine.Use(rateLimiter.RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.healthH.RegisterRoutes(api)

	// Client-facing surface: no auth beyond possession of a manage token.
	public := api.Group("/public")
	r.bookingH.RegisterPublicRoutes(public)
	r.changeRequestH.RegisterPublicRoutes(public)

	// Staff surface: everything below is scoped to the JWT's business.
	staff := api.Group("")
	staff.Use(r.auth.Authenticate())
	r.appointmentH.RegisterRoutes(staff)
	r.changeRequestH.RegisterStaffRoutes(staff)
	r.masterH.RegisterRoutes(staff)
	r.businessH.RegisterRoutes(staff)
	r.catalogH.RegisterRoutes(staff)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func initRouterMetrics(prefix string) *routerMetrics {
	m := &routerMetrics{
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		errorTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_errors_total",
				Help: "Total number of HTTP errors",
			},
			[]string{"method", "path", "type"},
		),
	}
	prometheus.MustRegister(m.requestDuration, m.requestTotal, m.errorTotal)
	return m
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()

		c.Next()

		status := fmt.Sprintf("%d", c.Writer.Status())
		duration := time.Since(start).Seconds()

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()

		if c.Writer.Status() >= 400 {
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "http").Inc()
		}
	}
}
