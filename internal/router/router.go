package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/roundbuy/notification-api/internal/handler"
	"github.com/roundbuy/notification-api/internal/handler/health"
	"github.com/roundbuy/notification-api/internal/handler/prometheus"
	"github.com/roundbuy/notification-api/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type RouterConfig struct {
	RateLimit      rate.Limit
	RateBurst      int
	CORSConfig     middleware.CORSConfig
	TimeoutSeconds int
}

type Router struct {
	engine      *gin.Engine
	auth        *middleware.AuthMiddleware
	authH       Handler
	deviceH     Handler
	heartbeatH  Handler
	userNotifH  Handler
	adminNotifH Handler
	healthH     *health.Handler
	prometheusH *prometheus.Handler
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	authH Handler,
	deviceH Handler,
	heartbeatH Handler,
	userNotifH Handler,
	adminNotifH Handler,
	healthH *health.Handler,
	prometheusH *prometheus.Handler,
	config RouterConfig,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	handler.RegisterBindings()

	engine := gin.New()

	r := &Router{
		engine:      engine,
		auth:        auth,
		authH:       authH,
		deviceH:     deviceH,
		heartbeatH:  heartbeatH,
		userNotifH:  userNotifH,
		adminNotifH: adminNotifH,
		healthH:     healthH,
		prometheusH: prometheusH,
	}

	timeout := time.Duration(config.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		prometheusH.Middleware(),
		middleware.Timeout(middleware.TimeoutConfig{Duration: timeout}),
	)

	engine.Use(middleware.CORS(config.CORSConfig))

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  config.RateLimit,
		Burst: config.RateBurst,
	})
	engine.Use(rateLimiter.RateLimit())

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.healthH.RegisterRoutes(api)
	api.GET("/metrics", r.prometheusH.Handler())

	// Public routes
	r.authH.RegisterRoutes(api)

	// Guest-friendly routes: claims are set when a bearer token is present
	guest := api.Group("")
	guest.Use(r.auth.OptionalAuthenticate())
	r.deviceH.RegisterRoutes(guest)
	r.heartbeatH.RegisterRoutes(guest)

	// Authenticated user routes
	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	r.userNotifH.RegisterRoutes(protected)

	// Admin routes
	admin := api.Group("/admin")
	admin.Use(r.auth.Authenticate(), r.auth.RequireAdmin())
	r.adminNotifH.RegisterRoutes(admin)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
