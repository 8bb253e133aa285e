package controller

import (
	"time"

	"github.com/Freeeeeet/slotswap/internal/controller/handlers"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RouterConfig struct {
	JWTSecret      string
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter собирает gin engine со всеми маршрутами
func NewRouter(h *handlers.Handlers, cfg RouterConfig, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), handlers.RequestLogger(logger))

	router.GET("/healthz", h.Health)

	api := router.Group("/api")
	api.Use(
		handlers.Authenticate(cfg.JWTSecret),
		handlers.RequestTimeout(cfg.RequestTimeout),
	)
	if cfg.RateLimitRPS > 0 {
		api.Use(handlers.RateLimit(handlers.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)))
	}
	{
		events := api.Group("/events")
		{
			events.GET("", h.ListEvents)
			events.POST("", h.CreateEvent)
			events.GET("/:id", h.GetEvent)
			events.PUT("/:id", h.UpdateEvent)
			events.DELETE("/:id", h.DeleteEvent)
		}

		api.GET("/calendar/week", h.WeekCalendar)
		api.GET("/swappable-slots", h.ListSwappableSlots)
		api.POST("/swap-request", h.CreateSwapRequest)
		api.POST("/swap-response/:requestId", h.RespondToSwapRequest)
		api.GET("/swap-requests", h.ListSwapRequests)
		api.GET("/swap-requests/:id", h.GetSwapRequest)
	}

	return router
}
