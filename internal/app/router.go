package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"carpool/internal/handler"
	"carpool/internal/middleware"
	"carpool/internal/redis"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler      *handler.RideHandler
	BookingHandler   *handler.BookingHandler
	SearchHandler    *handler.SearchHandler
	ChatHandler      *handler.ChatHandler
	IdempotencyStore redis.IdempotencyStoreInterface
	JWTSecret        string
	Logger           *zap.Logger
	NewRelicApp      *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.Metrics())

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes. Every route acts on behalf of the token subject.
	v1 := router.Group("/v1")
	v1.Use(middleware.JWTAuth(deps.JWTSecret))
	v1.Use(middleware.TransactionAttributes())
	v1.Use(middleware.IdempotencyMiddleware(deps.IdempotencyStore, deps.Logger))
	{
		rides := v1.Group("/rides")
		{
			rides.GET("/search", deps.SearchHandler.Search)
			rides.POST("", deps.RideHandler.CreateRide)
			rides.GET("/:id", deps.RideHandler.GetRide)
			rides.PATCH("/:id/seats", deps.RideHandler.ResizeRide)
			rides.POST("/:id/cancel", deps.RideHandler.CancelRide)

			rides.POST("/:id/bookings", deps.BookingHandler.Book)
			rides.DELETE("/:id/bookings/me", deps.BookingHandler.Leave)
			rides.DELETE("/:id/participants/:userId", deps.BookingHandler.RemoveParticipant)

			rides.GET("/:id/chat", deps.ChatHandler.GetRoom)
		}

		me := v1.Group("/me")
		{
			me.GET("/bookings", deps.BookingHandler.ListMine)
			me.GET("/history", deps.RideHandler.ListHistory)
		}
	}

	return router
}
