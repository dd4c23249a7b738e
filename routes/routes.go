package routes

import (
	"net/http"
	"time"

	"bookline/handlers"
	"bookline/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterSchedulingRoutes sets up availability, slot, and booking endpoints.
func RegisterSchedulingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api")
	{
		api.GET("/availability", hb.AvailabilityHandler)
		api.GET("/slots", hb.SlotsHandler)
		api.POST("/bookings/reserve", hb.ReserveHandler)
		api.POST("/bookings/:id/confirm", hb.ConfirmBookingHandler)
		api.DELETE("/bookings/:id", hb.CancelBookingHandler)
	}
}

// RegisterQueueRoutes sets up the live queue endpoints.
func RegisterQueueRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	shop := r.Group("/api/shops/:shopId")
	{
		shop.POST("/queue", hb.EnqueueHandler)
		shop.POST("/queue/check-in", hb.CheckInHandler)
		shop.GET("/queue", hb.QueueSnapshotHandler)
		shop.GET("/queue/estimate", hb.EstimateHandler)
		shop.POST("/queue/tickets/:ticketId/:action", hb.TicketTransitionHandler)
		shop.POST("/queue/reset", hb.QueueResetHandler)
		shop.POST("/presence", hb.PresenceHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, utils.GetHealthStatus())
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	// Setup global middleware (e.g., CORS) here.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterSchedulingRoutes(r, hb)
	RegisterQueueRoutes(r, hb)
	RegisterHealthRoute(r)
}
