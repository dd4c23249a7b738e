// File: bookline/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookline/config"
	"bookline/cron"
	"bookline/database"
	bookingRepo "bookline/database/repository/booking"
	historyRepo "bookline/database/repository/history"
	queueRepo "bookline/database/repository/queue"
	shopRepo "bookline/database/repository/shop"
	"bookline/handlers"
	"bookline/middleware"
	"bookline/routes"
	"bookline/services/notification"
	"bookline/services/queue"
	"bookline/services/scheduling"
	"bookline/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.InitHolds()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// repositories.
	shops := shopRepo.NewMongoShopRepo()
	bookings := bookingRepo.NewMongoBookingRepo()
	tickets := queueRepo.NewMongoTicketRepo()
	history := historyRepo.NewMongoHistoryRepo()

	// services.
	publisher := notification.NewRedisPublisher(utils.GetCacheClient())

	availability := &scheduling.AvailabilityEngine{
		Shops:    shops,
		Bookings: bookings,
		Cache:    utils.GetCacheClient(),
		CacheTTL: time.Duration(config.AppConfig.AvailabilityCacheTTLSeconds) * time.Second,
	}
	gate := scheduling.NewReservationGate(
		shops, bookings, availability, publisher,
		utils.GetHoldsClient(),
		time.Duration(config.AppConfig.PendingHoldMinutes)*time.Minute,
	)

	balancer := queue.NewBalancer()
	estimator := &queue.Estimator{
		History:        history,
		Shops:          shops,
		WindowSize:     config.AppConfig.SampleWindowSize,
		MinSamples:     config.AppConfig.MinSampleCount,
		DefaultService: time.Duration(config.AppConfig.DefaultServiceMinutes) * time.Minute,
		Factors:        queue.FactorCurveFromConfig(),
	}
	queueEngine := queue.NewEngine(tickets, history, shops, publisher, balancer, estimator)

	// Assemble the handler bundle and register routes.
	handlerBundle := &handlers.HandlerBundle{
		Availability: availability,
		Gate:         gate,
		Queue:        queueEngine,
	}
	routes.RegisterRoutes(router, handlerBundle)

	// Background sweeps and health monitoring.
	cron.InitSweepWorker(gate, queueEngine)
	utils.StartHealthMonitor(utils.GetCacheClient(), utils.GetHoldsClient(), database.MongoClient)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	go func() {
		logger.Sugar().Infof("Starting server on %s...", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Errorf("forced shutdown: %v", err)
	}
	logger.Info("server stopped")
}
