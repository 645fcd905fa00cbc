// The bookings service owns reservations. Room metadata comes from the
// rooms service over HTTP behind a circuit breaker; the background
// sweeper retires bookings whose end time has passed.
package main

import (
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/ahmadyateem/meeting-room-reservation/internal/booking"
	"github.com/ahmadyateem/meeting-room-reservation/internal/breaker"
	"github.com/ahmadyateem/meeting-room-reservation/internal/cache"
	"github.com/ahmadyateem/meeting-room-reservation/internal/client"
	"github.com/ahmadyateem/meeting-room-reservation/internal/config"
	"github.com/ahmadyateem/meeting-room-reservation/internal/database"
	"github.com/ahmadyateem/meeting-room-reservation/internal/handler"
	"github.com/ahmadyateem/meeting-room-reservation/internal/logger"
	"github.com/ahmadyateem/meeting-room-reservation/internal/middleware"
	"github.com/ahmadyateem/meeting-room-reservation/internal/repository"
	"github.com/ahmadyateem/meeting-room-reservation/internal/router"
	"github.com/ahmadyateem/meeting-room-reservation/internal/scheduler"
	"github.com/ahmadyateem/meeting-room-reservation/internal/validator"
)

const serviceName = "bookings-service"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger.Init(serviceName)

	db, err := database.Open(cfg)
	if err != nil {
		logger.Error("database connection failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	cacheCfg := config.LoadCacheConfig()
	rlCfg := config.LoadRateLimitConfig()
	brCfg := config.LoadBreakerConfig()

	bookings := repository.NewBookingRepo(db)
	audits := repository.NewAuditRepo(db)
	auditor := middleware.NewAuditor(audits, serviceName)

	registry := breaker.NewRegistry(brCfg.FailureThreshold, brCfg.RecoveryTimeout)
	token := client.ServiceToken(cfg.JWTSecret)
	roomClient := client.NewRoomClient(cfg.RoomServiceURL, brCfg.CallTimeout, registry)
	roomClient.WithToken(token)
	userClient := client.NewUserClient(cfg.UserServiceURL, brCfg.CallTimeout, registry)
	userClient.WithToken(token)
	store := cache.New(cacheCfg.Client(rdb), cacheCfg.TTL)
	engine := booking.New(bookings, roomClient, store, handler.QueueNotifier{})

	sweeper := scheduler.NewSweeper(bookings)
	if err := sweeper.Start(); err != nil {
		logger.Error("sweeper start failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer sweeper.Stop()

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.NewRequest()
	e.HTTPErrorHandler = middleware.HTTPErrorHandler
	e.Use(middleware.RequestLogger())
	e.Use(middleware.RateLimit(rlCfg, rdb))

	router.RegisterHealth(e, serviceName, registry)
	router.RegisterBookings(e, handler.NewBookingHandler(engine, userClient, store), auditor, cfg.JWTSecret)

	logger.Info("listening", map[string]any{"port": cfg.Port, "env": cfg.Env})
	if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
		logger.Error("server stopped", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}
