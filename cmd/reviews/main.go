// The reviews service owns room reviews, voting and moderation.
package main

import (
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/ahmadyateem/meeting-room-reservation/internal/cache"
	"github.com/ahmadyateem/meeting-room-reservation/internal/config"
	"github.com/ahmadyateem/meeting-room-reservation/internal/database"
	"github.com/ahmadyateem/meeting-room-reservation/internal/handler"
	"github.com/ahmadyateem/meeting-room-reservation/internal/logger"
	"github.com/ahmadyateem/meeting-room-reservation/internal/middleware"
	"github.com/ahmadyateem/meeting-room-reservation/internal/repository"
	"github.com/ahmadyateem/meeting-room-reservation/internal/router"
	"github.com/ahmadyateem/meeting-room-reservation/internal/validator"
)

const serviceName = "reviews-service"

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

	reviews := repository.NewReviewRepo(db)
	bookings := repository.NewBookingRepo(db)
	audits := repository.NewAuditRepo(db)
	auditor := middleware.NewAuditor(audits, serviceName)
	store := cache.New(cacheCfg.Client(rdb), cacheCfg.TTL)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.NewRequest()
	e.HTTPErrorHandler = middleware.HTTPErrorHandler
	e.Use(middleware.RequestLogger())
	e.Use(middleware.RateLimit(rlCfg, rdb))

	router.RegisterHealth(e, serviceName, nil)
	router.RegisterReviews(e, handler.NewReviewHandler(reviews, bookings, store), auditor, cfg.JWTSecret)

	logger.Info("listening", map[string]any{"port": cfg.Port, "env": cfg.Env})
	if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
		logger.Error("server stopped", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}
