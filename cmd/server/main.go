package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/ucampus/lab-reservation/internal/config"
	"github.com/ucampus/lab-reservation/internal/database"
	"github.com/ucampus/lab-reservation/internal/handler"
	"github.com/ucampus/lab-reservation/internal/middleware"
	"github.com/ucampus/lab-reservation/internal/queue"
	"github.com/ucampus/lab-reservation/internal/repository"
	"github.com/ucampus/lab-reservation/internal/router"
	"github.com/ucampus/lab-reservation/internal/service"
)

func main() {
	// .env is optional; real deployments set variables directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer db.Close()

	// Repositories.
	labs := repository.NewLabRepo(db)
	calendar := repository.NewCalendarRepo(db)
	resources := repository.NewResourceRepo(db)
	requests := repository.NewRequestRepo(db, calendar)
	trainings := repository.NewTrainingRepo(db)
	history := repository.NewHistoryRepo(db)
	notifications := repository.NewNotificationRepo(db)
	messages := repository.NewMessageRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	// Services.
	availability := service.NewAvailabilityChecker(calendar)
	requirements := service.NewRequirementsChecker(trainings)
	admission := service.NewAdmissionService(labs, resources, requests,
		availability, requirements, history, notifications, queue.PublishRequestStatus)
	review := service.NewReviewService(requests, labs, history, notifications, queue.PublishRequestStatus)

	// Handlers.
	authHandler := handler.NewAuthHandler(cfg, users, tokens)
	labHandler := handler.NewLabHandler(labs, resources, calendar, trainings, history)
	resourceHandler := handler.NewResourceHandler(labs, resources, history)
	requestHandler := handler.NewRequestHandler(admission, review, requests, messages)
	reviewHandler := handler.NewReviewHandler(review)
	historyHandler := handler.NewHistoryHandler(labs, history)
	userHandler := handler.NewUserHandler(users)
	notificationHandler := handler.NewNotificationHandler(notifications)

	e := echo.New()

	// Redis-backed rate limiting and response caching; both become
	// pass-throughs when Redis is unreachable.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and caching disabled")
	}
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	e.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterPublic(e, labHandler)
	router.RegisterRequests(e, requestHandler, notificationHandler, cfg.JWTSecret)
	router.RegisterReviewer(e, reviewHandler, cfg.JWTSecret)
	router.RegisterAdmin(e, labHandler, resourceHandler, userHandler, historyHandler, cfg.JWTSecret)

	// Background consumer mirrors request status events to logs/requests.log.
	go func() {
		if err := queue.StartRequestConsumer(); err != nil {
			log.Printf("request consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
