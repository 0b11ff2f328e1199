package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/slotbook/booking-api/internal/config"
	appointmentHandler "github.com/slotbook/booking-api/internal/handler/appointment"
	bookingHandler "github.com/slotbook/booking-api/internal/handler/booking"
	businessHandler "github.com/slotbook/booking-api/internal/handler/business"
	catalogHandler "github.com/slotbook/booking-api/internal/handler/catalog"
	changeRequestHandler "github.com/slotbook/booking-api/internal/handler/changerequest"
	healthHandler "github.com/slotbook/booking-api/internal/handler/health"
	masterHandler "github.com/slotbook/booking-api/internal/handler/master"
	"github.com/slotbook/booking-api/internal/middleware"
	"github.com/slotbook/booking-api/internal/repository/postgres"
	"github.com/slotbook/booking-api/internal/router"
	availabilityService "github.com/slotbook/booking-api/internal/service/availability"
	bookingService "github.com/slotbook/booking-api/internal/service/booking"
	businessService "github.com/slotbook/booking-api/internal/service/business"
	catalogService "github.com/slotbook/booking-api/internal/service/catalog"
	changeRequestService "github.com/slotbook/booking-api/internal/service/changerequest"
	eventService "github.com/slotbook/booking-api/internal/service/event"
	masterService "github.com/slotbook/booking-api/internal/service/master"
	"github.com/slotbook/booking-api/pkg/auth"
	"github.com/slotbook/booking-api/pkg/logger"
	"github.com/slotbook/booking-api/pkg/metrics"
	"github.com/slotbook/booking-api/pkg/security"
	"github.com/slotbook/booking-api/pkg/validator"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	zerolog.SetGlobalLevel(logger.ParseLevel(cfg.Logging.Level))

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := validator.RegisterCustomRules(); err != nil {
		log.Fatal().Err(err).Msg("failed to register validation rules")
	}

	// Repositories
	baseRepo := postgres.NewBaseRepository(db)
	businessRepo := postgres.NewBusinessRepository(baseRepo)
	masterRepo := postgres.NewMasterRepository(baseRepo)
	serviceRepo := postgres.NewServiceRepository(baseRepo)
	appointmentRepo := postgres.NewAppointmentRepository(baseRepo)
	changeRequestRepo := postgres.NewChangeRequestRepository(baseRepo)
	tokenRepo := postgres.NewTokenRepository(baseRepo)
	outboxRepo := postgres.NewOutboxRepository(baseRepo)

	// Services
	eventSvc := eventService.NewService(outboxRepo)
	businessSvc := businessService.NewService(businessRepo)
	masterSvc := masterService.NewService(masterRepo)
	catalogSvc := catalogService.NewService(serviceRepo)
	issuer := security.NewTokenIssuer(bcrypt.DefaultCost)
	availabilitySvc := availabilityService.NewService(masterRepo, appointmentRepo, serviceRepo, businessSvc)
	bookingSvc := bookingService.NewService(
		appointmentRepo, masterRepo, serviceRepo, tokenRepo, issuer, businessSvc, eventSvc)
	changeRequestSvc := changeRequestService.NewService(
		changeRequestRepo, appointmentRepo, tokenRepo, issuer, businessSvc, eventSvc)

	// Handlers
	appMetrics := metrics.NewMetrics("booking_api", "core")
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)

	r := router.NewRouter(
		authMiddleware,
		healthHandler.NewHandler(db),
		bookingHandler.NewHandler(bookingSvc, availabilitySvc, appMetrics),
		appointmentHandler.NewHandler(bookingSvc),
		changeRequestHandler.NewHandler(changeRequestSvc),
		masterHandler.NewHandler(masterSvc),
		businessHandler.NewHandler(businessSvc),
		catalogHandler.NewHandler(catalogSvc),
		router.Config{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimitRPS:     cfg.RateLimit.RequestsPerSecond,
			RateLimitBurst:   cfg.RateLimit.Burst,
			CORSConfig:       middleware.DefaultCORSConfig(),
			MetricsPrefix:    "booking_api_http",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
