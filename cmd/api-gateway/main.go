package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/tutoring-api/api/swagger"
	"github.com/noah-isme/tutoring-api/internal/handler"
	"github.com/noah-isme/tutoring-api/internal/middleware"
	"github.com/noah-isme/tutoring-api/internal/models"
	"github.com/noah-isme/tutoring-api/internal/repository"
	"github.com/noah-isme/tutoring-api/internal/service"
	"github.com/noah-isme/tutoring-api/pkg/cache"
	"github.com/noah-isme/tutoring-api/pkg/config"
	"github.com/noah-isme/tutoring-api/pkg/database"
	"github.com/noah-isme/tutoring-api/pkg/export"
	"github.com/noah-isme/tutoring-api/pkg/jobs"
	"github.com/noah-isme/tutoring-api/pkg/logger"
	"github.com/noah-isme/tutoring-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/tutoring-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/tutoring-api/pkg/middleware/requestid"
	"github.com/noah-isme/tutoring-api/pkg/response"
	"github.com/noah-isme/tutoring-api/pkg/timezone"
)

// @title Tutoring API
// @version 1.0.0
// @description Tutor availability and booking across time zones
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	response.ExposeInternalErrors(cfg.Env == config.EnvDevelopment)

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, idempotency cache disabled", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()
	converter := timezone.NewConverter(timezone.SystemClock{}, timezone.NewIANADatabase(), cfg.TimeZones.CountryZones)
	metrics := service.NewMetricsService()

	accountRepo := repository.NewAccountRepository(db)
	personRepo := repository.NewPersonRepository(db)
	systemRepo := repository.NewLearningSystemRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	qualificationRepo := repository.NewQualificationRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	var idempotency *service.IdempotencyStore
	if redisClient != nil {
		idempotency = service.NewIdempotencyStore(repository.NewCacheRepository(redisClient, "tutoring"), metrics, cfg.Booking.IdempotencyTTL, logr)
	}

	var sender mailer.Sender = mailer.NoopSender{}
	if cfg.Mail.Enabled {
		sender = mailer.NewSMTPSender(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.From)
	}
	notifications := service.NewNotificationService(sender, metrics, logr, jobs.QueueConfig{
		Workers:    cfg.Mail.Workers,
		MaxRetries: cfg.Mail.MaxRetries,
		RetryDelay: cfg.Mail.RetryDelay,
	})
	notifications.Start(ctx)
	defer notifications.Stop()

	authSvc := service.NewAuthService(accountRepo, personRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	systemSvc := service.NewLearningSystemService(systemRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, systemRepo, validate, logr)
	qualificationSvc := service.NewQualificationService(qualificationRepo, subjectRepo, validate, logr)
	personSvc := service.NewPersonService(personRepo, qualificationRepo, converter, validate, logr)
	availabilitySvc := service.NewAvailabilityService(personRepo, availabilityRepo, converter, validate, logr)
	availabilityQuerySvc := service.NewAvailabilityQueryService(personRepo, qualificationRepo, bookingRepo, converter, validate, logr)
	bookingSvc := service.NewBookingService(service.BookingServiceParams{
		People:         personRepo,
		Qualifications: qualificationRepo,
		Bookings:       bookingRepo,
		Converter:      converter,
		Idempotency:    idempotency,
		Notifier:       notifications,
		Metrics:        metrics,
		Exporter:       export.NewRenderer(),
		Validator:      validate,
		Logger:         logr,
	})

	if err := authSvc.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		logr.Fatal("failed to seed admin account", zap.Error(err))
	}

	authHandler := handler.NewAuthHandler(authSvc)
	personHandler := handler.NewPersonHandler(personSvc)
	catalogHandler := handler.NewCatalogHandler(systemSvc, subjectSvc, qualificationSvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc, availabilityQuerySvc)
	bookingHandler := handler.NewBookingHandler(bookingSvc)
	metricsHandler := handler.NewMetricsHandler(metrics,
		handler.ReadinessCheck{Name: "database", Probe: db.PingContext},
		handler.ReadinessCheck{Name: "redis", Probe: func(ctx context.Context) error { return cache.Ping(ctx, redisClient) }},
	)

	limiter := middleware.NewRateLimiter(cfg.Booking.RateLimitRPS, cfg.Booking.RateLimitBurst)
	go limiter.RunSweeper(time.Minute, ctx.Done())

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics", "/health", "/ready"))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/people", personHandler.Register)

	secured := api.Group("")
	secured.Use(middleware.JWT(authSvc))

	admin := middleware.RequireRoles(models.RoleAdmin)
	adminOrSelf := middleware.AdminOrSelf()

	secured.GET("/auth/me", authHandler.Me)
	secured.GET("/people/:id", adminOrSelf, personHandler.Get)

	systems := secured.Group("/learning-systems")
	systems.GET("", catalogHandler.ListSystems)
	systems.POST("", admin, catalogHandler.CreateSystem)
	systems.GET("/:id", catalogHandler.GetSystem)
	systems.PUT("/:id", admin, catalogHandler.UpdateSystem)
	systems.DELETE("/:id", admin, catalogHandler.DeleteSystem)
	systems.GET("/:id/subjects", catalogHandler.ListSubjects)
	systems.POST("/:id/subjects", admin, catalogHandler.AddSubject)

	subjects := secured.Group("/subjects")
	subjects.PUT("/:id", admin, catalogHandler.UpdateSubject)
	subjects.DELETE("/:id", admin, catalogHandler.RemoveSubject)
	subjects.GET("/:id/qualifications", catalogHandler.ListQualifications)
	subjects.POST("/:id/qualifications", admin, catalogHandler.AddQualification)

	qualifications := secured.Group("/qualifications")
	qualifications.PUT("/:id", admin, catalogHandler.UpdateQualification)
	qualifications.DELETE("/:id", admin, catalogHandler.RemoveQualification)
	qualifications.GET("/:id/tutors", personHandler.ListTutorsByQualification)
	qualifications.GET("/:id/available-tutors", availabilityHandler.FindAvailableTutors)

	tutors := secured.Group("/tutors")
	tutors.GET("/:id", personHandler.GetTutor)
	tutors.PUT("/:id/qualifications", adminOrSelf, personHandler.SetTutorQualifications)
	tutors.PUT("/:id/availability", adminOrSelf, availabilityHandler.SetTutorAvailability)
	tutors.GET("/:id/availability", availabilityHandler.FindTutorAvailability)
	tutors.GET("/:id/bookings", adminOrSelf, bookingHandler.ListTutorBookings)
	tutors.GET("/:id/bookings/export", adminOrSelf, bookingHandler.ExportTutorBookings)

	students := secured.Group("/students")
	students.GET("/:id", adminOrSelf, personHandler.GetStudent)
	students.PUT("/:id/qualifications", adminOrSelf, personHandler.SetStudentQualifications)
	students.GET("/:id/bookings", adminOrSelf, bookingHandler.ListStudentBookings)

	secured.POST("/bookings",
		middleware.RequireRoles(models.RoleAdmin, models.RoleStudent),
		middleware.RateLimit(limiter),
		bookingHandler.Create,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
