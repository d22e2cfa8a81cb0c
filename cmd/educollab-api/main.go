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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	_ "github.com/EduCollab-AI/EduCollab-Backend/api/swagger"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/handler"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/repository"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/service"
	"github.com/EduCollab-AI/EduCollab-Backend/pkg/cache"
	"github.com/EduCollab-AI/EduCollab-Backend/pkg/config"
	"github.com/EduCollab-AI/EduCollab-Backend/pkg/database"
	"github.com/EduCollab-AI/EduCollab-Backend/pkg/export"
	"github.com/EduCollab-AI/EduCollab-Backend/pkg/logger"
)

// @title EduCollab API
// @version 1.0.0
// @description Class schedule projection, payment materialization and student summaries.
// @BasePath /api/v1
// @schemes http https
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

	decimal.MarshalJSONWithoutQuotes = true

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		migrator, err := database.NewMigrator(db, logr)
		if err != nil {
			logr.Fatal("failed to init migrator", zap.Error(err))
		}
		if err := migrator.Up(ctx); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	metrics := service.NewMetricsService()

	var redisClient *redis.Client
	var cacheRepo service.CacheRepository
	if cfg.Projection.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			defer redisClient.Close() //nolint:errcheck
			cacheRepo = repository.NewCacheRepository(redisClient)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Projection.CacheTTL, logr, cacheRepo != nil)

	students := repository.NewStudentRepository(db)
	enrollments := repository.NewEnrollmentRepository(db)
	courses := repository.NewCourseRepository(db)
	schedules := repository.NewScheduleRepository(db)
	exceptions := repository.NewScheduleExceptionRepository(db)
	paymentSchedules := repository.NewPaymentScheduleRepository(db)
	paymentEvents := repository.NewPaymentEventRepository(db)
	txManager := repository.NewTxManager(db)

	validate := validator.New()

	classSchedules := service.NewClassScheduleService(students, enrollments, courses, schedules, exceptions, cacheSvc, metrics,
		service.ProjectionConfig{
			DefaultWindowMonths: cfg.Projection.DefaultWindowMonths,
			FloorAllocation:     cfg.Projection.FloorAllocation,
			LegacyFallback:      cfg.Projection.LegacyRRFallback,
			CacheTTL:            cfg.Projection.CacheTTL,
		}, logr)
	payments := service.NewPaymentService(students, paymentSchedules, paymentEvents, txManager, cacheSvc, metrics,
		service.PaymentConfig{
			DefaultWindowMonths: cfg.Projection.DefaultWindowMonths,
			LegacyFallback:      cfg.Projection.LegacyRRFallback,
		}, logr)
	scheduleExceptions := service.NewScheduleExceptionService(schedules, exceptions, cacheSvc, validate, logr)

	var warmer *service.PaymentWarmer
	if cfg.Billing.WarmupEnabled {
		warmer = service.NewPaymentWarmer(payments, metrics, service.WarmupConfig{
			Workers:      cfg.Billing.WarmupWorkers,
			MaxRetries:   cfg.Billing.WarmupRetries,
			RetryDelay:   cfg.Billing.WarmupDelay,
			WindowMonths: cfg.Projection.DefaultWindowMonths,
		}, logr)
		warmer.Start(ctx)
		defer warmer.Stop()
	}
	billingRules := service.NewBillingRuleService(students, courses, paymentSchedules, warmer, cfg.Projection.LegacyRRFallback, validate, logr)

	summaries := service.NewSummaryService(students, enrollments, courses, schedules, paymentEvents, classSchedules, cacheSvc, metrics,
		service.SummaryConfig{
			FloorAllocation: cfg.Projection.FloorAllocation,
			LegacyItemJoin:  cfg.Billing.LegacyItemJoin,
			CacheTTL:        cfg.Summary.CacheTTL,
		}, logr)
	exports := service.NewExportService(summaries, export.NewCSVExporter(), export.NewPDFExporter(), logr)

	var authSvc *service.AuthService
	if cfg.JWT.Enabled {
		authSvc = service.NewAuthService(service.AuthConfig{
			Secret: cfg.JWT.Secret,
			Issuer: cfg.JWT.Issuer,
			Expiry: cfg.JWT.Expiration,
		})
	}

	router := handler.NewRouter(handler.RouterDeps{
		Logger:             logr,
		APIPrefix:          cfg.APIPrefix,
		AllowedOrigins:     cfg.CORS.AllowedOrigins,
		Auth:               authSvc,
		Metrics:            metrics,
		Docs:               cfg.Env != config.EnvProduction,
		ClassSchedules:     handler.NewClassScheduleHandler(classSchedules),
		Payments:           handler.NewPaymentHandler(payments),
		ScheduleExceptions: handler.NewScheduleExceptionHandler(scheduleExceptions),
		Summary:            handler.NewSummaryHandler(summaries, exports),
		BillingRules:       handler.NewBillingRuleHandler(billingRules),
		Observability:      handler.NewMetricsHandler(metrics, readinessChecks(db, redisClient)),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
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

func readinessChecks(db *sqlx.DB, client *redis.Client) map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{
		"database": db.PingContext,
	}
	if client != nil {
		checks["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
	}
	return checks
}
