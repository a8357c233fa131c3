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

	_ "github.com/noah-isme/sma-admission-api/api/swagger"
	"github.com/noah-isme/sma-admission-api/internal/handler"
	"github.com/noah-isme/sma-admission-api/internal/middleware"
	"github.com/noah-isme/sma-admission-api/internal/models"
	"github.com/noah-isme/sma-admission-api/internal/repository"
	"github.com/noah-isme/sma-admission-api/internal/service"
	"github.com/noah-isme/sma-admission-api/pkg/cache"
	"github.com/noah-isme/sma-admission-api/pkg/config"
	"github.com/noah-isme/sma-admission-api/pkg/database"
	"github.com/noah-isme/sma-admission-api/pkg/jobs"
	"github.com/noah-isme/sma-admission-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-admission-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-admission-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-admission-api/pkg/storage"
)

// @title SMA Admission API
// @version 1.0.0
// @description Admission letter verification, registration, and review service
// @BasePath /
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
	sugar := logr.Sugar()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		sugar.Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		sugar.Warnw("redis unavailable, status cache disabled", "error", err)
		redisClient = nil
	}

	exportStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		sugar.Fatalw("failed to init export storage", "error", err)
	}
	exportSigner := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	validate := validator.New()

	letterRepo := repository.NewLetterRepository(db)
	admissionRepo := repository.NewAdmissionRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsService := service.NewMetricsService()
	admissionService := service.NewAdmissionService(letterRepo, admissionRepo, cacheRepo, cfg.Admission.StatusCacheTTL, validate, logr)
	letterService := service.NewLetterService(letterRepo, exportStorage, exportSigner, cfg.Admission.MaxBulkLetters, validate, logr)
	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "sma-admission-api",
	})

	var provisioningService *service.ProvisioningService
	if cfg.Provisioning.Enabled {
		provisioningService = service.NewProvisioningService(userRepo, jobs.QueueConfig{
			Workers:    cfg.Provisioning.WorkerConcurrency,
			MaxRetries: cfg.Provisioning.WorkerRetries,
			RetryDelay: 5 * time.Second,
			Logger:     logr,
		}, logr)
		admissionService.OnApproved(func(ctx context.Context, admission *models.StudentAdmission) {
			provisioningService.EnqueueAdmission(ctx, admission)
		})
	}

	admissionHandler := handler.NewAdmissionHandler(admissionService, metricsService)
	letterHandler := handler.NewLetterHandler(letterService, exportStorage, exportSigner)
	authHandler := handler.NewAuthHandler(authService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Public admission workflow. These endpoints speak the legacy wire
	// contract consumed by the registration wizard.
	admission := r.Group("/admission")
	{
		admission.POST("/verify", admissionHandler.Verify)
		admission.POST("/register", admissionHandler.Register)
		admission.GET("/status/:admission_number", admissionHandler.Status)
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)
			auth.GET("/me", middleware.JWT(authService), authHandler.Me)
		}

		staff := api.Group("")
		staff.Use(middleware.JWT(authService))
		staff.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleRegistrar))
		{
			staff.GET("/admission-letters", letterHandler.List)
			staff.POST("/admission-letters", letterHandler.Create)
			staff.POST("/admission-letters/bulk", letterHandler.BulkCreate)
			staff.GET("/admission-letters/export", letterHandler.Export)

			staff.GET("/admissions", admissionHandler.List)
			staff.GET("/admissions/:id", admissionHandler.Get)
			staff.PATCH("/admissions/:id/review", admissionHandler.Review)
		}

		// signed token is the auth here, no JWT required
		api.GET("/exports/download", letterHandler.Download)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if provisioningService != nil {
		provisioningService.Start(rootCtx)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sugar.Infow("server starting", "addr", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	sugar.Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("server shutdown failed", "error", err)
	}
	if provisioningService != nil {
		provisioningService.Stop()
	}
	if err := cacheRepo.Close(); err != nil {
		sugar.Errorw("redis close failed", "error", err)
	}
	sugar.Infow("server stopped")
}
