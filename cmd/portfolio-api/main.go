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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/portafolio-docente-api/api/swagger"
	"github.com/noah-isme/portafolio-docente-api/internal/handler"
	internalmiddleware "github.com/noah-isme/portafolio-docente-api/internal/middleware"
	"github.com/noah-isme/portafolio-docente-api/internal/repository"
	"github.com/noah-isme/portafolio-docente-api/internal/service"
	"github.com/noah-isme/portafolio-docente-api/pkg/cache"
	"github.com/noah-isme/portafolio-docente-api/pkg/config"
	"github.com/noah-isme/portafolio-docente-api/pkg/database"
	"github.com/noah-isme/portafolio-docente-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/portafolio-docente-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/portafolio-docente-api/pkg/middleware/requestid"
	"github.com/noah-isme/portafolio-docente-api/pkg/response"
	"github.com/noah-isme/portafolio-docente-api/pkg/scheduler"
	"github.com/noah-isme/portafolio-docente-api/pkg/storage"
	"github.com/noah-isme/portafolio-docente-api/pkg/validation"
)

// @title Portfolio Docente API
// @version 1.0.0
// @description Academic portfolio management: submission, evaluation and document storage
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const maxMultipartMemory = 8 << 20

type tokenDenylist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, logr); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
	}

	blobs, err := newBlobStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	metrics := service.NewMetricsService()
	validate := validation.New()

	userRepo := repository.NewUserRepository(db)
	semesterRepo := repository.NewSemesterRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	portfolioRepo := repository.NewPortfolioRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	var (
		cacheStore service.CacheRepository
		denylist   tokenDenylist
	)
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient)
		cacheStore = cacheRepo
		denylist = cacheRepo
	} else {
		logr.Warn("redis disabled: report cache and token revocation are inactive")
	}
	cacheSvc := service.NewCacheService(cacheStore, metrics, cfg.Reports.CacheTTL, logr, cacheStore != nil)

	auditSvc := service.NewAuditService(repository.NewAuditRepository(db), metrics, logr, service.AuditConfig{
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
		MaxRetries: cfg.Audit.MaxRetries,
	})
	auditSvc.Start(ctx)

	authSvc := service.NewAuthService(userRepo, denylist, auditSvc, validate, logr, service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
		Issuer: cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, auditSvc, validate, logr, cfg.Pagination.DefaultLimit)
	semesterSvc := service.NewSemesterService(semesterRepo, auditSvc, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, semesterRepo, userRepo, portfolioRepo, auditSvc, validate, logr, cfg.Pagination.DefaultLimit)
	portfolioSvc := service.NewPortfolioService(service.PortfolioDeps{
		Portfolios:   portfolioRepo,
		Courses:      courseRepo,
		Documents:    documentRepo,
		Comments:     commentRepo,
		Users:        userRepo,
		Blobs:        blobs,
		Cache:        cacheSvc,
		Audit:        auditSvc,
		Metrics:      metrics,
		Validator:    validate,
		Logger:       logr,
		DefaultLimit: cfg.Pagination.DefaultLimit,
	})
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)
	documentSvc := service.NewDocumentService(documentRepo, portfolioRepo, blobs, signer, auditSvc, metrics, validate, logr, service.DocumentConfig{
		MaxFileSize:  cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Uploads.AllowedMIMEs,
		SharedPath:   cfg.APIPrefix + "/files/shared/",
	})
	reportSvc := service.NewReportService(portfolioRepo, cacheSvc, cfg.Reports.CacheTTL, logr)

	if cfg.Seed.AdminEmail != "" && cfg.Seed.AdminPassword != "" {
		if err := userSvc.EnsureAdmin(ctx, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword); err != nil {
			return fmt.Errorf("seed administrator: %w", err)
		}
	}

	jobs := scheduler.New(logr, 10*time.Minute)
	if cfg.Janitor.Enabled {
		janitor := service.NewJanitorService(documentRepo, blobs, metrics, logr, cfg.Janitor.MinAge)
		if err := jobs.Register("orphan_blob_janitor", cfg.Janitor.Schedule, janitor.Run); err != nil {
			return fmt.Errorf("schedule janitor: %w", err)
		}
	}
	jobs.Start()

	checks := map[string]handler.Pinger{
		"database": handler.PingFunc(func(ctx context.Context) error { return database.Ping(ctx, db) }),
	}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return cache.Ping(ctx, redisClient) })
	}
	health := handler.NewHealthHandler(cfg.Env, metrics, checks)

	router := newRouter(cfg, logr, metrics, health)
	handler.Routes{
		Auth:          handler.NewAuthHandler(authSvc, userSvc),
		Users:         handler.NewUserHandler(userSvc),
		Semesters:     handler.NewSemesterHandler(semesterSvc),
		Courses:       handler.NewCourseHandler(courseSvc),
		Portfolios:    handler.NewPortfolioHandler(portfolioSvc),
		Documents:     handler.NewDocumentHandler(documentSvc),
		Reports:       handler.NewReportHandler(reportSvc),
		Health:        health,
		Authenticator: authSvc,
		Audit:         auditSvc,
	}.Register(router.Group(cfg.APIPrefix))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("http shutdown", zap.Error(err))
	}
	jobs.Stop(shutdownCtx)
	auditSvc.Stop(shutdownCtx)
	return nil
}

func newRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, health *handler.HealthHandler) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = maxMultipartMemory
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	r.NoRoute(response.NotFoundRoute)
	r.NoMethod(response.NotFoundRoute)

	r.GET("/metrics", health.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	return r
}

func newBlobStore(cfg config.StorageConfig) (storage.BlobStore, error) {
	switch cfg.Driver {
	case config.StorageDriverS3:
		return storage.NewS3Storage(storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Prefix:    cfg.S3Prefix,
		})
	default:
		return storage.NewLocalStorage(cfg.Dir)
	}
}
