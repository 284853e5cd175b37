package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/memo-edu/memo-api/api/swagger"
	"github.com/memo-edu/memo-api/internal/handler"
	"github.com/memo-edu/memo-api/internal/repository"
	"github.com/memo-edu/memo-api/internal/router"
	"github.com/memo-edu/memo-api/internal/service"
	"github.com/memo-edu/memo-api/pkg/cache"
	"github.com/memo-edu/memo-api/pkg/config"
	"github.com/memo-edu/memo-api/pkg/database"
	"github.com/memo-edu/memo-api/pkg/export"
	"github.com/memo-edu/memo-api/pkg/jobs"
	"github.com/memo-edu/memo-api/pkg/logger"
	"github.com/memo-edu/memo-api/pkg/storage"
)

// @title MEMO API
// @version 1.0.0
// @description Academic content catalogue, progress tracking and study planner for students.
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, academic cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	files, err := storage.NewLocalStorage(cfg.Content.StorageDir)
	if err != nil {
		logr.Fatal("content storage unavailable", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Content.SignedURLSecret, cfg.Content.SignedURLTTL)

	validate := service.NewValidator()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	academicRepo := repository.NewAcademicRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	contentRepo := repository.NewContentRepository(db)
	bookmarkRepo := repository.NewBookmarkRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	plannerRepo := repository.NewPlannerRepository(db)
	quizRepo := repository.NewQuizRepository(db)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.AcademicTTL, logr, cfg.Cache.Enabled)
	scopes := service.NewScopeResolver(profileRepo)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	academicSvc := service.NewAcademicService(academicRepo, profileRepo, cacheSvc, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, academicRepo, contentRepo, scopes, cacheSvc, validate, logr)
	contentSvc := service.NewContentService(contentRepo, subjectRepo, progressRepo, scopes, files, signer, metrics, validate, logr, service.ContentConfig{
		APIPrefix:     cfg.APIPrefix,
		PublicBaseURL: cfg.Content.PublicBaseURL,
	})
	counterQueue := jobs.NewQueue("content-counters", contentSvc.HandleCounterJob, jobs.QueueConfig{
		Workers:    cfg.Content.CounterWorkers,
		BufferSize: 1024,
		MaxRetries: 2,
		Logger:     logr,
	})
	counterQueue.Start(ctx)
	contentSvc.WithCounterQueue(counterQueue)

	bookmarkSvc := service.NewBookmarkService(bookmarkRepo, contentRepo, validate, logr)
	progressSvc := service.NewProgressService(progressRepo, contentRepo, subjectRepo, validate, logr)
	exportSvc := service.NewExportService(logr, export.NewCSVExporter(), export.NewPDFExporter())
	plannerSvc := service.NewPlannerService(plannerRepo, subjectRepo, scopes, exportSvc, metrics, validate, logr, service.PlannerConfig{
		BatchMax: cfg.Planner.BatchMax,
	})
	quizSvc := service.NewQuizService(quizRepo, scopes, metrics, validate, logr)

	dependencies := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		dependencies["redis"] = handler.PingerFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	engine := router.New(router.Options{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		PublicDir:      filepath.Join(cfg.Content.StorageDir, storage.PublicPrefix),
	}, router.Handlers{
		Auth:     handler.NewAuthHandler(authSvc),
		Academic: handler.NewAcademicHandler(academicSvc),
		Subject:  handler.NewSubjectHandler(subjectSvc),
		Content:  handler.NewContentHandler(contentSvc),
		Bookmark: handler.NewBookmarkHandler(bookmarkSvc),
		Progress: handler.NewProgressHandler(progressSvc),
		Planner:  handler.NewPlannerHandler(plannerSvc),
		Quiz:     handler.NewQuizHandler(quizSvc),
		Metrics:  handler.NewMetricsHandler(metrics, dependencies),
	}, authSvc, metrics, logr)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("forced shutdown", zap.Error(err))
	}
	counterQueue.Stop(shutdownCtx)
}
