package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-adp-results/api/swagger"
	"github.com/noah-isme/sma-adp-results/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-adp-results/internal/middleware"
	"github.com/noah-isme/sma-adp-results/internal/models"
	"github.com/noah-isme/sma-adp-results/internal/repository"
	"github.com/noah-isme/sma-adp-results/internal/service"
	"github.com/noah-isme/sma-adp-results/pkg/cache"
	"github.com/noah-isme/sma-adp-results/pkg/config"
	"github.com/noah-isme/sma-adp-results/pkg/database"
	"github.com/noah-isme/sma-adp-results/pkg/lock"
	"github.com/noah-isme/sma-adp-results/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-adp-results/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-adp-results/pkg/middleware/requestid"
)

// @title SMA ADP Results API
// @version 0.1.0
// @description Term result computation, publishing and end of year promotion decisions
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, falling back to in-process lock and no cache", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	classRepo := repository.NewClassRepository(db)
	termRepo := repository.NewTermRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	markRepo := repository.NewMarkRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	gradeScaleRepo := repository.NewGradeScaleRepository(db)
	ruleRepo := repository.NewPromotionRuleRepository(db)
	termResultRepo := repository.NewTermResultRepository(db)
	promotionRepo := repository.NewStudentPromotionRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	var locker lock.Locker = lock.NewLocalLocker()
	var publisher service.EventPublisher
	if redisClient != nil {
		locker = lock.NewRedisLocker(redisClient, "sma:lock:")
		publisher = redisClient
	}

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Results.CacheTTL, logr, cfg.Results.CacheEnabled && redisClient != nil)
	notifier := service.NewNotificationService(publisher, service.NotificationConfig{
		Enabled:    cfg.Notifications.Enabled,
		Channel:    cfg.Notifications.Channel,
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: 500 * time.Millisecond,
	}, metricsSvc, logr)

	resultSvc := service.NewResultService(service.ResultDeps{
		Classes:     classRepo,
		Terms:       termRepo,
		Enrollments: enrollmentRepo,
		Marks:       markRepo,
		Scales:      gradeScaleRepo,
		Results:     termResultRepo,
		Locker:      locker,
		Cache:       cacheSvc,
		Notifier:    notifier,
		Metrics:     metricsSvc,
	}, service.ResultConfig{
		DefaultCAMax:   cfg.Results.DefaultCAMax,
		DefaultExamMax: cfg.Results.DefaultExamMax,
		LockTTL:        cfg.Results.LockTTL,
		CacheTTL:       cfg.Results.CacheTTL,
	}, validate, logr)
	promotionSvc := service.NewPromotionService(service.PromotionDeps{
		Classes:     classRepo,
		Terms:       termRepo,
		Enrollments: enrollmentRepo,
		Results:     termResultRepo,
		Attendance:  attendanceRepo,
		Rules:       ruleRepo,
		Promotions:  promotionRepo,
		Locker:      locker,
		Notifier:    notifier,
		Metrics:     metricsSvc,
	}, service.PromotionConfig{LockTTL: cfg.Promotions.LockTTL}, validate, logr)
	gradeScaleSvc := service.NewGradeScaleService(gradeScaleRepo, validate, logr)
	ruleSvc := service.NewPromotionRuleService(ruleRepo, validate, logr)
	tokenVerifier := service.NewTokenVerifier(service.TokenConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	})

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = redisPinger{client: redisClient}
	}

	resultHandler := handler.NewResultHandler(resultSvc)
	promotionHandler := handler.NewPromotionHandler(promotionSvc)
	gradeScaleHandler := handler.NewGradeScaleHandler(gradeScaleSvc)
	ruleHandler := handler.NewPromotionRuleHandler(ruleSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/metrics", "/health"))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	audit := func(action, resource string) gin.HandlerFunc {
		return internalmiddleware.Audit(auditRepo, logr, action, resource)
	}
	staff := internalmiddleware.StaffOnly()
	admin := internalmiddleware.AdminOnly()

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(tokenVerifier))
	api.GET("/metrics/summary", admin, metricsHandler.Summary)

	results := api.Group("/results")
	results.POST("/compute", admin, audit(models.AuditActionResultsCompute, "term_results"), resultHandler.Compute)
	results.POST("/publish", admin, audit(models.AuditActionResultsPublish, "term_results"), resultHandler.Publish)
	results.GET("", resultHandler.List)
	results.GET("/students/:studentId", resultHandler.Student)
	results.PATCH("/:id/remarks", staff, audit(models.AuditActionResultRemarks, "term_results"), resultHandler.UpdateRemarks)

	scales := api.Group("/grade-scales")
	scales.GET("", gradeScaleHandler.List)
	scales.GET("/:id", gradeScaleHandler.Get)
	scales.POST("", admin, audit(models.AuditActionGradeScaleCreate, "grade_scales"), gradeScaleHandler.Create)
	scales.POST("/:id/default", admin, audit(models.AuditActionGradeScaleDefault, "grade_scales"), gradeScaleHandler.SetDefault)

	rules := api.Group("/promotion-rules")
	rules.GET("", ruleHandler.List)
	rules.GET("/:id", ruleHandler.Get)
	rules.POST("", admin, audit(models.AuditActionRuleCreate, "promotion_rules"), ruleHandler.Create)
	rules.POST("/:id/activate", admin, audit(models.AuditActionRuleActivate, "promotion_rules"), ruleHandler.Activate)

	promotions := api.Group("/promotions")
	promotions.GET("/preview", admin, promotionHandler.Preview)
	promotions.POST("/execute", admin, audit(models.AuditActionPromotionsExecute, "student_promotions"), promotionHandler.Execute)
	promotions.GET("", staff, promotionHandler.List)
	promotions.POST("/:id/corrections", admin, audit(models.AuditActionPromotionCorrect, "student_promotions"), promotionHandler.Correct)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier.Start(ctx)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
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
	notifier.Stop()
}
