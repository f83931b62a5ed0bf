package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/winova/contest-api/api/swagger"
	"github.com/winova/contest-api/internal/gateway"
	"github.com/winova/contest-api/internal/handler"
	"github.com/winova/contest-api/internal/middleware"
	"github.com/winova/contest-api/internal/models"
	"github.com/winova/contest-api/internal/repository"
	"github.com/winova/contest-api/internal/service"
	"github.com/winova/contest-api/pkg/cache"
	"github.com/winova/contest-api/pkg/config"
	"github.com/winova/contest-api/pkg/database"
	"github.com/winova/contest-api/pkg/logger"
	corsmiddleware "github.com/winova/contest-api/pkg/middleware/cors"
	reqidmiddleware "github.com/winova/contest-api/pkg/middleware/requestid"
)

// @title Contest Entry API
// @version 1.0.0
// @description Paid contest admission, payment reconciliation and quiz qualification
// @BasePath /
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var cacheRepo *repository.CacheRepository
	if redisClient, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("redis unavailable, quiz cache disabled", "error", err)
	} else {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	contestRepo := repository.NewContestRepository(db)
	entryRepo := repository.NewEntryRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	paymentGateway := gateway.NewHTTPGateway(cfg.Gateway)

	tokenSvc := service.NewTokenService(cfg.JWT)
	admissionSvc := service.NewAdmissionService(contestRepo, metricsSvc, logr)
	entrySvc := service.NewEntryService(entryRepo, admissionSvc, validate, logr)
	paymentSvc := service.NewPaymentService(paymentRepo, entryRepo, contestRepo, paymentGateway, auditRepo, metricsSvc, cfg.Gateway.Currency, validate, logr)

	var quizCache service.QuizCache
	if cacheRepo != nil {
		quizCache = cacheRepo
	}
	quizSvc := service.NewQuizService(quizRepo, entryRepo, entrySvc, quizCache, cfg.Quiz.CacheTTL, metricsSvc, validate, logr)

	reconSvc := service.NewReconciliationService(entryRepo, contestRepo, paymentRepo, auditRepo, metricsSvc, cfg.Admission, logr)

	entryHandler := handler.NewEntryHandler(entrySvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	quizHandler := handler.NewQuizHandler(quizSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	entries := api.Group("/entries", middleware.JWT(tokenSvc))
	entries.POST("", middleware.RequireRoles(models.RoleUser, models.RoleAdmin), entryHandler.Create)
	entries.GET("/user", entryHandler.ListMine)

	payments := api.Group("/payments", middleware.JWT(tokenSvc))
	payments.POST("/orders", paymentHandler.CreateOrder)
	payments.POST("/capture", paymentHandler.Capture)
	payments.GET("/user", paymentHandler.ListMine)
	payments.POST("/:id/refund", middleware.RequireRoles(models.RoleAdmin),
		middleware.Audit(auditRepo, models.AuditActionRefundRequested, "payment"), paymentHandler.RequestRefund)
	payments.PUT("/:id/refund/resolve", middleware.RequireRoles(models.RoleAdmin),
		middleware.Audit(auditRepo, models.AuditActionRefundResolved, "payment"), paymentHandler.ResolveRefund)

	quizzes := api.Group("/quizzes")
	quizzes.GET("/contest/:contestId", quizHandler.Get)
	quizzes.POST("/contest/:contestId/submit", middleware.JWT(tokenSvc), quizHandler.Submit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reconSvc.Start(ctx)
	defer reconSvc.Stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		logr.Sugar().Infow("shutting down")
		_ = srv.Shutdown(context.Background())
	}()

	logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
