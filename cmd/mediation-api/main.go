package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/transit-mediation/mediation-api/internal/handler"
	"github.com/transit-mediation/mediation-api/internal/middleware"
	"github.com/transit-mediation/mediation-api/internal/repository"
	"github.com/transit-mediation/mediation-api/internal/service"
	"github.com/transit-mediation/mediation-api/pkg/cache"
	"github.com/transit-mediation/mediation-api/pkg/config"
	"github.com/transit-mediation/mediation-api/pkg/database"
	"github.com/transit-mediation/mediation-api/pkg/jobs"
	"github.com/transit-mediation/mediation-api/pkg/logger"
	corsmiddleware "github.com/transit-mediation/mediation-api/pkg/middleware/cors"
	reqidmiddleware "github.com/transit-mediation/mediation-api/pkg/middleware/requestid"
	"github.com/transit-mediation/mediation-api/pkg/storage"
)

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

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, summary cache disabled", "error", err)
		redisClient = nil
	}

	sheetStore, err := storage.NewLocalStorage(cfg.Sheets.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare route-sheet storage", "error", err)
	}
	reportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare report storage", "error", err)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	interventionRepo := repository.NewInterventionRepository(db)
	linkRepo := repository.NewLinkRepository(db)
	sheetRepo := repository.NewRouteSheetRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "mediation-api",
	})
	interventionSvc := service.NewInterventionService(interventionRepo, cacheRepo, validate, logr)
	linkSvc := service.NewLinkService(linkRepo, validate, logr)
	sheetSvc := service.NewRouteSheetService(sheetRepo, sheetStore,
		storage.NewSignedURLSigner(cfg.Sheets.SignedURLSecret, cfg.Sheets.SignedURLTTL),
		validate, logr, service.RouteSheetConfig{
			MaxFileSizeBytes: cfg.Sheets.MaxFileSizeBytes,
			AllowedMIMEs:     cfg.Sheets.AllowedMIMEs,
		})
	reportSvc := service.NewReportService(interventionRepo, cacheRepo, reportStore,
		storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL),
		service.ReportConfig{
			APIPrefix: cfg.APIPrefix,
			CacheTTL:  cfg.Summary.CacheTTL,
			ResultTTL: cfg.Reports.RetentionTTL,
		}, logr)
	metricsSvc := service.NewMetricsService()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	maintenance := jobs.NewRunner(func(ctx context.Context, task jobs.Task) error {
		switch task.Kind {
		case jobs.KindPurgeReports:
			removed, err := reportSvc.Cleanup(0)
			if err != nil {
				return err
			}
			if len(removed) > 0 {
				logr.Sugar().Infow("expired reports removed", "count", len(removed))
			}
		default:
			logr.Warn("unknown maintenance task", zap.String("kind", string(task.Kind)))
		}
		return nil
	}, jobs.Config{Workers: 1, Logger: logr})
	maintenance.Start(ctx)
	defer maintenance.Stop()
	maintenance.Schedule(jobs.KindPurgeReports, cfg.Reports.CleanupInterval)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.MaxMultipartMemory = cfg.Sheets.MaxFileSizeBytes

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	authHandler := handler.NewAuthHandler(authSvc)
	interventionHandler := handler.NewInterventionHandler(interventionSvc)
	linkHandler := handler.NewLinkHandler(linkSvc)
	sheetHandler := handler.NewRouteSheetHandler(sheetSvc, metricsSvc)
	reportHandler := handler.NewReportHandler(reportSvc, metricsSvc)
	referenceHandler := handler.NewReferenceHandler()

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	protected := api.Group("", middleware.JWT(authSvc))

	protected.GET("/lines", referenceHandler.Lines)
	protected.GET("/lines/:line/stops", referenceHandler.Stops)
	protected.GET("/incident-types", referenceHandler.IncidentTypes)

	interventions := protected.Group("/interventions")
	interventions.POST("", interventionHandler.Create)
	interventions.GET("", interventionHandler.List)
	interventions.DELETE("", interventionHandler.ResetDay)
	interventions.PATCH("/:id", interventionHandler.Update)
	interventions.DELETE("/:id", interventionHandler.Delete)
	interventions.POST("/:id/counters/:counter", interventionHandler.AdjustCounter)

	links := protected.Group("/links")
	links.GET("", linkHandler.List)
	links.POST("", middleware.AdminOnly(), linkHandler.Create)
	links.PUT("/:id", middleware.AdminOnly(), linkHandler.Update)
	links.DELETE("/:id", middleware.AdminOnly(), linkHandler.Delete)
	links.POST("/:id/move", middleware.AdminOnly(), linkHandler.Move)

	sheets := protected.Group("/route-sheets")
	sheets.GET("", sheetHandler.List)
	sheets.GET("/categories", sheetHandler.Categories)
	sheets.GET("/download", sheetHandler.Download)
	sheets.GET("/:id/url", sheetHandler.DownloadURL)
	sheets.POST("", middleware.AdminOnly(), sheetHandler.Upload)
	sheets.DELETE("/:id", middleware.AdminOnly(), sheetHandler.Delete)

	reports := protected.Group("/reports")
	reports.GET("/summary", reportHandler.Summary)
	reports.POST("/export", reportHandler.Export)
	api.GET("/reports/download/:token", reportHandler.Download)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logr.Sugar().Warnw("shutdown did not finish cleanly", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
