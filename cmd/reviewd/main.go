// Command reviewd serves the approval review API: reviewers list ingested
// ledger entries, inspect the rendered notifications, and approve or bounce
// them before dispatch.
package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/seacliff-digital/reportpilot/internal/handler"
	"github.com/seacliff-digital/reportpilot/internal/middleware"
	"github.com/seacliff-digital/reportpilot/internal/repository"
	"github.com/seacliff-digital/reportpilot/internal/service"
	"github.com/seacliff-digital/reportpilot/pkg/config"
	"github.com/seacliff-digital/reportpilot/pkg/database"
	"github.com/seacliff-digital/reportpilot/pkg/logger"
	corsmiddleware "github.com/seacliff-digital/reportpilot/pkg/middleware/cors"
	reqidmiddleware "github.com/seacliff-digital/reportpilot/pkg/middleware/requestid"
	"github.com/seacliff-digital/reportpilot/pkg/storage"
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	exportStore, err := storage.NewLocalStorage(cfg.Storage.ExportDir)
	if err != nil {
		logr.Fatal("export storage init failed", zap.Error(err))
	}

	metrics := service.NewMetricsService()
	approvals := service.NewApprovalService(repository.NewApprovalRepository(db), logr)
	exports, err := service.NewExportService(approvals, exportStore, logr)
	if err != nil {
		logr.Fatal("export service init failed", zap.Error(err))
	}
	auth := service.NewAuthService(cfg.Review, nil, logr)

	authHandler := handler.NewAuthHandler(auth)
	reviewHandler := handler.NewReviewHandler(approvals, exports)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.Review.AllowedOrigins))
	r.Use(metrics.GinMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api/v1")
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.JWT(auth))
	protected.GET("/entries", reviewHandler.List)
	protected.GET("/entries/:id", reviewHandler.Get)
	protected.PATCH("/entries/:id/status", reviewHandler.Transition)
	protected.GET("/summary", reviewHandler.Summary)
	protected.GET("/exports/ledger.csv", reviewHandler.ExportCSV)
	protected.GET("/exports/review.html", reviewHandler.ExportReviewPage)
	protected.GET("/exports/summary.pdf", reviewHandler.ExportSummaryPDF)

	addr := fmt.Sprintf(":%d", cfg.Review.Port)
	logr.Sugar().Infow("review server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("review server failed", "error", err)
	}
}
