// Command pipeline runs one ingestion pass over the report mailbox and,
// when asked, a dispatch pass over approved ledger entries. It is built to
// run from cron; every pass is idempotent.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/seacliff-digital/reportpilot/internal/gmail"
	"github.com/seacliff-digital/reportpilot/internal/parser"
	"github.com/seacliff-digital/reportpilot/internal/repository"
	"github.com/seacliff-digital/reportpilot/internal/service"
	"github.com/seacliff-digital/reportpilot/internal/template"
	"github.com/seacliff-digital/reportpilot/pkg/cache"
	"github.com/seacliff-digital/reportpilot/pkg/config"
	"github.com/seacliff-digital/reportpilot/pkg/database"
	"github.com/seacliff-digital/reportpilot/pkg/logger"
	"github.com/seacliff-digital/reportpilot/pkg/storage"
)

func main() {
	var (
		ingest   = flag.Bool("ingest", true, "run the ingestion pass")
		dispatch = flag.Bool("dispatch", false, "send approved notifications after ingestion")
		export   = flag.Bool("export", false, "write ledger exports after the run")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	var seen service.SeenStore
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, running without seen cache", zap.Error(err))
		} else {
			defer redisClient.Close()
			seen = cache.NewSeenStore(redisClient, 0)
		}
	}

	reportStore, err := storage.NewLocalStorage(cfg.Storage.ReportDir)
	if err != nil {
		logr.Fatal("report storage init failed", zap.Error(err))
	}
	exportStore, err := storage.NewLocalStorage(cfg.Storage.ExportDir)
	if err != nil {
		logr.Fatal("export storage init failed", zap.Error(err))
	}

	creds, err := gmail.LoadCredentials(cfg.Gmail.CredentialsPath, cfg.Gmail.TokenPath)
	if err != nil {
		logr.Fatal("gmail credentials failed", zap.Error(err))
	}
	retrier := gmail.NewRetrier(cfg.Gmail.MaxRetries, cfg.Gmail.BackoffBase, logr)
	mailClient, err := gmail.NewClient(ctx, creds, retrier, logr)
	if err != nil {
		logr.Fatal("gmail client init failed", zap.Error(err))
	}

	renderer, err := template.NewRenderer(cfg.Agency)
	if err != nil {
		logr.Fatal("renderer init failed", zap.Error(err))
	}

	metrics := service.NewMetricsService()
	approvals := service.NewApprovalService(repository.NewApprovalRepository(db), logr)

	if *ingest {
		ingestSvc := service.NewIngestService(
			mailClient,
			repository.NewClientRepository(db),
			approvals,
			parser.New(parser.Options{PreferLaterLine: cfg.Parser.PreferLaterLine}),
			renderer,
			reportStore,
			seen,
			metrics,
			cfg.Gmail,
			cfg.Matcher,
			logr,
		)
		summary, err := ingestSvc.Run(ctx)
		if err != nil {
			logr.Fatal("ingestion run failed", zap.Error(err))
		}
		logr.Info("ingestion summary",
			zap.Int("messages", summary.MessagesFound),
			zap.Int("parsed", summary.ReportsParsed),
			zap.Int("created", summary.EntriesCreated),
			zap.Int("skipped_seen", summary.SkippedSeen),
			zap.Int("skipped_exists", summary.SkippedExists),
			zap.Int("ambiguous", summary.Ambiguous),
			zap.Int("not_found", summary.NotFound),
			zap.Strings("failures", summary.Failures),
			zap.Duration("elapsed", summary.Elapsed))
	}

	if *dispatch {
		dispatchSvc := service.NewDispatchService(
			approvals, mailClient, reportStore, metrics,
			cfg.Agency.Email, cfg.Dispatch, logr)
		summary, err := dispatchSvc.Dispatch(ctx)
		if err != nil {
			logr.Fatal("dispatch pass failed", zap.Error(err))
		}
		logr.Info("dispatch summary",
			zap.Int("total", summary.Total),
			zap.Int("sent", summary.Sent),
			zap.Int("drafted", summary.Drafted),
			zap.Int("failed", summary.Failed),
			zap.Strings("errors", summary.Errors))
	}

	if *export {
		exportSvc, err := service.NewExportService(approvals, exportStore, logr)
		if err != nil {
			logr.Fatal("export service init failed", zap.Error(err))
		}
		paths, err := exportSvc.WriteAll(ctx, time.Now())
		if err != nil {
			logr.Fatal("export write failed", zap.Error(err))
		}
		logr.Info("exports written", zap.Strings("paths", paths))
	}
}
