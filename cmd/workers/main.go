package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"verdant/cultivation-portal/cultivation-backend/internal/catalog"
	"verdant/cultivation-portal/cultivation-backend/internal/config"
	"verdant/cultivation-portal/cultivation-backend/internal/database"
	"verdant/cultivation-portal/cultivation-backend/internal/notifications"
	"verdant/cultivation-portal/cultivation-backend/internal/orders"
	"verdant/cultivation-portal/cultivation-backend/internal/templates"
	"verdant/cultivation-portal/cultivation-backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	// No websocket clients in the worker; events are persisted only.
	notificationService := notifications.NewService(db, nil, log)
	catalogService := catalog.NewService(catalog.NewRepository(db), log)
	orderService := orders.NewService(db, templates.NewRepository(db),
		catalogService, notificationService, log,
		cfg.Production.CompanyCode, cfg.Production.DefaultBatchSize)

	scheduler := cron.New(cron.WithSeconds())
	_, err = scheduler.AddFunc(cfg.Worker.OverdueScanCron, func() {
		runOverdueScan(orderService, notificationService, cfg.Worker.ScanBatchSize, log)
	})
	if err != nil {
		log.Fatal("Invalid overdue scan schedule",
			zap.String("cron", cfg.Worker.OverdueScanCron), zap.Error(err))
	}

	scheduler.Start()
	log.Info("Worker started", zap.String("overdue_scan_cron", cfg.Worker.OverdueScanCron))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Worker shutting down")
	<-scheduler.Stop().Done()
}

// runOverdueScan flags overdue activities in batches until a scan comes back
// short, then records one aggregate event for the run.
func runOverdueScan(orderService *orders.Service, events *notifications.Service, batchSize int, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	total := 0
	for {
		flagged, err := orderService.FlagOverdueActivities(ctx, time.Now(), batchSize)
		if err != nil {
			log.Error("Overdue scan failed", zap.Error(err))
			return
		}
		total += flagged
		if flagged < batchSize {
			break
		}
	}

	if total > 0 {
		events.ActivitiesOverdue(total)
		log.Info("Overdue scan finished", zap.Int("flagged", total))
	}
}
