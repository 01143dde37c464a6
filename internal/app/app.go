// Package app assembles the ranch services from configuration. Both the HTTP
// server and the operator CLI build their dependencies here.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/mamadbah2/ranch/internal/config"
	"github.com/mamadbah2/ranch/internal/metrics"
	"github.com/mamadbah2/ranch/internal/repository/mongodb"
	"github.com/mamadbah2/ranch/internal/repository/sheets"
	"github.com/mamadbah2/ranch/internal/scheduler"
	"github.com/mamadbah2/ranch/internal/service/notifications"
	"github.com/mamadbah2/ranch/internal/service/reporting"
	"github.com/mamadbah2/ranch/internal/service/sales"
	whatsappclient "github.com/mamadbah2/ranch/pkg/clients/whatsapp"
	"github.com/mamadbah2/ranch/pkg/events"
)

// App holds the wired services.
type App struct {
	Config    *config.Config
	Location  *time.Location
	Registry  *prometheus.Registry
	Store     *mongodb.MongoDBRepository
	Sales     *sales.Service
	Reporting *reporting.Service
	Scheduler *scheduler.Scheduler

	events *events.Producer
	logger *zap.Logger
}

// New connects to MongoDB and builds every service. Optional integrations
// (Kafka, Google Sheets, WhatsApp) are wired only when configured.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	store, err := mongodb.NewMongoDBRepository(connectCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName, logger.Named("repo.mongodb"))
	if err != nil {
		return nil, fmt.Errorf("init mongodb repository: %w", err)
	}
	if err := store.EnsureIndexes(connectCtx); err != nil {
		_ = store.Close(ctx)
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Location: loc,
		Registry: registry,
		Store:    store,
		logger:   logger,
	}

	var publisher sales.Publisher
	if cfg.Kafka.Enabled() {
		producer, err := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger.Named("events"))
		if err != nil {
			_ = store.Close(ctx)
			return nil, err
		}
		a.events = producer
		publisher = producer
		logger.Info("sale events enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	} else {
		logger.Warn("kafka brokers missing, sale events disabled")
	}

	a.Sales = sales.NewService(store, publisher, m, loc, logger.Named("svc.sales"))

	var sheetRepo sheets.Repository
	if cfg.Sheets.Enabled() {
		repo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, logger.Named("repo.sheets"))
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("init sheets repository: %w", err)
		}
		sheetRepo = repo
	} else {
		logger.Warn("google sheets not configured, export disabled")
	}
	a.Reporting = reporting.NewService(a.Sales, sheetRepo, loc, logger.Named("svc.reporting"))

	var notifier scheduler.Notifier
	if cfg.WhatsApp.Enabled() {
		client := whatsappclient.NewClient(cfg.WhatsApp, logger.Named("clients.whatsapp"))
		notifier = notifications.NewOperatorNotifier(client, cfg.WhatsApp.OperatorID, logger.Named("svc.notifications"))
	} else {
		logger.Warn("whatsapp token missing, operator notifications disabled")
	}

	a.Scheduler = scheduler.NewScheduler(scheduler.Config{
		Schedule:    cfg.Reconciler.CronSchedule,
		MaxAttempts: cfg.Reconciler.MaxAttempts,
		Backoff:     cfg.Reconciler.Backoff,
		RetryDelay:  cfg.Reconciler.RetryDelay,
	}, store, a.Sales, notifier, m, loc, logger.Named("scheduler"))

	return a, nil
}

// Close flushes the event producer and disconnects from MongoDB.
func (a *App) Close(ctx context.Context) {
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.logger.Error("failed to close event producer", zap.Error(err))
		}
	}
	if err := a.Store.Close(ctx); err != nil {
		a.logger.Error("failed to close mongodb connection", zap.Error(err))
	}
}
