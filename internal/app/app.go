// -----------------------------------------------------------------------
// Last Modified: Thursday, 16th October 2025
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/roomathon/internal/common"
	"github.com/ternarybob/roomathon/internal/handlers"
	"github.com/ternarybob/roomathon/internal/interfaces"
	"github.com/ternarybob/roomathon/internal/services/blob"
	"github.com/ternarybob/roomathon/internal/services/imagefetch"
	"github.com/ternarybob/roomathon/internal/services/inspections"
	"github.com/ternarybob/roomathon/internal/services/llm"
	"github.com/ternarybob/roomathon/internal/services/mailer"
	"github.com/ternarybob/roomathon/internal/services/notify"
	"github.com/ternarybob/roomathon/internal/services/pdf"
	"github.com/ternarybob/roomathon/internal/services/publisher"
	"github.com/ternarybob/roomathon/internal/services/reports"
	"github.com/ternarybob/roomathon/internal/services/summary"
	"github.com/ternarybob/roomathon/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Pipeline services
	BlobStorage    interfaces.BlobStorage
	LLM            *llm.ProviderFactory
	MailerService  *mailer.Service
	Notifier       *notify.Notifier
	RetryScheduler *notify.RetryScheduler
	ReportService  *reports.Service

	// HTTP handlers
	APIHandler    *handlers.APIHandler
	ReportHandler *handlers.ReportHandler
	MailHandler   *handlers.MailHandler
	KVHandler     *handlers.KVHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	logger.Info().
		Str("llm_provider", string(cfg.LLM.DefaultProvider)).
		Str("blob_provider", cfg.Storage.Blob.Provider).
		Bool("notification_retry", cfg.Notifications.RetryEnabled).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices builds the report pipeline in stage order
func (a *App) initServices() error {
	var err error
	cfg := a.Config

	a.BlobStorage, err = blob.NewFromConfig(context.Background(), &cfg.Storage.Blob, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize blob storage: %w", err)
	}

	a.LLM = llm.NewProviderFactory(cfg, a.StorageManager.KeyValueStorage(), a.Logger)
	defaultModel := a.LLM.GetDefaultModel(llm.ProviderType(cfg.LLM.DefaultProvider))

	images := imagefetch.NewFetcher(a.Logger,
		imagefetch.WithTimeout(common.ParseDuration(cfg.Images.Timeout, imagefetch.DefaultTimeout)),
		imagefetch.WithRateLimit(cfg.Images.RateLimit),
		imagefetch.WithMaxBytes(cfg.Images.MaxBytes),
		imagefetch.WithUserAgent(cfg.Images.UserAgent),
	)

	a.MailerService = mailer.NewService(a.StorageManager.KeyValueStorage(), cfg.SMTP, a.Logger)
	outbox := a.StorageManager.NotificationStorage()
	a.Notifier = notify.NewNotifier(a.MailerService, outbox, a.Logger)

	inspectionStorage := a.StorageManager.InspectionStorage()
	a.ReportService = reports.NewService(&cfg.Reports, reports.Components{
		Storage:    inspectionStorage,
		Fetcher:    inspections.NewFetcher(inspectionStorage, a.Logger),
		Summarizer: summary.NewService(a.LLM, defaultModel, cfg.LLM.MaxTokens, a.Logger),
		Renderer:   pdf.NewService(a.Logger),
		Images:     images,
		Publisher:  publisher.NewPublisher(cfg.Reports.OutputDir, a.BlobStorage, inspectionStorage, a.Logger),
		Notifier:   a.Notifier,
	}, a.Logger)

	a.Logger.Debug().
		Str("model", defaultModel).
		Str("reports_dir", cfg.Reports.OutputDir).
		Msg("Report pipeline initialized")

	return nil
}

// StartBackground starts the notification retry scheduler when enabled
func (a *App) StartBackground() error {
	if !a.Config.Notifications.RetryEnabled {
		return nil
	}

	a.RetryScheduler = notify.NewRetryScheduler(
		a.Notifier,
		a.StorageManager.NotificationStorage(),
		a.Config.Notifications.MaxAttempts,
		a.Logger,
	)
	if err := a.RetryScheduler.Start(a.Config.Notifications.RetrySchedule); err != nil {
		a.RetryScheduler = nil
		return fmt.Errorf("failed to start notification retry scheduler: %w", err)
	}
	return nil
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.ReportHandler = handlers.NewReportHandler(a.ReportService, a.Logger)
	a.MailHandler = handlers.NewMailHandler(a.MailerService, a.Notifier, a.Logger)
	a.KVHandler = handlers.NewKVHandler(a.StorageManager.KeyValueStorage(), a.Logger)
}

// Close closes all application resources
func (a *App) Close() error {
	if a.RetryScheduler != nil {
		a.RetryScheduler.Stop()
	}

	if a.LLM != nil {
		if err := a.LLM.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM clients")
		}
	}

	if a.BlobStorage != nil {
		if err := a.BlobStorage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close blob storage")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
