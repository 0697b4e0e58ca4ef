// Package container provides dependency wiring and lifecycle management
// for the invoice loader.
package container

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/isnex/invoice-loader/internal/application/port"
	"github.com/isnex/invoice-loader/internal/application/service"
	"github.com/isnex/invoice-loader/internal/config"
	"github.com/isnex/invoice-loader/internal/infrastructure/persistence/repository"
	"github.com/isnex/invoice-loader/internal/invoice"
	"github.com/isnex/invoice-loader/internal/isdoc"
	"github.com/isnex/invoice-loader/internal/lark"
	"github.com/isnex/invoice-loader/internal/notification"
	"github.com/isnex/invoice-loader/internal/observability/metrics"
	"github.com/isnex/invoice-loader/internal/report"
	"github.com/isnex/invoice-loader/internal/staging"
	"github.com/isnex/invoice-loader/internal/storage"
	"github.com/isnex/invoice-loader/internal/worker"
	"github.com/isnex/invoice-loader/pkg/database"
)

// DatabaseBundle holds the primary store components.
type DatabaseBundle struct {
	DB       *database.DB
	Invoices *repository.InvoiceRepository
}

// StorageBundle holds artifact storage components.
type StorageBundle struct {
	Files   *storage.LocalFileStorage
	Folders *storage.FolderManager
}

// MetricsBundle holds the metrics registry and the sink fed by the pipeline.
// Registry is nil when metrics are disabled.
type MetricsBundle struct {
	Registry *prometheus.Registry
	Sink     port.MetricsSink
}

// PipelineDeps are the collaborators shared by the application services.
type PipelineDeps struct {
	Database *DatabaseBundle
	Staging  *staging.Store
	Storage  *StorageBundle
	Notifier port.Notifier
	Metrics  *MetricsBundle
}

// ServiceBundle groups the application services.
type ServiceBundle struct {
	Ingest  *service.IngestService
	Summary *service.SummaryService
}

// ProvideDatabase opens the primary store and applies pending migrations.
func ProvideDatabase(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:       db,
		Invoices: repository.NewInvoiceRepository(db, logger),
	}, nil
}

// ProvideStaging creates the staging store, or nil when it is disabled.
// The store connects lazily.
func ProvideStaging(cfg *config.StagingConfig, logger *zap.Logger) *staging.Store {
	if cfg == nil || !cfg.Enabled {
		logger.Info("Staging store disabled")
		return nil
	}
	return staging.New(staging.Config{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Database:       cfg.Database,
		User:           cfg.User,
		Password:       cfg.Password,
		SSLMode:        cfg.SSLMode,
		MaxConns:       cfg.MaxConns,
		ConnectTimeout: cfg.ConnectTimeout,
	}, logger)
}

// ProvideStorage creates artifact storage rooted at the configured path.
func ProvideStorage(cfg *config.StorageConfig, logger *zap.Logger) (*StorageBundle, error) {
	if cfg == nil || cfg.BasePath == "" {
		return nil, fmt.Errorf("storage base path is required")
	}

	files := storage.NewLocalFileStorage(cfg.BasePath, logger)
	if err := files.CheckWritable(); err != nil {
		return nil, fmt.Errorf("storage is not writable: %w", err)
	}

	return &StorageBundle{
		Files:   files,
		Folders: storage.NewFolderManager(cfg.BasePath, logger),
	}, nil
}

// ProvideNotifier returns the Lark notifier when enabled, else a notifier
// that only logs.
func ProvideNotifier(cfg *config.NotificationConfig, logger *zap.Logger) port.Notifier {
	if cfg == nil || !cfg.Enabled {
		return notification.NewLogNotifier(logger)
	}

	client := lark.NewClient(lark.Config{
		AppID:      cfg.AppID,
		AppSecret:  cfg.AppSecret,
		APITimeout: cfg.APITimeout,
	}, logger)
	return notification.NewLarkNotifier(lark.NewMessageAPI(client, logger), cfg.RecipientID, logger)
}

// ProvideMetrics registers the pipeline collectors on a dedicated registry.
func ProvideMetrics(cfg *config.MetricsConfig) (*MetricsBundle, error) {
	if cfg == nil || !cfg.Enabled {
		return &MetricsBundle{Sink: metrics.Nop{}}, nil
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	sink, err := metrics.New(registry, metrics.Config{Namespace: cfg.Namespace})
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return &MetricsBundle{Registry: registry, Sink: sink}, nil
}

// ProvideExtraction builds the text reader and field extractor.
func ProvideExtraction(cfg *config.ExtractionConfig, logger *zap.Logger) (*invoice.TextReader, *invoice.Extractor, error) {
	registry, err := invoice.NewRegistry(cfg.DefaultLayout, invoice.LSLayout())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build layout registry: %w", err)
	}
	return invoice.NewTextReader(cfg.MaxPages, logger), invoice.NewExtractor(registry, logger), nil
}

// ProvideEncoder builds the ISDOC encoder.
func ProvideEncoder(cfg *config.EncodingConfig, logger *zap.Logger) *isdoc.Encoder {
	enc := isdoc.DefaultConfig()
	if cfg.IssuingSystem != "" {
		enc.IssuingSystem = cfg.IssuingSystem
	}
	if cfg.AgreementReference != "" {
		enc.AgreementReference = cfg.AgreementReference
	}
	if cfg.DefaultVATRate > 0 {
		enc.DefaultVATRate = decimal.NewFromFloat(cfg.DefaultVATRate)
	}
	if cfg.CountryCode != "" {
		enc.CountryCode = cfg.CountryCode
	}
	if cfg.CountryName != "" {
		enc.CountryName = cfg.CountryName
	}
	return isdoc.NewEncoder(enc, logger)
}

// ProvideServices creates the ingest pipeline and the daily summary service.
func ProvideServices(cfg *config.Config, deps *PipelineDeps, logger *zap.Logger) (*ServiceBundle, error) {
	if deps == nil || deps.Database == nil || deps.Storage == nil {
		return nil, fmt.Errorf("database and storage are required")
	}

	reader, extractor, err := ProvideExtraction(&cfg.Extraction, logger)
	if err != nil {
		return nil, err
	}

	pipeline := service.Dependencies{
		Reader:    reader,
		Extractor: extractor,
		Encoder:   ProvideEncoder(&cfg.Encoding, logger),
		Primary:   deps.Database.Invoices,
		Folders:   deps.Storage.Folders,
		Files:     deps.Storage.Files,
		Notifier:  deps.Notifier,
	}
	// A nil *staging.Store must not become a non-nil interface
	if deps.Staging != nil {
		pipeline.Secondary = deps.Staging
	}
	if deps.Metrics != nil {
		pipeline.Metrics = deps.Metrics.Sink
	}

	ingest := service.NewIngestService(service.Config{
		Tenant:           cfg.Tenant.Name,
		TotalTolerance:   decimal.NewFromFloat(cfg.Extraction.TotalTolerance),
		PrimaryTimeout:   cfg.Database.WriteTimeout,
		SecondaryTimeout: cfg.Staging.WriteTimeout,
		NotifyTimeout:    cfg.Notification.APITimeout,
	}, pipeline, logger)

	summary := service.NewSummaryService(
		deps.Database.Invoices,
		deps.Storage.Folders,
		report.NewWorkbookWriter(deps.Storage.Files, logger),
		deps.Notifier,
		logger,
	)

	return &ServiceBundle{Ingest: ingest, Summary: summary}, nil
}

// ProvideWorkers registers the background workers enabled in configuration.
func ProvideWorkers(cfg *config.SummaryConfig, services *ServiceBundle, logger *zap.Logger) (*worker.Manager, error) {
	manager := worker.NewManager(logger)

	if cfg != nil && cfg.Enabled {
		scheduler, err := worker.NewSummaryScheduler(services.Summary, cfg.Time, logger)
		if err != nil {
			return nil, err
		}
		manager.Register(scheduler)
	}

	return manager, nil
}
