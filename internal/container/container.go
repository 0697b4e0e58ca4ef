package container

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/isnex/invoice-loader/internal/application/port"
	"github.com/isnex/invoice-loader/internal/config"
	"github.com/isnex/invoice-loader/internal/infrastructure/persistence/repository"
	"github.com/isnex/invoice-loader/internal/staging"
	"github.com/isnex/invoice-loader/internal/worker"
)

// Container owns every long-lived component. Components are initialized in
// dependency order and torn down in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger

	database *DatabaseBundle
	staging  *staging.Store
	storage  *StorageBundle
	notifier port.Notifier
	metrics  *MetricsBundle
	services *ServiceBundle
	workers  *worker.Manager

	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components:
// 1. Primary store and migrations
// 2. Staging store (lazy, optional)
// 3. Artifact storage
// 4. Notifier and metrics
// 5. Application services
// 6. Background workers
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	db, err := ProvideDatabase(ctx, &c.config.Database, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.database = db
	c.logger.Info("Database initialized")

	c.staging = ProvideStaging(&c.config.Staging, c.logger)

	st, err := ProvideStorage(&c.config.Storage, c.logger)
	if err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.storage = st
	if err := st.Folders.EnsureTenantFolders(c.config.Tenant.Name); err != nil {
		c.teardown()
		return fmt.Errorf("failed to prepare tenant folders: %w", err)
	}
	c.logger.Info("Storage initialized", zap.String("base_path", c.config.Storage.BasePath))

	c.notifier = ProvideNotifier(&c.config.Notification, c.logger)
	m, err := ProvideMetrics(&c.config.Metrics)
	if err != nil {
		c.teardown()
		return err
	}
	c.metrics = m

	services, err := ProvideServices(c.config, &PipelineDeps{
		Database: c.database,
		Staging:  c.staging,
		Storage:  c.storage,
		Notifier: c.notifier,
		Metrics:  c.metrics,
	}, c.logger)
	if err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.services = services

	workers, err := ProvideWorkers(&c.config.Summary, services, c.logger)
	if err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize workers: %w", err)
	}
	if err := workers.StartAll(ctx); err != nil {
		c.teardown()
		return fmt.Errorf("failed to start workers: %w", err)
	}
	c.workers = workers

	c.ready.Store(true)
	c.logger.Info("Container started successfully",
		zap.String("tenant", c.config.Tenant.Name),
		zap.Bool("staging_enabled", c.staging != nil),
		zap.Bool("notifications_enabled", c.config.Notification.Enabled))
	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")
	err := c.teardown()

	c.closed.Store(true)
	c.ready.Store(false)

	if err != nil {
		c.logger.Error("Container closed with errors", zap.Error(err))
		return err
	}
	c.logger.Info("Container closed successfully")
	return nil
}

func (c *Container) teardown() error {
	var errs []error

	if c.workers != nil {
		c.workers.StopAll()
	}

	if c.staging != nil {
		c.staging.Close()
		c.logger.Info("Staging store closed")
	}

	if c.database != nil {
		if err := c.database.DB.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	return errors.Join(errs...)
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components. An unreachable staging
// store does not make the service unhealthy.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	check := func(name string, required bool, err error) {
		if err != nil {
			status.Components[name] = ComponentHealth{Healthy: false, Message: err.Error()}
			if required {
				status.Overall = false
			}
			return
		}
		status.Components[name] = ComponentHealth{Healthy: true}
	}

	if c.database != nil {
		check("database", true, c.database.Invoices.Ping(ctx))
	} else {
		check("database", true, fmt.Errorf("not initialized"))
	}

	if c.storage != nil {
		check("storage", true, c.storage.Files.CheckWritable())
	} else {
		check("storage", true, fmt.Errorf("not initialized"))
	}

	if c.staging != nil {
		check("staging", false, c.staging.TestConnection(ctx))
	}

	return status
}

// Invoices returns the primary store.
func (c *Container) Invoices() *repository.InvoiceRepository {
	return c.database.Invoices
}

// Staging returns the staging store as a port, nil when disabled.
func (c *Container) Staging() port.SecondaryStore {
	if c.staging == nil {
		return nil
	}
	return c.staging
}

// StagingStore returns the concrete staging store, nil when disabled.
func (c *Container) StagingStore() *staging.Store {
	return c.staging
}

// Storage returns artifact storage.
func (c *Container) Storage() *StorageBundle {
	return c.storage
}

// Services returns the application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Gatherer returns the metrics registry, nil when metrics are disabled.
func (c *Container) Gatherer() prometheus.Gatherer {
	if c.metrics == nil || c.metrics.Registry == nil {
		return nil
	}
	return c.metrics.Registry
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *config.Config {
	return c.config
}
