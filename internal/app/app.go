package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"wexport/internal/config"
	"wexport/internal/db"
	"wexport/internal/downloads"
	apierrors "wexport/internal/errors"
	"wexport/internal/exporter"
	"wexport/internal/files"
	"wexport/internal/importer"
	"wexport/internal/infrastructure"
	customMiddleware "wexport/internal/middleware"
	"wexport/internal/services"
	"wexport/internal/templates"
	handlers "wexport/internal/transport/http"
)

// BuildTime is set at compile time
var BuildTime = "unknown"

// MaintenanceInterval is how often download keys are swept and old exports removed
const MaintenanceInterval = 10 * time.Minute

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Logger        *slog.Logger
	DB            *db.DB
	Router        *chi.Mux
	Server        *http.Server
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.ExportMetrics
	Downloads     *downloads.Registry
	Services      *ServiceContainer
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Export    *services.ExportService
	Import    *services.ImportService
	Health    *services.HealthService
	Templates *templates.Manager
}

// New creates a new application instance with dependency injection.
// A nil logger is replaced by one built from cfg.Logging.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		var err error
		if logger, err = infrastructure.InitializeLogger(cfg.Logging); err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateExportMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create export metrics: %w", err)
	}

	database, err := db.Open(ctx, paths.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		DB:            database,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		Downloads:     downloads.NewRegistry(cfg.Export.DownloadTTL, logger),
	}

	app.initializeServices()

	if err := app.setupRouter(); err != nil {
		database.Close()
		return nil, err
	}
	app.createServer()

	logger.Info("Application initialized",
		slog.String("database", paths.Database),
		slog.String("exports_dir", paths.ExportsDir),
		slog.Int("port", cfg.Server.Port))

	return app, nil
}

// initializeServices wires repositories into the services
func (a *Application) initializeServices() {
	fm := files.NewManager(a.Paths.ExportsDir, a.Logger)

	a.Services = &ServiceContainer{
		Export: services.NewExportService(
			a.Config.Export,
			db.NewOrderSource(a.DB),
			db.NewExportLogRepository(a.DB),
			fm,
			a.Downloads,
			a.Metrics,
			a.Logger,
		),
		Import: services.NewImportService(
			importer.New(config.MaxImportFileSize, a.Logger),
			a.Metrics,
			a.Logger,
		),
		Health: services.NewHealthService(
			config.AppVersion,
			BuildTime,
			a.Paths.ExportsDir,
			a.DB,
			a.Logger,
		),
		Templates: templates.NewManager(
			db.NewTemplateRepository(a.DB),
			a.Logger,
			templates.WithNormalizer(exporter.NewNormalizer(a.Config.Export)),
		),
	}
}

// setupRouter configures the HTTP router with all routes and middleware
func (a *Application) setupRouter() error {
	tokens, err := a.Config.Security.Tokens()
	if err != nil {
		return err
	}

	r := chi.NewRouter()

	errorHandler := apierrors.NewErrorHandler(a.Logger, false)
	errorMiddleware := apierrors.NewErrorMiddleware(errorHandler, a.Logger)

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics).Handler)
	r.Use(errorMiddleware.Handler)
	r.Use(customMiddleware.SecurityHeaders)

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	r.Handle("/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP))

	exportHandler := handlers.NewExportHandler(a.Services.Export, a.Logger, errorHandler)

	// Public: health probes and key-authenticated downloads
	r.Mount("/api/health", handlers.NewHealthHandler(a.Services.Health, a.Logger).Routes())
	r.Mount(strings.TrimSuffix(handlers.DownloadPath, "/"), exportHandler.DownloadRoutes())

	r.Group(func(r chi.Router) {
		if a.Config.Security.RateLimit.Enabled {
			limiter := customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
				errorHandler,
			)
			r.Use(limiter.Handler)
		}
		r.Use(customMiddleware.RequireCapability(
			customMiddleware.NewTokenAuthorizer(tokens),
			customMiddleware.CapabilityManageStore,
			a.Logger,
			errorHandler,
		))
		if a.Config.Server.ExportTimeout > 0 {
			r.Use(customMiddleware.Timeout(a.Config.Server.ExportTimeout))
		}

		r.Mount("/api/export", exportHandler.Routes())
		r.Mount("/api/templates", handlers.NewTemplateHandler(a.Services.Templates, a.Services.Export, a.Logger, errorHandler).Routes())
		r.Mount("/api/import", handlers.NewImportHandler(a.Services.Import, a.Logger, errorHandler).Routes())
	})

	a.Router = r
	return nil
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start serves HTTP and runs the background janitors until ctx is done
// or one of them fails, then shuts the server down gracefully.
func (a *Application) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("Starting HTTP server", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
		defer cancel()
		a.Logger.Info("Shutting down HTTP server")
		return a.Server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return a.Downloads.RunJanitor(ctx, MaintenanceInterval)
	})

	g.Go(func() error {
		return a.Services.Export.RunMaintenance(ctx, MaintenanceInterval)
	})

	return g.Wait()
}

// Stop releases telemetry providers and the database
func (a *Application) Stop(ctx context.Context) error {
	var errs []error

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	a.Logger.Info("Application stopped")
	return errors.Join(errs...)
}

// Run starts the application and blocks until SIGINT or SIGTERM
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := a.Start(ctx)

	stopCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := a.Stop(stopCtx); err != nil {
		a.Logger.Error("Shutdown error", slog.String("error", err.Error()))
	}
	return runErr
}
