package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"tabprep/internal/artifacts"
	"tabprep/internal/config"
	"tabprep/internal/errors"
	"tabprep/internal/exporter"
	"tabprep/internal/infrastructure"
	"tabprep/internal/loader"
	customMiddleware "tabprep/internal/middleware"
	"tabprep/internal/preprocess"
	"tabprep/internal/services"
	handlers "tabprep/internal/transport/http"
	"tabprep/pkg/contracts"
)

// AppName identifies the service in startup logs.
const AppName = "tabprep"

// systemMetricsInterval is how often runtime statistics are published.
const systemMetricsInterval = 30 * time.Second

// Application represents the main application container
type Application struct {
	Config          *config.Config
	Router          *chi.Mux
	Server          *http.Server
	Loader          *loader.Loader
	ArtifactStore   *artifacts.Store
	Exporter        *exporter.MatrixExporter
	PipelineService *services.PipelineService
	HealthService   *services.HealthService
	PipelineMetrics *infrastructure.PipelineMetrics
	SystemMetrics   *infrastructure.SystemMetricsCollector
	Logger          *slog.Logger
	OTelProviders   *infrastructure.OTelProviders
}

// NewApplication creates a new application instance with dependency injection
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return NewApplicationWithConfig(cfg, logger)
}

// NewApplicationWithConfig builds an application from an explicit configuration
// and logger. Tests use this to bypass the config file and environment lookup.
func NewApplicationWithConfig(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version))

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	store, err := artifacts.NewStore(a.Config.Paths.ArtifactsDir, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize artifact store: %w", err)
	}
	a.ArtifactStore = store

	a.Loader = loader.New(a.Logger, loader.Config{
		MissingMarkers: a.Config.Pipeline.MissingMarkers,
	})

	a.Exporter = exporter.NewMatrixExporter(
		exporter.NewCSVWriter(a.Config.Paths.OutputDir, a.Logger),
		a.Logger,
	)

	pipelineService := services.NewPipelineService(
		a.Loader,
		a.ArtifactStore,
		a.Exporter,
		a.Config.Pipeline,
		a.Logger,
	)

	// Stage-level tracing and run metrics for every fit and transform
	tracer, err := preprocess.NewPipelineTracer(a.OTelProviders)
	if err != nil {
		a.Logger.Warn("pipeline tracer unavailable, runs will not be traced",
			slog.String("error", err.Error()))
	} else {
		pipelineService.SetTracer(tracer)
	}

	metrics, err := infrastructure.CreatePipelineMetrics(a.OTelProviders.Meter)
	if err != nil {
		a.Logger.Warn("pipeline metrics unavailable",
			slog.String("error", err.Error()))
	} else {
		pipelineService.SetMetrics(metrics)
		a.PipelineMetrics = metrics
	}

	a.PipelineService = pipelineService

	systemMetrics, err := infrastructure.NewSystemMetricsCollector(a.OTelProviders.Meter, systemMetricsInterval)
	if err != nil {
		a.Logger.Warn("system metrics unavailable",
			slog.String("error", err.Error()))
	} else {
		a.SystemMetrics = systemMetrics
	}

	a.HealthService = services.NewHealthService(
		contracts.Version,
		contracts.BuildTime,
		a.Config.Paths,
		a.ArtifactStore,
		a.Logger,
	)

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// RequestID and RealIP run for every route, including /metrics
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	// API routes carry the full middleware stack
	r.Group(func(r chi.Router) {
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
		if err != nil {
			a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}

		r.Use(customMiddleware.PipelineMetricsMiddleware(a.PipelineMetrics))

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)

		r.Use(customMiddleware.CORS(a.getCORSConfig()))

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	// Prometheus metrics endpoint sits outside the middleware group
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		errorHandler := errors.NewErrorHandler(a.Logger, a.Config.Logging.Development)
		validator := customMiddleware.NewValidationMiddleware(a.Logger, errorHandler)

		// Health and artifact endpoints use the standard request timeout
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

			healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
			r.Mount("/health", healthHandler.Routes())
			r.Get("/version", healthHandler.Version)

			artifactHandler := handlers.NewArtifactHandler(a.ArtifactStore, a.Logger, errorHandler)
			r.Mount("/artifacts", artifactHandler.Routes())
		})

		// Pipeline routes manage their own longer timeout internally.
		// The body gate caps request size and rejects malformed JSON
		// before the handlers decode anything.
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.ContentTypeValidator("application/json"))
			r.Use(validator.ValidateRequest)

			pipelineHandler := handlers.NewPipelineHandler(a.PipelineService, validator, a.Logger, errorHandler)
			r.Mount("/pipeline", pipelineHandler.Routes())
		})
	})
}

// getCORSConfig returns CORS configuration based on environment
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	isDevelopment := a.isDevelopmentMode()

	cfg := customMiddleware.CORSConfig{
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-CSRF-Token",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
		},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}

	if isDevelopment {
		cfg.AllowedOrigins = []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			"http://localhost:8080",
			"http://127.0.0.1:8080",
		}
		a.Logger.Info("CORS configured for development mode",
			slog.Any("allowed_origins", cfg.AllowedOrigins))
	} else {
		cfg.AllowedOrigins = []string{
			"http://localhost:8080",
			"http://127.0.0.1:8080",
		}

		if a.Config.Security.EnableCORS && len(a.Config.Security.AllowedOrigins) > 0 {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, a.Config.Security.AllowedOrigins...)
		}

		a.Logger.Info("CORS configured for production mode",
			slog.Any("allowed_origins", cfg.AllowedOrigins))
	}

	return cfg
}

// isDevelopmentMode detects if we're running in development mode
func (a *Application) isDevelopmentMode() bool {
	if env := os.Getenv("GO_ENV"); env == "development" {
		return true
	}
	if env := os.Getenv("TABPREP_ENV"); env == "development" {
		return true
	}
	return a.Config.Logging.Development
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the application
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	a.Logger.InfoContext(ctx, "Application paths",
		slog.String("data_dir", a.Config.Paths.DataDir),
		slog.String("artifacts_dir", a.Config.Paths.ArtifactsDir),
		slog.String("output_dir", a.Config.Paths.OutputDir),
		slog.String("logs_dir", a.Config.Paths.LogsDir))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			// Signal shutdown through context instead of os.Exit
			cancel()
		}
	}()

	if a.SystemMetrics != nil {
		go a.SystemMetrics.Start(ctx)
	}

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))

	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	if a.SystemMetrics != nil {
		a.SystemMetrics.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "Server stopped unexpectedly")
	}

	// Graceful shutdown
	return a.Stop(context.Background())
}

// performStartupHealthCheck verifies the configured directories are writable
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var warnings []string

	directories := map[string]string{
		"Data":      a.Config.Paths.DataDir,
		"Artifacts": a.Config.Paths.ArtifactsDir,
		"Output":    a.Config.Paths.OutputDir,
		"Logs":      a.Config.Paths.LogsDir,
	}

	for name, dir := range directories {
		testFile := filepath.Join(dir, ".write_test")
		if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", name, dir))
		} else {
			os.Remove(testFile)
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}
