package app

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"retailetl/internal/config"
	apierrors "retailetl/internal/errors"
	"retailetl/internal/infrastructure"
	customMiddleware "retailetl/internal/middleware"
	"retailetl/internal/services"
	handlers "retailetl/internal/transport/http"
)

var (
	// BuildTime is set at compile time
	BuildTime = time.Now().Format(time.RFC3339)
	// BuildID is a unique identifier for this build
	BuildID = generateBuildID()
)

func generateBuildID() string {
	h := sha256.New()
	h.Write([]byte(config.AppVersion))
	h.Write([]byte(time.Now().Format("2006-01-02")))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	LogCloser     io.Closer
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	ErrorHandler  *apierrors.ErrorHandler
	ETLService    *services.ETLService
	HealthService *services.HealthService
	FrontendFS    fs.FS // Embedded upload page
}

// NewApplication loads configuration and builds the application.
func NewApplication(frontendFS fs.FS) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return New(cfg, frontendFS)
}

// New builds the application from an already loaded configuration.
func New(cfg *config.Config, frontendFS fs.FS) (*Application, error) {
	logger, closer, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("build_id", BuildID))

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		LogCloser:     closer,
		OTelProviders: providers,
		Metrics:       metrics,
		FrontendFS:    frontendFS,
	}

	if err := app.initializeServices(); err != nil {
		closer.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.setupRouter(); err != nil {
		closer.Close()
		return nil, fmt.Errorf("failed to set up routes: %w", err)
	}

	app.createServer()

	return app, nil
}

// initializeServices creates the services and the shared error handler.
func (a *Application) initializeServices() error {
	a.ErrorHandler = apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)

	etl, err := services.NewETLService(a.Config.Pipeline, a.OTelProviders, a.Metrics, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create ETL service: %w", err)
	}
	a.ETLService = etl

	a.HealthService = services.NewHealthService(config.AppVersion, BuildTime, etl, a.Logger)

	a.Logger.Info("Services initialized",
		slog.String("conflict_policy", a.Config.Pipeline.ConflictPolicy),
		slog.Int64("max_concurrent_runs", etl.Capacity()),
		slog.Int64("max_upload_bytes", a.Config.Pipeline.MaxUploadBytes))
	return nil
}

// setupRouter builds the router. Middleware order is
// RequestID → RealIP → OTel → Logger → Recoverer → headers → CORS → rate limit.
func (a *Application) setupRouter() error {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	// Scrapes stay outside the instrumented group.
	if a.OTelProviders.MetricsHandler != nil {
		r.Handle(config.MetricsEndpoint, a.OTelProviders.MetricsHandler)
	}

	var pageErr error
	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(apierrors.RecoveryMiddleware(a.ErrorHandler))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
				a.ErrorHandler,
			).Handler)
		}

		a.setupAPIRoutes(r)
		pageErr = a.setupHTMLRoutes(r)
	})
	if pageErr != nil {
		return pageErr
	}

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.Router = r
	return nil
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	processHandler := handlers.NewProcessHandler(a.ETLService, a.Config.Pipeline.MaxUploadBytes, a.Logger, a.ErrorHandler)
	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)

	process := func(r chi.Router) {
		r.Use(customMiddleware.ContentTypeValidator(a.ErrorHandler, "multipart/form-data"))
		r.Use(middleware.Timeout(a.Config.Server.WriteTimeout))
		r.Post("/", processHandler.Process)
	}

	// The upload form posts to the bare path; API clients use the versioned one.
	r.Route(config.ProcessEndpoint, process)
	r.Route(config.APIBasePath+config.ProcessEndpoint, process)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)
	})
}

// setupHTMLRoutes serves the upload page for every other GET. Without an
// embedded frontend only the API is served.
func (a *Application) setupHTMLRoutes(r chi.Router) error {
	if a.FrontendFS == nil {
		a.Logger.Warn("No frontend filesystem, serving API only")
		return nil
	}

	page, err := handlers.NewPageHandler(a.FrontendFS, handlers.IndexPage{
		Title:          config.AppName,
		Version:        config.AppVersion,
		ProcessPath:    config.ProcessEndpoint,
		SalesField:     config.SalesFileField,
		InventoryField: config.InventoryFileField,
		MaxUploadMB:    a.Config.Pipeline.MaxUploadBytes >> 20,
		OutputFilename: config.OutputFilename,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to load upload page: %w", err)
	}

	r.With(middleware.Compress(5, "text/html")).Get("/*", page.ServeIndex)
	r.Head("/*", page.ServeIndex)
	return nil
}

// getCORSConfig returns the CORS policy for the configured origins.
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"Content-Disposition",
			"X-Request-ID",
			handlers.HeaderRunID,
			handlers.HeaderGridRows,
			handlers.HeaderSeriesCount,
		},
		MaxAge: 300,
		Logger: a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Address(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts serving in the background. A listener failure cancels ctx
// through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("address", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", a.Server.Addr))
	return nil
}

// Stop gracefully stops the application. In-flight runs finish before the
// server returns, bounded by the shutdown timeout.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application",
		slog.Int64("active_runs", a.ETLService.ActiveRuns()))

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
	defer cancel()

	var shutdownErr error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		shutdownErr = fmt.Errorf("server shutdown error: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	if a.LogCloser != nil {
		a.LogCloser.Close()
	}
	return shutdownErr
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.ErrorContext(ctx, "Server stopped unexpectedly")
	}

	return a.Stop(ctx)
}
