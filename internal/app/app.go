package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"almanac/internal/calendar"
	"almanac/internal/config"
	"almanac/internal/events"
	"almanac/internal/infrastructure"
	custommw "almanac/internal/middleware"
	"almanac/internal/marketdata"
	"almanac/internal/marketdata/barcache"
	"almanac/internal/services"
	transport "almanac/internal/transport/http"
)

// Version is the application version, overridable at build time
var Version = "dev"

// Application wires configuration, logging, observability, the bar
// source stack and the HTTP server together. Every collaborator is
// constructed here and passed down; nothing is global.
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	Router        chi.Router
	Server        *http.Server
	OTelProviders *infrastructure.OTelProviders
	QueryService  *services.QueryService

	closeLogger func() error
}

// NewApplication builds a fully wired application from configuration
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, closeLogger, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	slog.SetDefault(logger)

	providers, err := infrastructure.InitializeOTel(nil, logger)
	if err != nil {
		closeLogger()
		return nil, fmt.Errorf("initializing observability: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
		closeLogger:   closeLogger,
	}

	if err := app.initializeServices(); err != nil {
		closeLogger()
		return nil, err
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the bar source stack and the query service
func (a *Application) initializeServices() error {
	source, err := a.buildSource()
	if err != nil {
		return err
	}

	cal := calendar.NewWeekendCalendar(a.Config.Events.Holidays)

	var eventCal events.Calendar
	if path := a.Config.Events.CalendarFile; path != "" {
		loaded, err := events.LoadCalendar(path)
		if err != nil {
			return fmt.Errorf("loading event calendar: %w", err)
		}
		eventCal = loaded
	}

	a.QueryService = services.NewQueryService(source, cal, eventCal, a.Config.Engine, a.Logger)

	if a.OTelProviders.Meter != nil {
		metrics, err := infrastructure.CreateEngineMetrics(a.OTelProviders.Meter)
		if err != nil {
			return fmt.Errorf("creating engine metrics: %w", err)
		}
		a.QueryService.WithMetrics(metrics)
	}

	return nil
}

// buildSource assembles CSV loading, chunked fetching and the
// configured cache chain into one BarSource.
func (a *Application) buildSource() (marketdata.BarSource, error) {
	var source marketdata.BarSource = marketdata.NewCSVSource(a.Config.Data.CSVDir, a.Logger)

	loader := marketdata.NewChunkedLoader(source, a.Logger)
	if a.Config.Data.ChunkOverlapDays > 0 {
		loader.SetChunking(1, a.Config.Data.ChunkOverlapDays)
	}
	loader.SetConcurrency(a.Config.Data.ChunkConcurrency)
	source = loader

	backends, err := a.buildCacheBackends()
	if err != nil {
		return nil, err
	}
	if len(backends) > 0 {
		chain := barcache.NewChain(a.Logger, backends...)
		source = barcache.NewCachingSource(source, chain, a.Logger)
		a.Logger.Info("bar cache configured", "backends", chain.Backends())
	}

	return source, nil
}

func (a *Application) buildCacheBackends() ([]barcache.Backend, error) {
	var backends []barcache.Backend
	for _, name := range a.Config.Data.CacheBackends {
		switch name {
		case "memory":
			backends = append(backends, barcache.NewMemory())
		case "parquet":
			p, err := barcache.NewParquet(a.Config.Data.CacheDir)
			if err != nil {
				return nil, fmt.Errorf("initializing parquet cache: %w", err)
			}
			backends = append(backends, p)
		case "noop":
			backends = append(backends, barcache.Noop{})
		default:
			return nil, fmt.Errorf("unknown cache backend %q", name)
		}
	}
	return backends, nil
}

// setupRouter builds the chi router with the full middleware stack
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)

	r.Group(func(r chi.Router) {
		otelMiddleware, err := custommw.NewOTelMiddleware(a.OTelProviders)
		if err != nil {
			a.Logger.Error("creating observability middleware failed", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}

		r.Use(custommw.StructuredLogger(a.Logger))
		r.Use(custommw.Recoverer(a.Logger))
		r.Use(custommw.SecurityHeaders)
		r.Use(custommw.Compress(5))

		if a.Config.Security.EnableCORS {
			r.Use(custommw.CORS(custommw.CORSConfig{
				AllowedOrigins: a.Config.Security.AllowedOrigins,
			}))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(custommw.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.Route("/api/v1", func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))
			r.Use(custommw.Timeout(a.Config.Server.QueryTimeout, a.Logger))

			transport.NewStatsHandler(a.QueryService, a.Logger).RegisterRoutes(r)
			transport.NewSymbolsHandler(a.Config.Data.CSVDir, a.Logger).RegisterRoutes(r)
			transport.NewHealthHandler(Version).RegisterRoutes(r)
		})
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

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

// Start starts the HTTP server. On listener failure the cancel function
// is invoked so the caller's run loop unwinds.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "starting application",
		slog.String("version", Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully shuts the application down
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "stopping application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var firstErr error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		firstErr = fmt.Errorf("server shutdown: %w", err)
	}

	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil && firstErr == nil {
		firstErr = err
	}

	if a.closeLogger != nil {
		if err := a.closeLogger(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}

	return firstErr
}

// Run starts the application and blocks until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.Logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}
