package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/solutionspelichet/library-un/internal/config"
	apperrors "github.com/solutionspelichet/library-un/internal/errors"
	customMiddleware "github.com/solutionspelichet/library-un/internal/middleware"
	"github.com/solutionspelichet/library-un/internal/services"
	handlers "github.com/solutionspelichet/library-un/internal/transport/http"
	ws "github.com/solutionspelichet/library-un/internal/websocket"
)

// Application is the HTTP server and everything it serves
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	Components    *Components
	WebSocketHub  *ws.Hub
	HealthService *services.HealthService
	Router        *chi.Mux
	Server        *http.Server
}

// NewApplication builds the application from cfg. The websocket hub is
// started; the HTTP server is not.
func NewApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	hub := ws.NewHub(logger)
	components, err := BuildComponents(ctx, cfg, logger, hub)
	if err != nil {
		return nil, err
	}
	hub.Start()

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		Components:    components,
		WebSocketHub:  hub,
		HealthService: services.NewHealthService(config.AppVersion, components.Runs, hub, logger),
	}
	a.setupRouter()
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}
	return a, nil
}

func (a *Application) setupRouter() {
	errorHandler := apperrors.NewErrorHandler(a.Logger, false)
	r := chi.NewRouter()
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	// the upgrade needs the raw ResponseWriter
	r.Get("/ws", ws.Handler(a.WebSocketHub, a.Config.WebSocket, a.Config.Server.AllowedOrigins, a.Logger))

	if a.Components.Telemetry.PrometheusHTTP != nil {
		r.Handle("/metrics", a.Components.Telemetry.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.Telemetry(a.Components.Telemetry.Tracer, a.Components.Metrics))
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(errorHandler))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{AllowedOrigins: a.Config.Server.AllowedOrigins}))
		if rl := a.Config.Server.RateLimit; rl.Enabled {
			r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger).Handler)
		}

		runs := handlers.NewRunsHandler(a.Components.Runs, errorHandler, a.Config.Pipeline.MaxFileBytes(), a.Logger)
		health := handlers.NewHealthHandler(a.HealthService, a.Logger)

		r.Route("/api/v1", func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))
			r.Get("/health", health.HealthCheck)
			runs.Routes(r)
		})
	})

	a.Router = r
}

// Start listens on the configured port and serves in the background.
// Listener errors after startup cancel ctx through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln, cancel)
}

// Serve serves on ln in the background
func (a *Application) Serve(ctx context.Context, ln net.Listener, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "server starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("address", ln.Addr().String()),
		slog.String("sink", a.Components.Sink.Name()))

	go func() {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	a.WebSocketHub.Stop()
	if err := a.Components.Close(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
	}

	a.Logger.InfoContext(ctx, "shutdown complete")
	return errors.Join(errs...)
}

// Run serves until SIGINT, SIGTERM or a server error
func (a *Application) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}
	<-ctx.Done()
	return a.Stop(context.Background())
}
