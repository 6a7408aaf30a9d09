package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/inkstream/collab/internal/infrastructure/configs"
	"github.com/inkstream/collab/internal/infrastructure/ratelimiter"
	collabHandler "github.com/inkstream/collab/internal/presentation/handler/collab"
	healthHandler "github.com/inkstream/collab/internal/presentation/handler/health"
)

type Application struct {
	config        configs.Config
	collabHandler *collabHandler.Handler
	healthHandler *healthHandler.Handler
	logger        *zap.SugaredLogger
	ratelimiter   ratelimiter.Limiter
}

func NewApplication(
	config configs.Config,
	collabHandler *collabHandler.Handler,
	healthHandler *healthHandler.Handler,
	logger *zap.SugaredLogger,
	ratelimiter ratelimiter.Limiter,
) *Application {
	return &Application{
		config:        config,
		collabHandler: collabHandler,
		healthHandler: healthHandler,
		logger:        logger,
		ratelimiter:   ratelimiter,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if app.config.RateLimiter.Enabled {
		r.Use(app.rateLimiterMiddleware)
	}
	r.Use(app.enableCors)

	r.Route("/api", func(r chi.Router) {
		r.Get("/collab", app.collabHandler.ServeHandshake)

		r.Get("/health", app.healthHandler.GetHealth)
		r.Get("/healthz", app.healthHandler.GetHealth)
		r.Get("/ready", app.healthHandler.GetHealth)
		r.Get("/live", app.healthHandler.GetHealth)
	})

	if app.config.Tracing.Enabled {
		return otelhttp.NewHandler(r, "collab-server")
	}

	return r
}

func (app *Application) Run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.config.HTTP.Host, app.config.HTTP.Port),
		Handler:      mux,
		WriteTimeout: app.config.HTTP.WriteTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", srv.Addr)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", srv.Addr)

	return nil
}
