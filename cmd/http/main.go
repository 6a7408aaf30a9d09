package main

import (
	"context"
	"expvar"
	"log"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/inkstream/collab/internal/infrastructure/auth"
	"github.com/inkstream/collab/internal/infrastructure/configs"
	"github.com/inkstream/collab/internal/infrastructure/persistence"
	"github.com/inkstream/collab/internal/infrastructure/ratelimiter"
	"github.com/inkstream/collab/internal/infrastructure/tracing"
	"github.com/inkstream/collab/internal/infrastructure/ws"
	"github.com/inkstream/collab/internal/presentation/api"
	"github.com/inkstream/collab/internal/presentation/handler/collab"
	"github.com/inkstream/collab/internal/presentation/handler/health"
)

func main() {
	logger := zap.Must(zap.NewProduction()).Sugar()
	defer logger.Sync()

	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.Tracing.Enabled {
		shutdownTracer, err := tracing.InitTracer(tracing.Config{
			ServiceName: cfg.Tracing.ServiceName,
			Environment: "production",
			Endpoint:    cfg.Tracing.Endpoint,
		})
		if err != nil {
			logger.Fatalw("failed to init tracer", "error", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTracer(ctx)
		}()
	}

	db, err := persistence.Open(cfg.Database.DSN)
	if err != nil {
		logger.Fatalw("failed to open database", "error", err)
	}
	if err := persistence.Migrate(db); err != nil {
		logger.Fatalw("failed to run migrations", "error", err)
	}

	chapterStore := persistence.NewChapterStore(db)
	verifier := auth.NewTokenVerifier([]byte(cfg.Auth.Secret), cfg.Auth.Issuer)

	core := ws.NewCore(chapterStore, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go core.Run(ctx)

	collabHandler := collab.NewHandler(verifier, core, logger, cfg.Collab)
	healthHandler := health.NewHandler()
	rateLimiter := ratelimiter.NewFixedWindowRateLimiter(cfg.RateLimiter.RequestsPerTimeFrame, cfg.RateLimiter.TimeFrame)

	app := api.NewApplication(*cfg, collabHandler, healthHandler, logger, rateLimiter)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.Mount()
	logger.Fatal(app.Run(mux))
}
