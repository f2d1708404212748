package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/beamline/beamline/internal/activity"
	"github.com/beamline/beamline/internal/ai"
	"github.com/beamline/beamline/internal/auth"
	"github.com/beamline/beamline/internal/blob"
	"github.com/beamline/beamline/internal/cache"
	"github.com/beamline/beamline/internal/config"
	"github.com/beamline/beamline/internal/jobs"
	"github.com/beamline/beamline/internal/logging"
	"github.com/beamline/beamline/internal/notify"
	"github.com/beamline/beamline/internal/quickbooks"
	"github.com/beamline/beamline/internal/service"
	"github.com/beamline/beamline/internal/store"
	"github.com/beamline/beamline/internal/web/api"
	"github.com/beamline/beamline/internal/web/ratelimit"
	"github.com/beamline/beamline/internal/web/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server and background workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func serve() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(os.Getenv("BEAMLINE_ENV"))
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := context.Background()

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	st := store.New(db)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	signSecret := cfg.Blob.SignSecret
	if signSecret == "" {
		signSecret = cfg.Auth.JWTSecret
	}
	blobs, err := blob.NewFilesystemStore(cfg.Blob.Dir, cfg.Blob.BaseURL, []byte(signSecret))
	if err != nil {
		return err
	}

	gemini, err := ai.NewGeminiClient(ctx, cfg.AI.APIKey, cfg.AI.Model)
	if err != nil {
		return err
	}

	qbClient := quickbooks.NewClient(quickbooks.Config{
		ClientID:     cfg.QuickBooks.ClientID,
		ClientSecret: cfg.QuickBooks.ClientSecret,
		RedirectURL:  cfg.QuickBooks.RedirectURL,
	}, http.DefaultClient)

	hub := notify.NewHub(ctx, logger)
	go hub.Run()

	queue := jobs.NewQueue(db)
	deps := service.Deps{
		Store:     st,
		Cache:     cache.NewRedisCache(rdb, cache.DefaultConfig()),
		Blobs:     blobs,
		Queue:     queue,
		Recorder:  activity.NewRecorder(st.Activity, logger),
		Notifier:  notify.NewNotifier(st.Notifications, hub, logger),
		Generator: ai.NewGenerator(gemini),
		QBClient:  qbClient,
		QBSyncer:  quickbooks.NewSyncer(qbClient, logger),
		Logger:    logger,
	}
	services := service.New(deps)

	pool := jobs.NewWorkerPool(queue, cfg.Jobs.Workers, cfg.Jobs.PollInterval, logger)
	services.RegisterJobHandlers(pool, deps)
	pool.Start(ctx)

	ticker := jobs.NewScheduleTicker(queue, st.Schedules, cfg.Jobs.TickInterval, logger)
	ticker.Start(ctx)

	var limiter ratelimit.RateLimiter
	var bucket *ratelimit.TokenBucket
	if cfg.RateLimit.Enabled {
		limiter, err = ratelimit.NewRedisRateLimiter(rdb, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		if err != nil {
			logger.Warn("redis rate limiter unavailable, using in-memory token bucket", zap.Error(err))
			bucket = ratelimit.NewTokenBucket(cfg.RateLimit.Requests, cfg.RateLimit.Window)
			limiter = bucket
		}
	}

	apiCfg := api.Config{
		Services:   services,
		Store:      st,
		Tokens:     auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Sessions:   auth.NewRedisSessionStore(rdb),
		SessionTTL: cfg.Auth.SessionTTL,
		Hub:        hub,
		Limiter:    limiter,
		Logger:     logger,
	}
	app := api.New(apiCfg)

	serverCfg := server.DefaultConfig(app.Handler(apiCfg))
	serverCfg.Address = cfg.Server.Addr()
	serverCfg.ReadTimeout = cfg.Server.ReadTimeout
	serverCfg.WriteTimeout = cfg.Server.WriteTimeout

	srv, err := server.New(serverCfg)
	if err != nil {
		return err
	}

	graceful := server.NewGracefulShutdown(srv, logger)
	graceful.RegisterHook(func(ctx context.Context) error {
		ticker.Stop()
		return nil
	})
	graceful.RegisterHook(func(ctx context.Context) error {
		pool.Stop()
		return nil
	})
	graceful.RegisterHook(func(ctx context.Context) error {
		hub.Shutdown()
		return nil
	})
	graceful.RegisterHook(func(ctx context.Context) error {
		if bucket != nil {
			return bucket.Close()
		}
		return nil
	})
	graceful.RegisterHook(func(ctx context.Context) error {
		if err := rdb.Close(); err != nil {
			return err
		}
		return st.Close()
	})

	logger.Info("beamline listening",
		zap.String("addr", cfg.Server.Addr()),
		zap.Int("workers", cfg.Jobs.Workers))
	return graceful.Start()
}

func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
