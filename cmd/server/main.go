package main // Entry point package

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"                   // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // Recover, CORS, request logging

	"github.com/iliyamo/scholrhub/internal/config"
	"github.com/iliyamo/scholrhub/internal/database"
	"github.com/iliyamo/scholrhub/internal/handler"
	"github.com/iliyamo/scholrhub/internal/lib/sl"
	"github.com/iliyamo/scholrhub/internal/metrics"
	"github.com/iliyamo/scholrhub/internal/middleware"
	"github.com/iliyamo/scholrhub/internal/queue"
	"github.com/iliyamo/scholrhub/internal/repository"
	"github.com/iliyamo/scholrhub/internal/router"
	"github.com/iliyamo/scholrhub/internal/service"
	"github.com/iliyamo/scholrhub/internal/storage"
	"github.com/iliyamo/scholrhub/internal/upload"
)

func main() {
	config.LoadDotEnv()                    // pick up a local .env when present
	cfg := config.Load()                   // Load environment config
	log := sl.New(os.Stdout, cfg.LogLevel) // JSON logs on stdout
	log = log.With(slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", sl.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	// ---- Persistence ----
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()

	migrateCtx, cancel := context.WithTimeout(ctx, time.Minute)
	err = database.Migrate(migrateCtx, db)
	cancel()
	if err != nil {
		return err
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	resources := repository.NewResourceRepo(db)
	notices := repository.NewNoticeRepo(db)
	settings := repository.NewSettingRepo(db)

	// ---- Redis (optional) ----
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable, rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}
	rlCfg := config.LoadRateLimitConfig()
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb, log)

	// ---- Files ----
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	uploads := upload.New(store, cfg.Upload)

	// ---- Services ----
	m := metrics.New()
	lifecycle := service.NewResourceLifecycle(resources, store, log, m)
	stats := service.NewStatsAggregator(resources, users, notices, settings)

	// ---- Moderation events ----
	publisher := queue.NewPublisher(cfg.RabbitMQURL, log)
	if cfg.RabbitMQURL != "" {
		go func() {
			if err := queue.StartModerationConsumer(ctx, cfg.RabbitMQURL, queue.DefaultLogPath, log); err != nil &&
				!errors.Is(err, context.Canceled) {
				log.Error("moderation consumer stopped", sl.Err(err))
			}
		}()
	} else {
		log.Info("RABBITMQ_URL not set, moderation events disabled")
	}

	// ---- HTTP ----
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: cfg.CORSOrigins}))
	e.Use(requestLogger(log))
	e.Use(middleware.NewTokenBucket(rlCfg, rdb, log))

	if ls, ok := store.(*storage.LocalStore); ok {
		e.Static(ls.Prefix(), ls.Dir())
	}

	authMW := middleware.JWTAuth(cfg.JWTSecret, users)
	uploadLimit := middleware.NewTokenBucket(rlCfg.ForUploads(), rdb, log)

	router.RegisterRoutes(e, handler.NewHealthHandler(db, rdb), m.Handler())
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, log), authMW)
	router.RegisterResources(e,
		handler.NewResourceHandler(lifecycle, uploads, store, cache, publisher, log),
		authMW, cache, uploadLimit, uploads.MaxBytes())
	router.RegisterNotices(e, handler.NewNoticeHandler(notices, cache, log), authMW, cache)
	statsHandler := handler.NewStatsHandler(stats, log)
	router.RegisterAdmin(e, handler.NewAdminHandler(cfg, users, settings, lifecycle, cache, log), statsHandler, authMW)
	router.RegisterStats(e, statsHandler, authMW)

	addr := ":" + cfg.Port // Address string with port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", slog.String("addr", addr), slog.String("storage", cfg.Storage.Driver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// requestLogger writes one slog line per request.
func requestLogger(log *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
			}
			if id, ok := middleware.UserID(c); ok {
				attrs = append(attrs, slog.Uint64("user_id", id))
			}
			level := slog.LevelInfo
			if v.Error != nil {
				level = slog.LevelError
				attrs = append(attrs, sl.Err(v.Error))
			}
			log.LogAttrs(context.Background(), level, "request", attrs...)
			return nil
		},
	})
}
