package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/blog-backend/internal/auth"
	"github.com/iliyamo/blog-backend/internal/config"
	"github.com/iliyamo/blog-backend/internal/database"
	"github.com/iliyamo/blog-backend/internal/handler"
	"github.com/iliyamo/blog-backend/internal/logger"
	"github.com/iliyamo/blog-backend/internal/middleware"
	"github.com/iliyamo/blog-backend/internal/queue"
	"github.com/iliyamo/blog-backend/internal/repository"
	"github.com/iliyamo/blog-backend/internal/router"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, DevMode: !cfg.IsProduction()})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Open(cfg, log)
	if err != nil {
		return err
	}
	if cfg.DBAutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			return err
		}
	}

	// Redis is optional unless it holds the revocation set.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable; rate limiting and response cache disabled")
	} else {
		defer func() { _ = rdb.Close() }()
	}
	blacklist, err := newBlacklist(cfg, rdb)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	qcfg := config.LoadQueueConfig()
	events := queue.NewPublisher(qcfg)
	if qcfg.Enabled && qcfg.ConsumerEnabled {
		go func() {
			if err := queue.StartConsumer(ctx, qcfg, log.Named("consumer")); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("event consumer stopped", zap.Error(err))
			}
		}()
	}

	issuer := auth.NewIssuer(cfg.JWTSecret)
	users := handler.NewUserHandler(cfg, repository.NewUserRepo(db), issuer, blacklist, events, log)
	posts := handler.NewPostHandler(repository.NewPostRepo(db), events, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(log)

	origins := []string{"*"}
	if cfg.FrontendURL != "" {
		origins = strings.Split(cfg.FrontendURL, ",")
	}
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.Metrics())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	cacheCfg := config.LoadCacheConfig()
	router.RegisterRoutes(e)
	router.RegisterUsers(e, users, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log))
	router.RegisterPosts(e, posts, router.PostMiddleware{
		Auth:       middleware.JWTAuth(issuer, blacklist, log),
		SameUser:   middleware.RequireSameUser("userId"),
		Cache:      middleware.NewRedisCache(cacheCfg, rdb),
		PurgeCache: middleware.PurgeCache(cacheCfg, rdb, log),
	})

	addr := ":" + cfg.Port
	errc := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("db", cfg.DBDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}

// newBlacklist picks the revocation store.  The redis store is shared by all
// replicas, so it refuses to start without a reachable server.
func newBlacklist(cfg config.Config, rdb *redis.Client) (auth.Blacklist, error) {
	if cfg.RevocationStore == "redis" {
		if rdb == nil {
			return nil, errors.New("REVOCATION_STORE=redis but redis is unreachable")
		}
		return auth.NewRedisBlacklist(rdb, cfg.RevocationKey), nil
	}
	return auth.NewMemoryBlacklist(), nil
}
