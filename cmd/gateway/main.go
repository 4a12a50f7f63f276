package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pos-admin/internal/api"
	"pos-admin/internal/config"
	"pos-admin/internal/session"
	"pos-admin/pkg/logger"
	"pos-admin/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	client, err := api.NewClient(cfg.API.BaseURL, cfg.API.Timeout)
	if err != nil {
		log.Error("api client init failed", "err", err)
		os.Exit(1)
	}

	store, closeStore, err := openStore(rootCtx, cfg)
	if err != nil {
		log.Error("session store init failed", "err", err)
		os.Exit(1)
	}
	defer closeStore()

	sm, err := session.NewManager(rootCtx, client, store, session.Options{
		CheckInterval: cfg.Session.CheckInterval,
		ExpiryMargin:  cfg.Session.ExpiryMargin,
		Logger:        log,
	})
	if err != nil {
		log.Error("session manager init failed", "err", err)
		os.Exit(1)
	}
	defer sm.Close()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, sm, cfg)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("gateway listening", "addr", srv.Addr, "env", cfg.App.Env, "backend", cfg.API.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

// openStore builds the configured durable session store and its cleanup.
func openStore(ctx context.Context, cfg config.Config) (session.Store, func(), error) {
	noop := func() {}

	switch cfg.Session.Store {
	case config.StoreFile:
		st, err := session.NewFileStore(cfg.Session.FilePath)
		return st, noop, err

	case config.StoreRedis:
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			return nil, noop, err
		}
		st, err := session.NewRedisStore(rdb, cfg.Session.Profile)
		if err != nil {
			rdb.Close()
			return nil, noop, err
		}
		return st, func() { rdb.Close() }, nil

	case config.StorePostgres:
		db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			return nil, noop, err
		}
		st, err := session.NewPostgresStore(ctx, db, cfg.Session.Profile)
		if err != nil {
			db.Close()
			return nil, noop, err
		}
		return st, func() { db.Close() }, nil

	default:
		return nil, noop, fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}
}
