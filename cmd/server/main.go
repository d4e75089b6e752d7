package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"shop_back_end/internal/audit"
	"shop_back_end/internal/cache"
	"shop_back_end/internal/config"
	"shop_back_end/internal/database"
	"shop_back_end/internal/logger"
	"shop_back_end/internal/metrics"
	"shop_back_end/internal/middleware"
	"shop_back_end/internal/notify"
	"shop_back_end/internal/routes"
	"shop_back_end/internal/services"
	"shop_back_end/internal/store"
	"shop_back_end/internal/store/memory"
	"shop_back_end/internal/store/postgres"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(logger.Options{Service: "shop_back_end", Env: cfg.Env, Level: cfg.LogLevel})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	rdb, err := database.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	var recorder audit.Recorder = audit.NewLogRecorder(log)
	session, err := database.ConnectScylla(cfg)
	if err != nil {
		return err
	}
	if session != nil {
		defer session.Close()
		sr := audit.NewScyllaRecorder(session, log)
		if err := sr.EnsureTable(ctx); err != nil {
			return err
		}
		defer sr.Close()
		recorder = sr
	}

	notifier, err := notify.New(cfg, log)
	if err != nil {
		return err
	}

	m := metrics.New()
	events := cache.NewCartEvents(rdb)

	cartSvc := services.NewCartService(st, events, log)
	checkoutSvc := services.NewCheckoutService(st, log,
		services.WithPublisher(events),
		services.WithNotifier(notifier),
		services.WithObserver(m),
	)
	authSvc := services.NewAuthService(st, []byte(cfg.JWTSecret), cfg.JWTExpiresIn, log)
	catalogSvc := services.NewCatalogService(st, cache.NewProductCache(rdb), log)

	if cfg.AdminUsername != "" {
		if _, err := authSvc.EnsureAdmin(ctx, services.RegisterInput{
			Username: cfg.AdminUsername,
			Email:    cfg.AdminEmail,
			Password: cfg.AdminPassword,
		}); err != nil {
			return err
		}
	}

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestLogger(log),
		middleware.Metrics(m),
		cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	)
	routes.RegisterRoutes(r, routes.Deps{
		Store:     st,
		Cart:      cartSvc,
		Checkout:  checkoutSvc,
		Orders:    services.NewOrderService(st),
		Catalog:   catalogSvc,
		Auth:      authSvc,
		JWTSecret: []byte(cfg.JWTSecret),
		Limiter:   cache.NewRateLimiter(rdb),
		Events:    events,
		Audit:     recorder,
		Metrics:   m,
		WSOrigins: cfg.CORSOrigins,
		Logger:    log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "port", cfg.Port, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
	}
	checkoutSvc.Drain()
	return nil
}

func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (store.Store, error) {
	if cfg.StorageDriver == "memory" {
		log.Warn("using the in-memory store, data is lost on restart")
		return memory.New(), nil
	}

	pool, err := database.ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	st := postgres.New(pool)
	if err := st.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return st, nil
}
