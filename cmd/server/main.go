package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/merchant-inventory/internal/config"
	"github.com/iliyamo/merchant-inventory/internal/database"
	"github.com/iliyamo/merchant-inventory/internal/handler"
	"github.com/iliyamo/merchant-inventory/internal/logger"
	"github.com/iliyamo/merchant-inventory/internal/metrics"
	"github.com/iliyamo/merchant-inventory/internal/middleware"
	"github.com/iliyamo/merchant-inventory/internal/queue"
	"github.com/iliyamo/merchant-inventory/internal/repository"
	"github.com/iliyamo/merchant-inventory/internal/router"
	"github.com/iliyamo/merchant-inventory/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zl.Sync() }()
	zap.ReplaceGlobals(zl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		zl.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close()
	uow := database.NewUnitOfWork(db)

	// Repositories
	products := repository.NewProductRepo(db)
	merchants := repository.NewMerchantRepo(db)
	allocations := repository.NewMerchantProductRepo(db)
	transactions := repository.NewTransactionRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	// Sale events: best effort, never on the request path.
	var events service.EventPublisher
	broker := config.LoadBrokerConfig()
	if broker.Enabled {
		pub := queue.NewPublisher(broker.URL, zl)
		pub.Start(ctx)
		defer pub.Close()
		events = pub

		go func() {
			sink := queue.NewSalesLog(broker.SalesLogDir)
			if err := queue.StartSalesConsumer(ctx, broker.URL, sink, zl); err != nil && !errors.Is(err, context.Canceled) {
				zl.Error("sales consumer stopped", zap.Error(err))
			}
		}()
	}

	// Services
	allocSvc := service.NewAllocationService(uow, products, merchants, allocations, cfg.Allocation)
	salesSvc := service.NewTransactionService(uow, merchants, allocations, transactions,
		service.KeeperAuthorizer, cfg.TaxRate, events)
	catalogSvc := service.NewCatalogService(products, merchants)

	// Redis-backed guards degrade to pass-throughs without Redis.
	rdb := config.NewRedisClient()
	optional := map[string]handler.Pinger{}
	if rdb != nil {
		defer rdb.Close()
		optional["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	} else {
		zl.Warn("redis unavailable; rate limiting and response cache disabled")
	}
	guards := router.Guards{
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID(zl))
	e.Use(middleware.AccessLog())
	e.Use(metrics.Middleware())

	router.Register(e, router.Handlers{
		Health:       handler.Health(db, optional),
		Auth:         handler.NewAuthHandler(cfg, users, tokens),
		Catalog:      handler.NewCatalogHandler(catalogSvc),
		Allocations:  handler.NewMerchantProductHandler(allocSvc),
		Transactions: handler.NewTransactionHandler(salesSvc, catalogSvc),
	}, guards, cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("shutdown failed", zap.Error(err))
	}
}
