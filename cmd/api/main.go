package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-productguard/internal/handler"
	"go-productguard/internal/repository"
	"go-productguard/internal/service"
	"go-productguard/internal/ws"
	"go-productguard/pkg/config"
	"go-productguard/pkg/database"
	"go-productguard/pkg/jwt"
	"go-productguard/pkg/lock"
	"go-productguard/pkg/logger"
	"go-productguard/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Config
	cfg := config.Load()

	log, err := logger.New(logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: "productguard-api",
	})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// 2. Setup Database
	db, err := database.ConnectDB(cfg.DB)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	if err := repository.Migrate(db); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	// 3. Optional Redis for the decision lock
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 10*time.Second)
	rdb, err := database.ConnectRedis(startupCtx, cfg.Redis.URL)
	cancelStartup()
	if err != nil {
		log.Warn("redis unavailable, decisions rely on the database only", zap.Error(err))
	}
	locker := lock.New(rdb, cfg.Redis.LockTTL)

	// 4. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg, cfg.Metrics.Prefix)

	// 5. Setup WebSocket Hub
	wsHub := ws.NewHub(log)
	go wsHub.Run()

	// 6. Dependency Injection (Wiring Layers)
	productRepo := repository.NewProductRepo(db, repository.CodeConfig{
		BatchSize:   cfg.Bulk.CodeBatchSize,
		MaxAttempts: cfg.Bulk.MaxCodeAttempts,
		OnCollision: m.ObserveCollision,
	})
	scanRepo := repository.NewScanRepo(db)
	companyRepo := repository.NewCompanyRepo(db)
	userRepo := repository.NewUserRepo(db)
	bulkRepo := repository.NewBulkRequestRepo(db)

	limits := service.Limits{MaxQuantity: cfg.Bulk.MaxQuantity, MaxRows: cfg.Bulk.MaxRows}
	authService := service.NewAuthService(userRepo, jwt.NewManager(cfg.JWT.Secret, cfg.JWT.ExpirationHours), log)
	services := handler.Services{
		Auth:         authService,
		Verification: service.NewVerificationService(productRepo, scanRepo, m, log),
		Bulk: service.NewBulkService(service.BulkDeps{
			DB:          db,
			BulkRepo:    bulkRepo,
			ProductRepo: productRepo,
			CompanyRepo: companyRepo,
			Locker:      locker,
			Notifier:    wsHub,
			Metrics:     m,
			Limits:      limits,
			Log:         log,
		}),
		Registry: service.NewRegistryService(service.RegistryDeps{
			DB:          db,
			ProductRepo: productRepo,
			CompanyRepo: companyRepo,
			UserRepo:    userRepo,
			Notifier:    wsHub,
			Metrics:     m,
			Limits:      limits,
			Log:         log,
		}),
		Hotspots: service.NewHotspotService(scanRepo, productRepo),
		Hub:      wsHub,
	}

	if err := authService.SeedAdmin(context.Background(), cfg.Seed.AdminEmail, cfg.Seed.AdminPassword); err != nil {
		log.Warn("admin seed failed", zap.Error(err))
	}

	// 7. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName:   cfg.Server.AppName,
		BodyLimit: 20 * 1024 * 1024,
	})

	app.Use(requestid.New())
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(logger.Middleware(log))
	app.Use(m.Middleware())
	app.Use(func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), cfg.Server.RequestTimeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		status := "ok"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.UserContext()) != nil {
			status = "degraded"
		}
		return c.JSON(fiber.Map{"status": status, "ws_clients": wsHub.ClientCount()})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	handler.Register(app, services)

	// 8. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Panic("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(15 * time.Second); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("server exited")
}
