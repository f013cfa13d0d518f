package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/pos-engine/internal/application/service"
	"github.com/sangkips/pos-engine/internal/config"
	"github.com/sangkips/pos-engine/internal/domain/event"
	"github.com/sangkips/pos-engine/internal/infrastructure/database"
	"github.com/sangkips/pos-engine/internal/infrastructure/events"
	"github.com/sangkips/pos-engine/internal/infrastructure/repository"
	"github.com/sangkips/pos-engine/internal/presentation/http/handler"
	"github.com/sangkips/pos-engine/internal/presentation/http/middleware"
	"github.com/sangkips/pos-engine/internal/presentation/http/routes"
	"github.com/sangkips/pos-engine/pkg/logger"
	"github.com/sangkips/pos-engine/pkg/printer"
	"github.com/sangkips/pos-engine/pkg/utils"
	"go.uber.org/zap"
)

const idempotencyCleanupInterval = time.Hour

func main() {
	// Load configuration
	cfg := config.Load()

	zlog, err := logger.New(cfg.Log.Level, cfg.App.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	location, err := cfg.Store.Location()
	if err != nil {
		zlog.Fatal("invalid store configuration", zap.Error(err))
	}
	dayStart, err := cfg.Store.DayStartOffset()
	if err != nil {
		zlog.Fatal("invalid store configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.Open(&cfg.Database, zlog, cfg.App.Debug)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		zlog.Fatal("failed to access database handle", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := database.AutoMigrate(db); err != nil {
		zlog.Fatal("failed to run migrations", zap.Error(err))
	}
	if err := database.SeedDefaultData(ctx, db, &cfg.Store); err != nil {
		zlog.Warn("failed to seed default data", zap.Error(err))
	}

	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.ExpiryHours)

	// Initialize repositories
	tx := repository.NewTransactor(db)
	productRepo := repository.NewProductRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	cashCutRepo := repository.NewCashCutRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	bus := events.NewBus(zlog)
	bus.Subscribe("*", events.LogSubscriber(zlog.Named("events")))

	// Initialize services
	catalogService := service.NewCatalogService(productRepo, tx, bus, zlog, cfg.Store.WeightScale)
	saleService := service.NewSaleService(tx, productRepo, saleRepo, settingsRepo, bus, zlog, cfg.Store.AllowedPaymentMethods())
	cartService := service.NewCartService(catalogService, saleService, zlog, cfg.Store.CartTTL)
	defer cartService.Close()
	cashCutService := service.NewCashCutService(tx, saleRepo, cashCutRepo, bus, zlog, location, dayStart)
	settingsService := service.NewSettingsService(settingsRepo, database.DefaultSettings(&cfg.Store))

	// Initialize thermal printer
	thermalPrinter, err := printer.NewPrinterFromConfig(cfg.Printer.Type, cfg.Printer.Address)
	if err != nil {
		zlog.Warn("failed to initialize printer", zap.Error(err))
		thermalPrinter = printer.NewNullPrinter()
	}
	defer thermalPrinter.Close()
	printerService := service.NewPrinterService(thermalPrinter, saleService, settingsRepo, zlog, cfg.Printer.Type, cfg.Printer.PaperWidth)
	bus.Subscribe(event.TypeSaleCommitted, bus.Async(printerService.Subscribe))

	rateLimiter := middleware.NewOperatorRateLimiter(middleware.RateLimiterConfigFrom(cfg.RateLimit.Requests, cfg.RateLimit.Duration))
	defer rateLimiter.Close()

	handlers := &routes.Handlers{
		Health:   handler.NewHealthHandler(cfg.App.Name, sqlDB, cartService),
		Product:  handler.NewProductHandler(catalogService),
		Purchase: handler.NewPurchaseHandler(catalogService),
		Cart:     handler.NewCartHandler(cartService),
		Sale:     handler.NewSaleHandler(saleService, cashCutService),
		CashCut:  handler.NewCashCutHandler(cashCutService),
		Settings: handler.NewSettingsHandler(settingsService),
		Printer:  handler.NewPrinterHandler(printerService),
	}

	router := routes.Setup(handlers, &routes.Deps{
		JWTManager:      jwtManager,
		Cfg:             cfg,
		Logger:          zlog,
		IdempotencyRepo: idempotencyRepo,
		RateLimiter:     rateLimiter,
	})

	go func() {
		ticker := time.NewTicker(idempotencyCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := idempotencyRepo.DeleteExpired(ctx)
				if err != nil {
					zlog.Warn("idempotency cleanup failed", zap.Error(err))
					continue
				}
				if n > 0 {
					zlog.Debug("expired idempotency keys removed", zap.Int64("count", n))
				}
			}
		}
	}()

	port := cfg.App.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("starting server",
			zap.String("service", cfg.App.Name),
			zap.String("port", port),
			zap.String("env", cfg.App.Env),
			zap.String("db_driver", db.Dialector.Name()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
	bus.Wait()
}
