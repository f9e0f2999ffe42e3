package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/shoplite/storefront-api/internal/api"
	"github.com/shoplite/storefront-api/internal/auth"
	"github.com/shoplite/storefront-api/internal/db"
	"github.com/shoplite/storefront-api/internal/inventory"
	"github.com/shoplite/storefront-api/internal/metrics"
	"github.com/shoplite/storefront-api/internal/services"
	"github.com/shoplite/storefront-api/pkg/config"
	"github.com/shoplite/storefront-api/pkg/logger"
	"github.com/shoplite/storefront-api/pkg/shutdown"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.LoadConfig()

	log := logger.New(logger.Options{
		Service: cfg.OTELServiceName,
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
	})

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	appMetrics, meterProvider, err := metrics.InitMetrics(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize metrics", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("error shutting down meter provider", "error", err)
		}
	}()

	database, err := db.NewDB(cfg.GetDSN(), cfg.OTELServiceName)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if schemaSQL, err := os.ReadFile("schema.sql"); err != nil {
		log.Warn("could not read schema.sql, assuming schema exists", "error", err)
	} else if err := database.InitSchema(ctx, string(schemaSQL)); err != nil {
		log.Warn("could not initialize schema, assuming schema exists", "error", err)
	}

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	ledger := inventory.NewLedger(database, appMetrics)

	userService := services.NewUserService(database, appMetrics, cfg.BcryptCost)
	productService := services.NewProductService(database, appMetrics)
	imageService := services.NewProductImageService(database, appMetrics)
	categoryService := services.NewCategoryService(database, appMetrics)
	cartService := services.NewCartService(database, appMetrics)
	orderService := services.NewOrderService(database, appMetrics, ledger)
	reviewService := services.NewReviewService(database, appMetrics)
	addressService := services.NewAddressService(database, appMetrics)

	app := api.NewApp(cfg, database, appMetrics, tokens,
		userService, productService, imageService, categoryService, cartService,
		orderService, reviewService, addressService)

	router := mux.NewRouter()
	app.SetupRoutes(router)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server starting", "port", cfg.AppPort, "otlp_endpoint", cfg.OTELExporterOTLPEndpoint)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		err := cartService.MonitorActiveCarts(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server exited")
}
