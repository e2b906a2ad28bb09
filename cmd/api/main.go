package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rverduzco/stockroom-backend/api/routes"
	"github.com/rverduzco/stockroom-backend/internal/backup"
	"github.com/rverduzco/stockroom-backend/internal/catalog"
	"github.com/rverduzco/stockroom-backend/internal/customers"
	"github.com/rverduzco/stockroom-backend/internal/invoices"
	"github.com/rverduzco/stockroom-backend/internal/ledger"
	"github.com/rverduzco/stockroom-backend/internal/purchases"
	"github.com/rverduzco/stockroom-backend/internal/reports"
	"github.com/rverduzco/stockroom-backend/internal/settings"
	"github.com/rverduzco/stockroom-backend/pkg/config"
	"github.com/rverduzco/stockroom-backend/pkg/db"
	"github.com/rverduzco/stockroom-backend/pkg/logger"
	"github.com/rverduzco/stockroom-backend/pkg/metrics"
	"github.com/rverduzco/stockroom-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := context.Background()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	ledgerMetrics := metrics.NewLedgerMetrics(registry)
	dbClient.SetTxCallbacks(db.TxCallbacks{
		OnRetry:     ledgerMetrics.IncTxRetry,
		OnExhausted: ledgerMetrics.IncTxExhausted,
	})
	dbClient.SetRetries(cfg.Invoice.MaxTxRetries)

	gdb := dbClient.DB()

	settingsSvc, err := settings.NewService(settings.NewRepository(gdb), cfg.Password)
	if err != nil {
		logg.Error(ctx, "failed to create settings service", err)
		os.Exit(1)
	}
	if err := settingsSvc.EnsureDefaults(ctx); err != nil {
		logg.Error(ctx, "failed to seed settings", err)
		os.Exit(1)
	}

	guard, err := backup.NewGuard(settingsSvc)
	if err != nil {
		logg.Error(ctx, "failed to create backup guard", err)
		os.Exit(1)
	}
	if err := guard.Prime(ctx); err != nil {
		logg.Error(ctx, "failed to prime backup guard", err)
		os.Exit(1)
	}

	catalogRepo := catalog.NewRepository(gdb)
	catalogSvc, err := catalog.NewService(catalogRepo)
	if err != nil {
		logg.Error(ctx, "failed to create catalog service", err)
		os.Exit(1)
	}

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(gdb), dbClient, ledgerMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create ledger service", err)
		os.Exit(1)
	}

	invoiceSvc, err := invoices.NewService(
		invoices.NewRepository(gdb),
		catalogRepo,
		ledgerSvc,
		dbClient,
		cfg.Invoice,
		ledgerMetrics,
	)
	if err != nil {
		logg.Error(ctx, "failed to create invoice service", err)
		os.Exit(1)
	}

	purchaseSvc, err := purchases.NewService(purchases.NewRepository(gdb), ledgerSvc, dbClient, ledgerMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create purchase service", err)
		os.Exit(1)
	}

	customerSvc, err := customers.NewService(customers.NewRepository(gdb))
	if err != nil {
		logg.Error(ctx, "failed to create customer service", err)
		os.Exit(1)
	}

	reportSvc, err := reports.NewService(reports.NewRepository(gdb), ledgerSvc)
	if err != nil {
		logg.Error(ctx, "failed to create reports service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":    cfg.App.Env,
		"addr":   addr,
		"sqlite": cfg.FeatureFlags.UseSQLite,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, registry, routes.Services{
			Catalog:   catalogSvc,
			Ledger:    ledgerSvc,
			Invoices:  invoiceSvc,
			Purchases: purchaseSvc,
			Customers: customerSvc,
			Reports:   reportSvc,
			Settings:  settingsSvc,
			Guard:     guard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
