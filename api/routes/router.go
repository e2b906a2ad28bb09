package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rverduzco/stockroom-backend/api/controllers"
	"github.com/rverduzco/stockroom-backend/api/middleware"
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
)

// Services bundles everything the router wires into handlers.
type Services struct {
	Catalog   catalog.Service
	Ledger    ledger.Service
	Invoices  invoices.Service
	Purchases purchases.Service
	Customers customers.Service
	Reports   reports.Service
	Settings  settings.Service
	Guard     *backup.Guard
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	registry *prometheus.Registry,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, svcs.Guard))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", controllers.AuthLogin(svcs.Settings, cfg.JWT, logg))
		r.With(middleware.Auth(cfg.JWT, logg)).
			Post("/change-password", controllers.AuthChangePassword(svcs.Settings, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(
			middleware.Auth(cfg.JWT, logg),
			middleware.WriteGuard(svcs.Guard, logg),
		)

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.CreateProduct(svcs.Catalog, logg))
			r.Get("/", controllers.ListProducts(svcs.Catalog, logg))
			r.Get("/barcode/{barcode}", controllers.GetProductByBarcode(svcs.Catalog, logg))
			r.Route("/{productID}", func(r chi.Router) {
				r.Get("/", controllers.GetProduct(svcs.Catalog, svcs.Ledger, logg))
				r.Patch("/", controllers.UpdateProduct(svcs.Catalog, logg))
				r.Post("/activate", controllers.SetProductActive(svcs.Catalog, logg, true))
				r.Post("/deactivate", controllers.SetProductActive(svcs.Catalog, logg, false))
				r.Get("/stock", controllers.GetProductStock(svcs.Ledger, logg))
				r.Get("/movements", controllers.ListProductMovements(svcs.Ledger, logg))
			})
		})

		r.Route("/customers", func(r chi.Router) {
			r.Post("/", controllers.CreateCustomer(svcs.Customers, logg))
			r.Get("/", controllers.ListCustomers(svcs.Customers, logg))
			r.Get("/{customerID}", controllers.GetCustomer(svcs.Customers, logg))
			r.Put("/{customerID}", controllers.UpdateCustomer(svcs.Customers, logg))
		})

		r.Route("/purchases", func(r chi.Router) {
			r.Post("/", controllers.CreatePurchase(svcs.Purchases, logg))
			r.Get("/", controllers.ListPurchases(svcs.Purchases, logg))
			r.Get("/{purchaseID}", controllers.GetPurchase(svcs.Purchases, logg))
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Post("/", controllers.CreateInvoice(svcs.Invoices, logg))
			r.Get("/", controllers.ListInvoices(svcs.Invoices, logg))
			r.Get("/number/{invoiceNo}", controllers.GetInvoiceByNumber(svcs.Invoices, logg))
			r.Get("/{invoiceID}", controllers.GetInvoice(svcs.Invoices, logg))
			r.Post("/{invoiceID}/void", controllers.VoidInvoice(svcs.Invoices, logg))
		})

		r.Route("/stock", func(r chi.Router) {
			r.Get("/", controllers.ListStockLevels(svcs.Ledger, logg))
			r.Post("/adjustments", controllers.CreateAdjustment(svcs.Ledger, logg))
			r.Get("/low", controllers.ListLowStock(svcs.Ledger, logg))
			r.Get("/{productID}", controllers.GetProductStock(svcs.Ledger, logg))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/summary", controllers.ReportSummary(svcs.Reports, logg))
			r.Get("/sales-by-day", controllers.ReportSalesByDay(svcs.Reports, logg))
			r.Get("/top-products", controllers.ReportTopProducts(svcs.Reports, logg))
			r.Get("/export/sales.csv", controllers.ExportInvoiceLines(svcs.Reports, logg))
			r.Get("/export/purchases.csv", controllers.ExportPurchaseLines(svcs.Reports, logg))
			r.Get("/export/products.csv", controllers.ExportProducts(svcs.Reports, logg))
		})

	})

	// Backup endpoints sit outside the write guard: resume must work while
	// the guard is quiesced.
	r.Route("/api/v1/backup", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Post("/quiesce", controllers.BackupQuiesce(svcs.Guard, logg))
		r.Post("/resume", controllers.BackupResume(svcs.Guard, logg))
		r.Get("/status", controllers.BackupStatus(svcs.Guard, logg))
	})

	return r
}
