package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

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
	"github.com/rverduzco/stockroom-backend/pkg/db/models"
	"github.com/rverduzco/stockroom-backend/pkg/logger"
	"github.com/rverduzco/stockroom-backend/pkg/metrics"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev"},
		JWT: config.JWTConfig{
			Secret:            "test-secret",
			Issuer:            "stockroom",
			ExpirationMinutes: 30,
		},
		Password: config.PasswordConfig{
			ArgonMemoryKB:    8,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     8,
			ArgonKeyLen:      16,
			DefaultAdmin:     "admin123",
		},
		Invoice: config.InvoiceConfig{NumberPrefix: "INV", MaxTxRetries: 3},
	}
}

func newTestRouter(t *testing.T) (http.Handler, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, gdb.AutoMigrate(
		&models.Product{},
		&models.Customer{},
		&models.StockMovement{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.Purchase{},
		&models.PurchaseItem{},
		&models.Setting{},
		&models.InvoiceSequence{},
	))

	cfg := testConfig()
	client := db.NewFromGorm(gdb)
	mtx := metrics.NewLedgerMetrics(nil)
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("error")})
	ctx := context.Background()

	settingsSvc, err := settings.NewService(settings.NewRepository(gdb), cfg.Password)
	require.NoError(t, err)
	require.NoError(t, settingsSvc.EnsureDefaults(ctx))

	guard, err := backup.NewGuard(settingsSvc)
	require.NoError(t, err)
	require.NoError(t, guard.Prime(ctx))

	catalogRepo := catalog.NewRepository(gdb)
	catalogSvc, err := catalog.NewService(catalogRepo)
	require.NoError(t, err)

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(gdb), client, mtx)
	require.NoError(t, err)

	invoiceSvc, err := invoices.NewService(invoices.NewRepository(gdb), catalogRepo, ledgerSvc, client, cfg.Invoice, mtx)
	require.NoError(t, err)

	purchaseSvc, err := purchases.NewService(purchases.NewRepository(gdb), ledgerSvc, client, mtx)
	require.NoError(t, err)

	customerSvc, err := customers.NewService(customers.NewRepository(gdb))
	require.NoError(t, err)

	reportSvc, err := reports.NewService(reports.NewRepository(gdb), ledgerSvc)
	require.NoError(t, err)

	router := NewRouter(cfg, logg, client, nil, Services{
		Catalog:   catalogSvc,
		Ledger:    ledgerSvc,
		Invoices:  invoiceSvc,
		Purchases: purchaseSvc,
		Customers: customerSvc,
		Reports:   reportSvc,
		Settings:  settingsSvc,
		Guard:     guard,
	})
	return router, gdb
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, router http.Handler) string {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"password": "admin123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var envelope struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotEqual(t, "", envelope.Data.AccessToken)
	return envelope.Data.AccessToken
}

func TestHealthEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/health/live", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/products/", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/products/", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProductLifecycleOverHTTP(t *testing.T) {
	router, _ := newTestRouter(t)
	token := login(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/products/", token, map[string]any{
		"name":             "Green Tea 500g",
		"barcode":          "8901234567890",
		"price_cents":      1250,
		"tax_rate_percent": 5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/v1/products/barcode/8901234567890", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Green Tea 500g")

	rec = doJSON(t, router, http.MethodGet, "/api/v1/products/barcode/0000000000000", token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInvoiceFlowOverHTTP(t *testing.T) {
	router, gdb := newTestRouter(t)
	token := login(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/products/", token, map[string]any{
		"name":        "Soap",
		"price_cents": 300,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var product models.Product
	require.NoError(t, gdb.First(&product, "name = ?", "Soap").Error)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/purchases/", token, map[string]any{
		"lines": []map[string]any{{"product_id": product.ID, "qty": 10, "unit_cost_cents": 200}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/api/v1/invoices/", token, map[string]any{
		"lines": []map[string]any{{"product_id": product.ID, "qty": 4}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), "INV-000001")

	// Overselling the remaining six units fails with the typed code.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/invoices/", token, map[string]any{
		"lines": []map[string]any{{"product_id": product.ID, "qty": 7}},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "INSUFFICIENT_STOCK")

	var invoice models.Invoice
	require.NoError(t, gdb.First(&invoice, "invoice_no = ?", "INV-000001").Error)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/invoices/"+invoice.ID.String()+"/void", token, map[string]any{
		"reason": "returned",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/v1/products/"+product.ID.String()+"/stock", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"stock":10`)
}

func TestBackupQuiesceBlocksWrites(t *testing.T) {
	router, _ := newTestRouter(t)
	token := login(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/backup/quiesce", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/products/", token, map[string]any{"name": "Blocked"})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "TRANSACTION_ERROR")

	rec = doJSON(t, router, http.MethodPost, "/api/v1/backup/resume", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/products/", token, map[string]any{"name": "Unblocked"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestChangePasswordOverHTTP(t *testing.T) {
	router, _ := newTestRouter(t)
	token := login(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/change-password", token, map[string]string{
		"current_password": "admin123",
		"new_password":     "rotated-secret",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"password": "admin123"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"password": "rotated-secret"})
	require.Equal(t, http.StatusOK, rec.Code)
}
