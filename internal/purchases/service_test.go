package purchases

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rverduzco/stockroom-backend/internal/ledger"
	"github.com/rverduzco/stockroom-backend/pkg/db"
	"github.com/rverduzco/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/rverduzco/stockroom-backend/pkg/errors"
	"github.com/rverduzco/stockroom-backend/pkg/metrics"
)

func newTestDB(t *testing.T) *gorm.DB {
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
		&models.StockMovement{},
		&models.Purchase{},
		&models.PurchaseItem{},
	))
	return gdb
}

func newTestService(t *testing.T, gdb *gorm.DB) Service {
	t.Helper()

	client := db.NewFromGorm(gdb)
	mtx := metrics.NewLedgerMetrics(nil)

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(gdb), client, mtx)
	require.NoError(t, err)

	svc, err := NewService(NewRepository(gdb), ledgerSvc, client, mtx)
	require.NoError(t, err)
	return svc
}

func seedProduct(t *testing.T, gdb *gorm.DB, name string, active bool) *models.Product {
	t.Helper()
	product := &models.Product{Name: name, Unit: "pcs", Active: active}
	require.NoError(t, gdb.Create(product).Error)
	if !active {
		// GORM substitutes the column default for a zero-valued bool on
		// INSERT, so an inactive seed must be flipped with an explicit update.
		require.NoError(t, gdb.Model(product).Update("active", false).Error)
	}
	return product
}

func currentStock(t *testing.T, gdb *gorm.DB, productID string) int64 {
	t.Helper()
	var total int64
	require.NoError(t, gdb.Model(&models.StockMovement{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error)
	return total
}

func strPtr(s string) *string { return &s }

func TestCreatePurchaseMovesStockIn(t *testing.T) {
	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()

	flour := seedProduct(t, gdb, "Flour", true)
	sugar := seedProduct(t, gdb, "Sugar", true)

	purchase, err := svc.CreatePurchase(ctx, CreatePurchaseInput{
		BillNo:   strPtr("B-1001"),
		Supplier: strPtr("Acme Wholesale"),
		Lines: []LineInput{
			{ProductID: flour.ID, Qty: 20, UnitCostCents: 75},
			{ProductID: sugar.ID, Qty: 10, UnitCostCents: 120},
		},
	})
	require.NoError(t, err)
	require.Equal(t, int64(20*75+10*120), purchase.SubtotalCents)
	require.Len(t, purchase.Items, 2)

	require.Equal(t, int64(20), currentStock(t, gdb, flour.ID.String()))
	require.Equal(t, int64(10), currentStock(t, gdb, sugar.ID.String()))
}

func TestCreatePurchaseRejectsNonPositiveQty(t *testing.T) {
	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()

	product := seedProduct(t, gdb, "Oats", true)

	_, err := svc.CreatePurchase(ctx, CreatePurchaseInput{
		Lines: []LineInput{{ProductID: product.ID, Qty: 0}},
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.CreatePurchase(ctx, CreatePurchaseInput{Lines: nil})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestCreatePurchaseIsAllOrNothing(t *testing.T) {
	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()

	good := seedProduct(t, gdb, "Stocked", true)
	retired := seedProduct(t, gdb, "Retired", false)

	_, err := svc.CreatePurchase(ctx, CreatePurchaseInput{
		Lines: []LineInput{
			{ProductID: good.ID, Qty: 5, UnitCostCents: 100},
			{ProductID: retired.ID, Qty: 5, UnitCostCents: 100},
		},
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	var count int64
	require.NoError(t, gdb.Model(&models.Purchase{}).Count(&count).Error)
	require.Equal(t, int64(0), count)
	require.Equal(t, int64(0), currentStock(t, gdb, good.ID.String()))
}

func TestGetPurchaseLoadsItems(t *testing.T) {
	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()

	product := seedProduct(t, gdb, "Chickpeas", true)
	created, err := svc.CreatePurchase(ctx, CreatePurchaseInput{
		Lines: []LineInput{{ProductID: product.ID, Qty: 7, UnitCostCents: 60}},
	})
	require.NoError(t, err)

	found, err := svc.GetPurchase(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	require.Equal(t, 7, found.Items[0].Qty)
}

func TestListPurchasesBySupplier(t *testing.T) {
	gdb := newTestDB(t)
	svc := newTestService(t, gdb)
	ctx := context.Background()

	product := seedProduct(t, gdb, "Bulk Item", true)

	_, err := svc.CreatePurchase(ctx, CreatePurchaseInput{
		Supplier: strPtr("Acme Wholesale"),
		Lines:    []LineInput{{ProductID: product.ID, Qty: 1}},
	})
	require.NoError(t, err)
	_, err = svc.CreatePurchase(ctx, CreatePurchaseInput{
		Supplier: strPtr("Other Supplier"),
		Lines:    []LineInput{{ProductID: product.ID, Qty: 1}},
	})
	require.NoError(t, err)

	list, _, err := svc.ListPurchases(ctx, ListFilter{Supplier: "Acme Wholesale"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Acme Wholesale", *list[0].Supplier)
}
