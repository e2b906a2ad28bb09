package ledger

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rverduzco/stockroom-backend/pkg/db"
	"github.com/rverduzco/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/rverduzco/stockroom-backend/pkg/errors"
	"github.com/rverduzco/stockroom-backend/pkg/metrics"
	"github.com/rverduzco/stockroom-backend/pkg/pagination"
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

	require.NoError(t, gdb.AutoMigrate(&models.Product{}, &models.StockMovement{}))
	return gdb
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	gdb := newTestDB(t)
	svc, err := NewService(NewRepository(gdb), db.NewFromGorm(gdb), metrics.NewLedgerMetrics(nil))
	require.NoError(t, err)
	return svc, gdb
}

func seedProduct(t *testing.T, gdb *gorm.DB, name string, threshold int, active bool) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:              name,
		Unit:              "pcs",
		LowStockThreshold: threshold,
		Active:            active,
	}
	require.NoError(t, gdb.Create(product).Error)
	if !active {
		// GORM substitutes the column default for a zero-valued bool on
		// INSERT, so an inactive seed must be flipped with an explicit update.
		require.NoError(t, gdb.Model(product).Update("active", false).Error)
	}
	return product
}

func TestAdjustmentMovesStock(t *testing.T) {
	svc, gdb := newTestService(t)
	ctx := context.Background()
	product := seedProduct(t, gdb, "Flour 1kg", 0, true)

	_, err := svc.RecordAdjustment(ctx, AdjustmentInput{ProductID: product.ID, Quantity: 10, Note: "opening stock"})
	require.NoError(t, err)

	stock, err := svc.CurrentStock(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, int64(10), stock)

	_, err = svc.RecordAdjustment(ctx, AdjustmentInput{ProductID: product.ID, Quantity: -4, Note: "breakage"})
	require.NoError(t, err)

	stock, err = svc.CurrentStock(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, int64(6), stock)
}

func TestNegativeAdjustmentCannotOverdraw(t *testing.T) {
	svc, gdb := newTestService(t)
	ctx := context.Background()
	product := seedProduct(t, gdb, "Sugar 1kg", 0, true)

	_, err := svc.RecordAdjustment(ctx, AdjustmentInput{ProductID: product.ID, Quantity: 3})
	require.NoError(t, err)

	_, err = svc.RecordAdjustment(ctx, AdjustmentInput{ProductID: product.ID, Quantity: -5})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeInsufficientStock, pkgerrors.As(err).Code())

	// The rejected write must leave the ledger untouched.
	stock, err := svc.CurrentStock(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, int64(3), stock)

	// Drawing down to exactly zero is allowed.
	_, err = svc.RecordAdjustment(ctx, AdjustmentInput{ProductID: product.ID, Quantity: -3})
	require.NoError(t, err)
}

func TestAdjustmentRejectsInactiveProduct(t *testing.T) {
	svc, gdb := newTestService(t)
	ctx := context.Background()
	product := seedProduct(t, gdb, "Discontinued", 0, false)

	_, err := svc.RecordAdjustment(ctx, AdjustmentInput{ProductID: product.ID, Quantity: 1})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestAdjustmentRejectsZeroQuantity(t *testing.T) {
	svc, gdb := newTestService(t)
	ctx := context.Background()
	product := seedProduct(t, gdb, "Salt", 0, true)

	_, err := svc.RecordAdjustment(ctx, AdjustmentInput{ProductID: product.ID, Quantity: 0})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestLowStockIncludesThresholdEquality(t *testing.T) {
	svc, gdb := newTestService(t)
	ctx := context.Background()

	atThreshold := seedProduct(t, gdb, "Beans", 5, true)
	below := seedProduct(t, gdb, "Lentils", 5, true)
	healthy := seedProduct(t, gdb, "Rice", 5, true)
	neverStocked := seedProduct(t, gdb, "Quinoa", 0, true)
	inactive := seedProduct(t, gdb, "Retired", 100, false)

	_, err := svc.RecordAdjustment(ctx, AdjustmentInput{ProductID: atThreshold.ID, Quantity: 5})
	require.NoError(t, err)
	_, err = svc.RecordAdjustment(ctx, AdjustmentInput{ProductID: below.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = svc.RecordAdjustment(ctx, AdjustmentInput{ProductID: healthy.ID, Quantity: 50})
	require.NoError(t, err)

	items, err := svc.LowStock(ctx)
	require.NoError(t, err)

	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
		require.NotEqual(t, inactive.ID, item.ProductID)
		require.NotEqual(t, healthy.ID, item.ProductID)
	}
	// Ordered by stock ascending, then name.
	require.Equal(t, []string{"Quinoa", "Lentils", "Beans"}, names)
	require.Equal(t, int64(0), items[0].Stock)
	require.Equal(t, neverStocked.ID, items[0].ProductID)
}

func TestStockLevelsSumPerProduct(t *testing.T) {
	svc, gdb := newTestService(t)
	ctx := context.Background()

	tea := seedProduct(t, gdb, "Tea", 0, true)
	seedProduct(t, gdb, "Quinoa", 0, true)
	retired := seedProduct(t, gdb, "Retired", 0, false)

	_, err := svc.RecordAdjustment(ctx, AdjustmentInput{ProductID: tea.ID, Quantity: 8})
	require.NoError(t, err)
	_, err = svc.RecordAdjustment(ctx, AdjustmentInput{ProductID: tea.ID, Quantity: -3})
	require.NoError(t, err)

	levels, err := svc.StockLevels(ctx, true)
	require.NoError(t, err)
	require.Len(t, levels, 2)

	byName := map[string]StockLevel{}
	for _, level := range levels {
		byName[level.Name] = level
	}
	require.Equal(t, int64(5), byName["Tea"].Stock)
	require.Equal(t, int64(0), byName["Quinoa"].Stock)

	all, err := svc.StockLevels(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, level := range all {
		if level.ProductID == retired.ID {
			require.False(t, level.Active)
		}
	}
}

func TestListMovementsNewestFirstWithCursor(t *testing.T) {
	svc, gdb := newTestService(t)
	ctx := context.Background()
	product := seedProduct(t, gdb, "Tea", 0, true)

	for i := 1; i <= 5; i++ {
		_, err := svc.RecordAdjustment(ctx, AdjustmentInput{ProductID: product.ID, Quantity: i})
		require.NoError(t, err)
	}

	page1, next, err := svc.ListMovements(ctx, MovementFilter{
		ProductID: product.ID,
		Page:      pagination.Params{Limit: 3},
	})
	require.NoError(t, err)
	require.Len(t, page1, 3)
	require.NotEqual(t, "", next)
	require.Equal(t, 5, page1[0].Quantity)

	page2, next2, err := svc.ListMovements(ctx, MovementFilter{
		ProductID: product.ID,
		Page:      pagination.Params{Limit: 3, Cursor: next},
	})
	require.NoError(t, err)
	require.Len(t, page2, 2)
	require.Equal(t, "", next2)
	require.Equal(t, 1, page2[len(page2)-1].Quantity)
}
