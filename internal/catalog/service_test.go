package catalog

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rverduzco/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/rverduzco/stockroom-backend/pkg/errors"
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

	require.NoError(t, gdb.AutoMigrate(&models.Product{}))
	return gdb
}

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(newTestDB(t)))
	require.NoError(t, err)
	return svc
}

func strPtr(s string) *string { return &s }

func TestCreateProductDefaults(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:           "Green Tea 500g",
		PriceCents:     1250,
		TaxRatePercent: 5,
	})
	require.NoError(t, err)
	require.Equal(t, "pcs", product.Unit)
	require.True(t, product.Active)
	require.Nil(t, product.Barcode)
	require.NotEqual(t, "", product.ID.String())
}

func TestCreateProductRejectsInvalidInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateProductInput
	}{
		{"empty name", CreateProductInput{Name: "  ", PriceCents: 100}},
		{"negative price", CreateProductInput{Name: "x", PriceCents: -1}},
		{"tax rate above 100", CreateProductInput{Name: "x", TaxRatePercent: 101}},
		{"negative threshold", CreateProductInput{Name: "x", LowStockThreshold: -2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateProduct(ctx, tc.input)
			require.Error(t, err)
			require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
		})
	}
}

func TestCreateProductDuplicateNameConflicts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductInput{Name: "Soap Bar"})
	require.NoError(t, err)

	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "Soap Bar"})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestCreateProductDuplicateBarcodeConflicts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductInput{Name: "Tea Box", Barcode: strPtr("111222333")})
	require.NoError(t, err)

	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "Coffee Box", Barcode: strPtr("111222333")})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestBlankBarcodeIsStoredAsNull(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.CreateProduct(ctx, CreateProductInput{Name: "A", Barcode: strPtr("   ")})
	require.NoError(t, err)
	require.Nil(t, first.Barcode)

	// Two barcode-less products must coexist.
	second, err := svc.CreateProduct(ctx, CreateProductInput{Name: "B", Barcode: strPtr("")})
	require.NoError(t, err)
	require.Nil(t, second.Barcode)
}

func TestUpdateProductPartial(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:       "Rice 1kg",
		PriceCents: 900,
	})
	require.NoError(t, err)

	newPrice := int64(950)
	updated, err := svc.UpdateProduct(ctx, product.ID, UpdateProductInput{PriceCents: &newPrice})
	require.NoError(t, err)
	require.Equal(t, int64(950), updated.PriceCents)
	require.Equal(t, "Rice 1kg", updated.Name)
}

func TestSetActiveIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, CreateProductInput{Name: "Old Stock Item"})
	require.NoError(t, err)

	deactivated, err := svc.SetActive(ctx, product.ID, false)
	require.NoError(t, err)
	require.False(t, deactivated.Active)

	again, err := svc.SetActive(ctx, product.ID, false)
	require.NoError(t, err)
	require.False(t, again.Active)
}

func TestGetProductByBarcode(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductInput{Name: "Milk 1L", Barcode: strPtr("8901234567890")})
	require.NoError(t, err)

	found, err := svc.GetProductByBarcode(ctx, "8901234567890")
	require.NoError(t, err)
	require.Equal(t, "Milk 1L", found.Name)

	_, err = svc.GetProductByBarcode(ctx, "0000000000000")
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestListProductsFiltersAndPaginates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.CreateProduct(ctx, CreateProductInput{Name: fmt.Sprintf("Widget %d", i)})
		require.NoError(t, err)
	}
	inactive, err := svc.CreateProduct(ctx, CreateProductInput{Name: "Retired Widget"})
	require.NoError(t, err)
	_, err = svc.SetActive(ctx, inactive.ID, false)
	require.NoError(t, err)

	page1, next, err := svc.ListProducts(ctx, ListFilter{
		ActiveOnly: true,
		Page:       pagination.Params{Limit: 3},
	})
	require.NoError(t, err)
	require.Len(t, page1, 3)
	require.NotEqual(t, "", next)

	page2, next2, err := svc.ListProducts(ctx, ListFilter{
		ActiveOnly: true,
		Page:       pagination.Params{Limit: 3, Cursor: next},
	})
	require.NoError(t, err)
	require.Len(t, page2, 2)
	require.Equal(t, "", next2)

	seen := map[string]bool{}
	for _, p := range append(page1, page2...) {
		require.True(t, p.Active)
		require.False(t, seen[p.Name], "duplicate row across pages: %s", p.Name)
		seen[p.Name] = true
	}
}

func TestListProductsByNameQuery(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductInput{Name: "Almond Butter"})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "Peanut Butter"})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "Olive Oil"})
	require.NoError(t, err)

	results, _, err := svc.ListProducts(ctx, ListFilter{Query: "butter"})
	require.NoError(t, err)
	require.Len(t, results, 2)
}
