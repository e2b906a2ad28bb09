package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rverduzco/stockroom-backend/pkg/db/models"
	"github.com/rverduzco/stockroom-backend/pkg/enums"
)

// Repository runs the read-only aggregation queries behind reports.
type Repository interface {
	InvoicesInRange(ctx context.Context, from, to time.Time) ([]models.Invoice, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductSales, error)
	PurchaseTotal(ctx context.Context, from, to time.Time) (int64, int64, error)
	InvoiceLines(ctx context.Context, from, to time.Time) ([]InvoiceLineExport, error)
	PurchaseLines(ctx context.Context, from, to time.Time) ([]PurchaseLineExport, error)
	ProductRows(ctx context.Context) ([]ProductExport, error)
	ProductCount(ctx context.Context, activeOnly bool) (int64, error)
}

// ProductSales aggregates sold quantity and revenue per product.
type ProductSales struct {
	ProductID    uuid.UUID `gorm:"column:product_id"`
	Name         string    `gorm:"column:name"`
	QtySold      int64     `gorm:"column:qty_sold"`
	RevenueCents int64     `gorm:"column:revenue_cents"`
}

// InvoiceLineExport is one flat row for CSV export.
type InvoiceLineExport struct {
	InvoiceNo      string    `gorm:"column:invoice_no"`
	IssuedAt       time.Time `gorm:"column:issued_at"`
	Status         string    `gorm:"column:status"`
	ProductName    string    `gorm:"column:product_name"`
	Qty            int       `gorm:"column:qty"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents"`
	TaxCents       int64     `gorm:"column:tax_cents"`
	LineTotalCents int64     `gorm:"column:line_total_cents"`
}

// PurchaseLineExport is one flat stock-in row for CSV export.
type PurchaseLineExport struct {
	BillNo        string    `gorm:"column:bill_no"`
	Supplier      string    `gorm:"column:supplier"`
	ReceivedAt    time.Time `gorm:"column:received_at"`
	ProductName   string    `gorm:"column:product_name"`
	Qty           int       `gorm:"column:qty"`
	UnitCostCents int64     `gorm:"column:unit_cost_cents"`
}

// ProductExport is one catalog row with its derived stock.
type ProductExport struct {
	Name              string  `gorm:"column:name"`
	Category          string  `gorm:"column:category"`
	Unit              string  `gorm:"column:unit"`
	Barcode           string  `gorm:"column:barcode"`
	PriceCents        int64   `gorm:"column:price_cents"`
	TaxRatePercent    float64 `gorm:"column:tax_rate_percent"`
	Stock             int64   `gorm:"column:stock"`
	LowStockThreshold int     `gorm:"column:low_stock_threshold"`
	Active            bool    `gorm:"column:active"`
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reports repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) InvoicesInRange(ctx context.Context, from, to time.Time) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at ASC").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repository) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductSales, error) {
	var rows []ProductSales
	err := r.db.WithContext(ctx).
		Table("invoice_items").
		Select("invoice_items.product_id AS product_id, products.name, SUM(invoice_items.qty) AS qty_sold, SUM(invoice_items.line_total_cents) AS revenue_cents").
		Joins("JOIN invoices ON invoices.id = invoice_items.invoice_id").
		Joins("JOIN products ON products.id = invoice_items.product_id").
		Where("invoices.status = ?", enums.InvoiceStatusFinalized).
		Where("invoices.created_at >= ? AND invoices.created_at < ?", from, to).
		Group("invoice_items.product_id, products.name").
		Order("qty_sold DESC, products.name ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) PurchaseTotal(ctx context.Context, from, to time.Time) (int64, int64, error) {
	type row struct {
		Count int64 `gorm:"column:count"`
		Total int64 `gorm:"column:total"`
	}
	var out row
	err := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Select("COUNT(*) AS count, COALESCE(SUM(subtotal_cents), 0) AS total").
		Where("created_at >= ? AND created_at < ?", from, to).
		Scan(&out).Error
	if err != nil {
		return 0, 0, err
	}
	return out.Count, out.Total, nil
}

func (r *repository) InvoiceLines(ctx context.Context, from, to time.Time) ([]InvoiceLineExport, error) {
	var rows []InvoiceLineExport
	err := r.db.WithContext(ctx).
		Table("invoice_items").
		Select("invoices.invoice_no, invoices.created_at AS issued_at, invoices.status, products.name AS product_name, invoice_items.qty, invoice_items.unit_price_cents, invoice_items.tax_cents, invoice_items.line_total_cents").
		Joins("JOIN invoices ON invoices.id = invoice_items.invoice_id").
		Joins("JOIN products ON products.id = invoice_items.product_id").
		Where("invoices.created_at >= ? AND invoices.created_at < ?", from, to).
		Order("invoices.created_at ASC, invoices.invoice_no ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) PurchaseLines(ctx context.Context, from, to time.Time) ([]PurchaseLineExport, error) {
	var rows []PurchaseLineExport
	err := r.db.WithContext(ctx).
		Table("purchase_items").
		Select("COALESCE(purchases.bill_no, '') AS bill_no, COALESCE(purchases.supplier, '') AS supplier, purchases.created_at AS received_at, products.name AS product_name, purchase_items.qty, purchase_items.unit_cost_cents").
		Joins("JOIN purchases ON purchases.id = purchase_items.purchase_id").
		Joins("JOIN products ON products.id = purchase_items.product_id").
		Where("purchases.created_at >= ? AND purchases.created_at < ?", from, to).
		Order("purchases.created_at ASC, products.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ProductRows(ctx context.Context) ([]ProductExport, error) {
	var rows []ProductExport
	err := r.db.WithContext(ctx).
		Table("products").
		Select("products.name, COALESCE(products.category, '') AS category, products.unit, COALESCE(products.barcode, '') AS barcode, products.price_cents, products.tax_rate_percent, COALESCE(SUM(stock_movements.quantity), 0) AS stock, products.low_stock_threshold, products.active").
		Joins("LEFT JOIN stock_movements ON stock_movements.product_id = products.id").
		Group("products.id, products.name, products.category, products.unit, products.barcode, products.price_cents, products.tax_rate_percent, products.low_stock_threshold, products.active").
		Order("products.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ProductCount(ctx context.Context, activeOnly bool) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
