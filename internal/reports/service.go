package reports

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/rverduzco/stockroom-backend/internal/ledger"
	"github.com/rverduzco/stockroom-backend/pkg/enums"
	pkgerrors "github.com/rverduzco/stockroom-backend/pkg/errors"
	"github.com/rverduzco/stockroom-backend/pkg/money"
)

const defaultTopProductsLimit = 10

// Range bounds a report window; To is exclusive.
type Range struct {
	From time.Time
	To   time.Time
}

// Summary carries the dashboard KPIs for a window.
type Summary struct {
	InvoiceCount       int64 `json:"invoice_count"`
	VoidCount          int64 `json:"void_count"`
	SalesCents         int64 `json:"sales_cents"`
	TaxCents           int64 `json:"tax_cents"`
	PurchaseCount      int64 `json:"purchase_count"`
	PurchaseCents      int64 `json:"purchase_cents"`
	ActiveProductCount int64 `json:"active_product_count"`
	LowStockCount      int64 `json:"low_stock_count"`
}

// DaySales aggregates finalized invoices per calendar day.
type DaySales struct {
	Date         string `json:"date"`
	InvoiceCount int64  `json:"invoice_count"`
	SalesCents   int64  `json:"sales_cents"`
	TaxCents     int64  `json:"tax_cents"`
}

// Service assembles read-only reports over the ledger and the invoices.
type Service interface {
	Summary(ctx context.Context, window Range) (*Summary, error)
	SalesByDay(ctx context.Context, window Range) ([]DaySales, error)
	TopProducts(ctx context.Context, window Range, limit int) ([]ProductSales, error)
	LowStock(ctx context.Context) ([]ledger.LowStockItem, error)
	ExportInvoiceLinesCSV(ctx context.Context, window Range, w io.Writer) error
	ExportPurchaseLinesCSV(ctx context.Context, window Range, w io.Writer) error
	ExportProductsCSV(ctx context.Context, w io.Writer) error
}

type service struct {
	repo      Repository
	ledgerSvc ledger.Service
}

// NewService wires a reports service with its collaborators.
func NewService(repo Repository, ledgerSvc ledger.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	return &service{repo: repo, ledgerSvc: ledgerSvc}, nil
}

func (r Range) validate() error {
	if r.From.IsZero() || r.To.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "report range requires from and to")
	}
	if !r.From.Before(r.To) {
		return pkgerrors.New(pkgerrors.CodeValidation, "report range start must precede end")
	}
	return nil
}

func (s *service) Summary(ctx context.Context, window Range) (*Summary, error) {
	if err := window.validate(); err != nil {
		return nil, err
	}

	invoices, err := s.repo.InvoicesInRange(ctx, window.From, window.To)
	if err != nil {
		return nil, err
	}

	out := &Summary{}
	for _, inv := range invoices {
		if inv.Status == enums.InvoiceStatusVoid {
			out.VoidCount++
			continue
		}
		out.InvoiceCount++
		out.SalesCents += inv.TotalCents
		out.TaxCents += inv.TaxCents
	}

	out.PurchaseCount, out.PurchaseCents, err = s.repo.PurchaseTotal(ctx, window.From, window.To)
	if err != nil {
		return nil, err
	}

	out.ActiveProductCount, err = s.repo.ProductCount(ctx, true)
	if err != nil {
		return nil, err
	}

	low, err := s.ledgerSvc.LowStock(ctx)
	if err != nil {
		return nil, err
	}
	out.LowStockCount = int64(len(low))
	return out, nil
}

// SalesByDay buckets finalized invoices by calendar day in Go so the query
// stays identical across the postgres and sqlite drivers.
func (s *service) SalesByDay(ctx context.Context, window Range) ([]DaySales, error) {
	if err := window.validate(); err != nil {
		return nil, err
	}

	invoices, err := s.repo.InvoicesInRange(ctx, window.From, window.To)
	if err != nil {
		return nil, err
	}

	byDay := map[string]*DaySales{}
	for _, inv := range invoices {
		if inv.Status != enums.InvoiceStatusFinalized {
			continue
		}
		day := inv.CreatedAt.UTC().Format("2006-01-02")
		row, ok := byDay[day]
		if !ok {
			row = &DaySales{Date: day}
			byDay[day] = row
		}
		row.InvoiceCount++
		row.SalesCents += inv.TotalCents
		row.TaxCents += inv.TaxCents
	}

	days := make([]DaySales, 0, len(byDay))
	for _, row := range byDay {
		days = append(days, *row)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days, nil
}

func (s *service) TopProducts(ctx context.Context, window Range, limit int) ([]ProductSales, error) {
	if err := window.validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultTopProductsLimit
	}
	return s.repo.TopProducts(ctx, window.From, window.To, limit)
}

func (s *service) LowStock(ctx context.Context) ([]ledger.LowStockItem, error) {
	return s.ledgerSvc.LowStock(ctx)
}

// ExportInvoiceLinesCSV streams one row per invoice line, voided invoices
// included so the export reconciles against the ledger.
func (s *service) ExportInvoiceLinesCSV(ctx context.Context, window Range, w io.Writer) error {
	if err := window.validate(); err != nil {
		return err
	}

	lines, err := s.repo.InvoiceLines(ctx, window.From, window.To)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	header := []string{"invoice_no", "issued_at", "status", "product", "qty", "unit_price", "tax", "line_total"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, line := range lines {
		record := []string{
			line.InvoiceNo,
			line.IssuedAt.UTC().Format(time.RFC3339),
			line.Status,
			line.ProductName,
			strconv.Itoa(line.Qty),
			money.Format(line.UnitPriceCents),
			money.Format(line.TaxCents),
			money.Format(line.LineTotalCents),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func (s *service) ExportPurchaseLinesCSV(ctx context.Context, window Range, w io.Writer) error {
	if err := window.validate(); err != nil {
		return err
	}

	lines, err := s.repo.PurchaseLines(ctx, window.From, window.To)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"bill_no", "supplier", "received_at", "product", "qty", "unit_cost"}); err != nil {
		return err
	}
	for _, line := range lines {
		record := []string{
			line.BillNo,
			line.Supplier,
			line.ReceivedAt.UTC().Format(time.RFC3339),
			line.ProductName,
			strconv.Itoa(line.Qty),
			money.Format(line.UnitCostCents),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ExportProductsCSV writes the whole catalog with derived stock, inactive
// products included.
func (s *service) ExportProductsCSV(ctx context.Context, w io.Writer) error {
	rows, err := s.repo.ProductRows(ctx)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"name", "category", "unit", "barcode", "price", "tax_rate_percent", "stock", "low_stock_threshold", "active"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.Name,
			row.Category,
			row.Unit,
			row.Barcode,
			money.Format(row.PriceCents),
			strconv.FormatFloat(row.TaxRatePercent, 'f', -1, 64),
			strconv.FormatInt(row.Stock, 10),
			strconv.Itoa(row.LowStockThreshold),
			strconv.FormatBool(row.Active),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
