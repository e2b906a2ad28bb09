package invoices

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rverduzco/stockroom-backend/internal/catalog"
	"github.com/rverduzco/stockroom-backend/internal/ledger"
	"github.com/rverduzco/stockroom-backend/pkg/config"
	"github.com/rverduzco/stockroom-backend/pkg/db"
	"github.com/rverduzco/stockroom-backend/pkg/db/models"
	"github.com/rverduzco/stockroom-backend/pkg/enums"
	pkgerrors "github.com/rverduzco/stockroom-backend/pkg/errors"
	"github.com/rverduzco/stockroom-backend/pkg/metrics"
	"github.com/rverduzco/stockroom-backend/pkg/money"
	"github.com/rverduzco/stockroom-backend/pkg/pagination"
)

// Service defines invoice operations. Creation is all-or-nothing: the
// header, every line, every ledger entry, and the number allocation commit
// together or not at all.
type Service interface {
	CreateInvoice(ctx context.Context, input CreateInvoiceInput) (*models.Invoice, error)
	VoidInvoice(ctx context.Context, id uuid.UUID, reason string) (*models.Invoice, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	GetInvoiceByNumber(ctx context.Context, invoiceNo string) (*models.Invoice, error)
	ListInvoices(ctx context.Context, filter ListFilter) ([]models.Invoice, string, error)
}

// LineInput is one invoice line. A nil UnitPriceCents uses the catalog price
// at invoice time.
type LineInput struct {
	ProductID      uuid.UUID `json:"product_id" validate:"required"`
	Qty            int       `json:"qty" validate:"gt=0"`
	UnitPriceCents *int64    `json:"unit_price_cents"`
}

// CreateInvoiceInput carries everything a finalized invoice needs.
type CreateInvoiceInput struct {
	CustomerID *uuid.UUID  `json:"customer_id"`
	Notes      *string     `json:"notes"`
	Lines      []LineInput `json:"lines" validate:"required,min=1,dive"`
}

type service struct {
	repo        Repository
	catalogRepo catalog.Repository
	ledgerSvc   ledger.Service
	tx          *db.Client
	cfg         config.InvoiceConfig
	mtx         *metrics.LedgerMetrics
}

// NewService wires an invoice service with its collaborators.
func NewService(
	repo Repository,
	catalogRepo catalog.Repository,
	ledgerSvc ledger.Service,
	txRunner *db.Client,
	cfg config.InvoiceConfig,
	mtx *metrics.LedgerMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("invoice repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if txRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if cfg.NumberPrefix == "" {
		cfg.NumberPrefix = "INV"
	}
	return &service{
		repo:        repo,
		catalogRepo: catalogRepo,
		ledgerSvc:   ledgerSvc,
		tx:          txRunner,
		cfg:         cfg,
		mtx:         mtx,
	}, nil
}

func (s *service) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (*models.Invoice, error) {
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice needs at least one line")
	}
	for i, line := range input.Lines {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: product id is required", i))
		}
		if line.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: qty must be positive", i))
		}
		if line.UnitPriceCents != nil && *line.UnitPriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: unit price must not be negative", i))
		}
	}

	started := time.Now()
	var invoice *models.Invoice
	err := s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		number, err := s.repo.WithTx(tx).AllocateNumber(ctx)
		if err != nil {
			return err
		}

		inv := &models.Invoice{
			InvoiceNo:  fmt.Sprintf("%s-%06d", s.cfg.NumberPrefix, number),
			CustomerID: input.CustomerID,
			Status:     enums.InvoiceStatusFinalized,
			Notes:      input.Notes,
		}

		catalogRepo := s.catalogRepo.WithTx(tx)
		for i, line := range input.Lines {
			product, err := catalogRepo.FindByID(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if product == nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("line %d: product not found", i)).
					WithDetails(map[string]any{"product_id": line.ProductID})
			}

			unitPrice := product.PriceCents
			if line.UnitPriceCents != nil {
				unitPrice = *line.UnitPriceCents
			}
			taxCents := money.LineTax(line.Qty, unitPrice, product.TaxRatePercent)
			subtotal := money.LineSubtotal(line.Qty, unitPrice)

			inv.Items = append(inv.Items, models.InvoiceItem{
				ProductID:      line.ProductID,
				Qty:            line.Qty,
				UnitPriceCents: unitPrice,
				TaxRatePercent: product.TaxRatePercent,
				TaxCents:       taxCents,
				LineTotalCents: subtotal + taxCents,
			})
			inv.SubtotalCents += subtotal
			inv.TaxCents += taxCents
		}
		inv.TotalCents = inv.SubtotalCents + inv.TaxCents

		if err := s.repo.WithTx(tx).Create(ctx, inv); err != nil {
			return err
		}

		// Ledger entries run last so every sufficiency check sees the lines
		// already written in this transaction.
		for _, item := range inv.Items {
			price := item.UnitPriceCents
			if _, err := s.ledgerSvc.Apply(ctx, tx, ledger.MovementInput{
				ProductID:      item.ProductID,
				Kind:           enums.MovementKindSale,
				Quantity:       -item.Qty,
				UnitPriceCents: price,
				InvoiceID:      &inv.ID,
				RequireActive:  true,
			}); err != nil {
				return err
			}
		}

		invoice = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.mtx.IncCommit("invoice_create")
	s.mtx.ObserveTx("invoice_create", time.Since(started))
	return invoice, nil
}

// VoidInvoice appends compensating adjustment entries that restore the stock
// each line consumed, then flips the status. The invoice row and its items
// are kept untouched for history.
func (s *service) VoidInvoice(ctx context.Context, id uuid.UUID, reason string) (*models.Invoice, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id is required")
	}

	var invoice *models.Invoice
	err := s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		inv, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if inv == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		if inv.Status == enums.InvoiceStatusVoid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "invoice is already void").
				WithDetails(map[string]any{"invoice_no": inv.InvoiceNo})
		}

		note := fmt.Sprintf("void of %s", inv.InvoiceNo)
		if trimmed := strings.TrimSpace(reason); trimmed != "" {
			note = fmt.Sprintf("%s: %s", note, trimmed)
		}

		for _, item := range inv.Items {
			if _, err := s.ledgerSvc.Apply(ctx, tx, ledger.MovementInput{
				ProductID:      item.ProductID,
				Kind:           enums.MovementKindAdjustment,
				Quantity:       item.Qty,
				UnitPriceCents: item.UnitPriceCents,
				InvoiceID:      &inv.ID,
				Note:           &note,
			}); err != nil {
				return err
			}
		}

		if err := repo.UpdateStatus(ctx, inv.ID, enums.InvoiceStatusVoid); err != nil {
			return err
		}
		inv.Status = enums.InvoiceStatusVoid
		invoice = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.mtx.IncCommit("invoice_void")
	return invoice, nil
}

func (s *service) GetInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
	}
	return invoice, nil
}

func (s *service) GetInvoiceByNumber(ctx context.Context, invoiceNo string) (*models.Invoice, error) {
	invoiceNo = strings.TrimSpace(invoiceNo)
	if invoiceNo == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice number is required")
	}
	invoice, err := s.repo.FindByNumber(ctx, invoiceNo)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
	}
	return invoice, nil
}

func (s *service) ListInvoices(ctx context.Context, filter ListFilter) ([]models.Invoice, string, error) {
	invoices, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, "", err
	}

	limit := pagination.NormalizeLimit(filter.Page.Limit)
	next := ""
	if len(invoices) > limit {
		invoices = invoices[:limit]
		last := invoices[len(invoices)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return invoices, next, nil
}
