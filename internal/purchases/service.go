package purchases

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rverduzco/stockroom-backend/internal/ledger"
	"github.com/rverduzco/stockroom-backend/pkg/db"
	"github.com/rverduzco/stockroom-backend/pkg/db/models"
	"github.com/rverduzco/stockroom-backend/pkg/enums"
	pkgerrors "github.com/rverduzco/stockroom-backend/pkg/errors"
	"github.com/rverduzco/stockroom-backend/pkg/metrics"
	"github.com/rverduzco/stockroom-backend/pkg/money"
	"github.com/rverduzco/stockroom-backend/pkg/pagination"
)

// Service defines stock-in operations. A purchase commits its header, lines,
// and ledger entries in one transaction, mirroring invoice creation.
type Service interface {
	CreatePurchase(ctx context.Context, input CreatePurchaseInput) (*models.Purchase, error)
	GetPurchase(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	ListPurchases(ctx context.Context, filter ListFilter) ([]models.Purchase, string, error)
}

// LineInput is one received line.
type LineInput struct {
	ProductID     uuid.UUID `json:"product_id" validate:"required"`
	Qty           int       `json:"qty" validate:"gt=0"`
	UnitCostCents int64     `json:"unit_cost_cents" validate:"gte=0"`
}

// CreatePurchaseInput carries a supplier delivery.
type CreatePurchaseInput struct {
	BillNo   *string     `json:"bill_no"`
	Supplier *string     `json:"supplier"`
	Notes    *string     `json:"notes"`
	Lines    []LineInput `json:"lines" validate:"required,min=1,dive"`
}

type service struct {
	repo      Repository
	ledgerSvc ledger.Service
	tx        *db.Client
	mtx       *metrics.LedgerMetrics
}

// NewService wires a purchase service with its collaborators.
func NewService(repo Repository, ledgerSvc ledger.Service, txRunner *db.Client, mtx *metrics.LedgerMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("purchase repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if txRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, ledgerSvc: ledgerSvc, tx: txRunner, mtx: mtx}, nil
}

func (s *service) CreatePurchase(ctx context.Context, input CreatePurchaseInput) (*models.Purchase, error) {
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase needs at least one line")
	}
	for i, line := range input.Lines {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: product id is required", i))
		}
		if line.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: qty must be positive", i))
		}
		if line.UnitCostCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: unit cost must not be negative", i))
		}
	}

	started := time.Now()
	var purchase *models.Purchase
	err := s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		p := &models.Purchase{
			BillNo:   input.BillNo,
			Supplier: input.Supplier,
			Notes:    input.Notes,
		}
		for _, line := range input.Lines {
			p.Items = append(p.Items, models.PurchaseItem{
				ProductID:     line.ProductID,
				Qty:           line.Qty,
				UnitCostCents: line.UnitCostCents,
			})
			p.SubtotalCents += money.LineSubtotal(line.Qty, line.UnitCostCents)
		}

		if err := s.repo.WithTx(tx).Create(ctx, p); err != nil {
			return err
		}

		for _, item := range p.Items {
			if _, err := s.ledgerSvc.Apply(ctx, tx, ledger.MovementInput{
				ProductID:      item.ProductID,
				Kind:           enums.MovementKindPurchase,
				Quantity:       item.Qty,
				UnitPriceCents: item.UnitCostCents,
				PurchaseID:     &p.ID,
				RequireActive:  true,
			}); err != nil {
				return err
			}
		}

		purchase = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.mtx.IncCommit("purchase_create")
	s.mtx.ObserveTx("purchase_create", time.Since(started))
	return purchase, nil
}

func (s *service) GetPurchase(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase id is required")
	}
	purchase, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if purchase == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
	}
	return purchase, nil
}

func (s *service) ListPurchases(ctx context.Context, filter ListFilter) ([]models.Purchase, string, error) {
	list, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, "", err
	}

	limit := pagination.NormalizeLimit(filter.Page.Limit)
	next := ""
	if len(list) > limit {
		list = list[:limit]
		last := list[len(list)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return list, next, nil
}
