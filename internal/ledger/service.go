package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rverduzco/stockroom-backend/pkg/db"
	"github.com/rverduzco/stockroom-backend/pkg/db/models"
	"github.com/rverduzco/stockroom-backend/pkg/enums"
	pkgerrors "github.com/rverduzco/stockroom-backend/pkg/errors"
	"github.com/rverduzco/stockroom-backend/pkg/metrics"
	"github.com/rverduzco/stockroom-backend/pkg/pagination"
)

// Service defines operations over the stock movement ledger. Every write is
// a new signed row; rows are never edited or deleted.
type Service interface {
	// Apply records one movement inside the caller's transaction, enforcing
	// the non-negative stock invariant under the product row lock.
	Apply(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.StockMovement, error)
	RecordAdjustment(ctx context.Context, input AdjustmentInput) (*models.StockMovement, error)
	CurrentStock(ctx context.Context, productID uuid.UUID) (int64, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]models.StockMovement, string, error)
	LowStock(ctx context.Context) ([]LowStockItem, error)
	StockLevels(ctx context.Context, activeOnly bool) ([]StockLevel, error)
}

// MovementInput is one signed ledger entry: purchases positive, sales
// negative, adjustments either way.
type MovementInput struct {
	ProductID      uuid.UUID
	Kind           enums.MovementKind
	Quantity       int
	UnitPriceCents int64
	InvoiceID      *uuid.UUID
	PurchaseID     *uuid.UUID
	Note           *string

	// RequireActive rejects movements on deactivated products. Set for
	// sales and purchases; compensating adjustments skip it so voiding an
	// invoice still works after the product is retired.
	RequireActive bool
}

// AdjustmentInput is a manual stock correction.
type AdjustmentInput struct {
	ProductID uuid.UUID
	Quantity  int
	Note      string
}

type service struct {
	repo Repository
	tx   *db.Client
	mtx  *metrics.LedgerMetrics
}

// NewService wires a ledger service with its repository and transaction runner.
func NewService(repo Repository, txRunner *db.Client, mtx *metrics.LedgerMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if txRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: txRunner, mtx: mtx}, nil
}

func (s *service) Apply(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.StockMovement, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid movement kind %q", input.Kind))
	}
	if err := validateSign(input.Kind, input.Quantity); err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)

	product, err := repo.LockProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"product_id": input.ProductID})
	}
	if input.RequireActive && !product.Active {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "product is inactive").
			WithDetails(map[string]any{"product_id": input.ProductID, "name": product.Name})
	}

	// The check and the insert run under the same lock, so two concurrent
	// sales cannot both pass on the last unit.
	if input.Quantity < 0 {
		stock, err := repo.SumQuantity(ctx, input.ProductID)
		if err != nil {
			return nil, err
		}
		if stock+int64(input.Quantity) < 0 {
			s.mtx.IncInsufficientStock()
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
				WithDetails(map[string]any{
					"product_id": input.ProductID,
					"name":       product.Name,
					"available":  stock,
					"requested":  -input.Quantity,
				})
		}
	}

	movement := &models.StockMovement{
		ProductID:      input.ProductID,
		Kind:           input.Kind,
		Quantity:       input.Quantity,
		UnitPriceCents: input.UnitPriceCents,
		InvoiceID:      input.InvoiceID,
		PurchaseID:     input.PurchaseID,
		Note:           input.Note,
	}
	if err := repo.Create(ctx, movement); err != nil {
		return nil, err
	}
	return movement, nil
}

func (s *service) RecordAdjustment(ctx context.Context, input AdjustmentInput) (*models.StockMovement, error) {
	if input.Quantity == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment quantity must not be zero")
	}

	var note *string
	if trimmed := strings.TrimSpace(input.Note); trimmed != "" {
		note = &trimmed
	}

	var movement *models.StockMovement
	err := s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		var applyErr error
		movement, applyErr = s.Apply(ctx, tx, MovementInput{
			ProductID:     input.ProductID,
			Kind:          enums.MovementKindAdjustment,
			Quantity:      input.Quantity,
			Note:          note,
			RequireActive: true,
		})
		return applyErr
	})
	if err != nil {
		return nil, err
	}
	s.mtx.IncCommit("adjustment")
	return movement, nil
}

func (s *service) CurrentStock(ctx context.Context, productID uuid.UUID) (int64, error) {
	if productID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return s.repo.SumQuantity(ctx, productID)
}

func (s *service) ListMovements(ctx context.Context, filter MovementFilter) ([]models.StockMovement, string, error) {
	movements, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, "", err
	}

	limit := pagination.NormalizeLimit(filter.Page.Limit)
	next := ""
	if len(movements) > limit {
		movements = movements[:limit]
		last := movements[len(movements)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return movements, next, nil
}

func (s *service) LowStock(ctx context.Context) ([]LowStockItem, error) {
	return s.repo.LowStock(ctx)
}

func (s *service) StockLevels(ctx context.Context, activeOnly bool) ([]StockLevel, error) {
	return s.repo.StockLevels(ctx, activeOnly)
}

func validateSign(kind enums.MovementKind, quantity int) error {
	switch kind {
	case enums.MovementKindPurchase:
		if quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "purchase quantity must be positive")
		}
	case enums.MovementKindSale:
		if quantity >= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "sale quantity must be negative")
		}
	case enums.MovementKindAdjustment:
		if quantity == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "adjustment quantity must not be zero")
		}
	}
	return nil
}
