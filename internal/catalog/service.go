package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rverduzco/stockroom-backend/pkg/db"
	"github.com/rverduzco/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/rverduzco/stockroom-backend/pkg/errors"
	"github.com/rverduzco/stockroom-backend/pkg/pagination"
)

// Service defines catalog operations. Products referenced by ledger entries
// are deactivated rather than deleted so history stays resolvable.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*models.Product, error)
	ListProducts(ctx context.Context, filter ListFilter) ([]models.Product, string, error)
}

type service struct {
	repo Repository
}

// CreateProductInput carries the catalog fields for a new product.
type CreateProductInput struct {
	Name              string  `json:"name" validate:"required"`
	Category          *string `json:"category"`
	Unit              string  `json:"unit"`
	Barcode           *string `json:"barcode"`
	PriceCents        int64   `json:"price_cents" validate:"gte=0"`
	TaxRatePercent    float64 `json:"tax_rate_percent" validate:"gte=0,lte=100"`
	LowStockThreshold int     `json:"low_stock_threshold" validate:"gte=0"`
}

// UpdateProductInput applies a partial edit; nil fields are left untouched.
type UpdateProductInput struct {
	Name              *string  `json:"name"`
	Category          *string  `json:"category"`
	Unit              *string  `json:"unit"`
	Barcode           *string  `json:"barcode"`
	PriceCents        *int64   `json:"price_cents"`
	TaxRatePercent    *float64 `json:"tax_rate_percent"`
	LowStockThreshold *int     `json:"low_stock_threshold"`
}

// NewService wires a catalog service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if input.PriceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if input.TaxRatePercent < 0 || input.TaxRatePercent > 100 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tax rate must be between 0 and 100")
	}
	if input.LowStockThreshold < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "low stock threshold must not be negative")
	}

	unit := strings.TrimSpace(input.Unit)
	if unit == "" {
		unit = "pcs"
	}

	product := &models.Product{
		Name:              input.Name,
		Category:          input.Category,
		Unit:              unit,
		Barcode:           normalizeBarcode(input.Barcode),
		PriceCents:        input.PriceCents,
		TaxRatePercent:    input.TaxRatePercent,
		LowStockThreshold: input.LowStockThreshold,
		Active:            true,
	}

	if err := s.repo.Create(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "product name or barcode already in use")
		}
		return nil, err
	}
	return product, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name must not be empty")
		}
		product.Name = name
	}
	if input.Category != nil {
		product.Category = input.Category
	}
	if input.Unit != nil {
		unit := strings.TrimSpace(*input.Unit)
		if unit == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit must not be empty")
		}
		product.Unit = unit
	}
	if input.Barcode != nil {
		product.Barcode = normalizeBarcode(input.Barcode)
	}
	if input.PriceCents != nil {
		if *input.PriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
		}
		product.PriceCents = *input.PriceCents
	}
	if input.TaxRatePercent != nil {
		if *input.TaxRatePercent < 0 || *input.TaxRatePercent > 100 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "tax rate must be between 0 and 100")
		}
		product.TaxRatePercent = *input.TaxRatePercent
	}
	if input.LowStockThreshold != nil {
		if *input.LowStockThreshold < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "low stock threshold must not be negative")
		}
		product.LowStockThreshold = *input.LowStockThreshold
	}

	if err := s.repo.Update(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "product name or barcode already in use")
		}
		return nil, err
	}
	return product, nil
}

func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if product.Active == active {
		return product, nil
	}

	product.Active = active
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *service) GetProductByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "barcode is required")
	}
	product, err := s.repo.FindByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *service) ListProducts(ctx context.Context, filter ListFilter) ([]models.Product, string, error) {
	products, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, "", err
	}

	limit := pagination.NormalizeLimit(filter.Page.Limit)
	next := ""
	if len(products) > limit {
		products = products[:limit]
		last := products[len(products)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return products, next, nil
}

func normalizeBarcode(barcode *string) *string {
	if barcode == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*barcode)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
