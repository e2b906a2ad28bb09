package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rverduzco/stockroom-backend/pkg/db/models"
	"github.com/rverduzco/stockroom-backend/pkg/enums"
	"github.com/rverduzco/stockroom-backend/pkg/pagination"
)

// Repository manages invoice persistence and number allocation.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, invoice *models.Invoice) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.InvoiceStatus) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	FindByNumber(ctx context.Context, invoiceNo string) (*models.Invoice, error)
	List(ctx context.Context, filter ListFilter) ([]models.Invoice, error)
	AllocateNumber(ctx context.Context) (int64, error)
}

// ListFilter narrows invoice listings.
type ListFilter struct {
	Status     enums.InvoiceStatus
	CustomerID uuid.UUID
	From       *time.Time
	To         *time.Time
	Page       pagination.Params
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an invoice repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.InvoiceStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).Preload("Items").First(&invoice, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) FindByNumber(ctx context.Context, invoiceNo string) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).Preload("Items").First(&invoice, "invoice_no = ?", invoiceNo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Invoice, error) {
	query := r.db.WithContext(ctx).Model(&models.Invoice{}).Preload("Items")

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CustomerID != uuid.Nil {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}

	cursor, err := pagination.ParseCursor(filter.Page.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var invoices []models.Invoice
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(filter.Page.Limit)).
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// AllocateNumber increments the persisted counter and returns the claimed
// value. The UPDATE takes the row lock first, so concurrent allocations in
// open transactions serialize; counting invoice rows would hand out
// duplicates after a void or a crash.
func (r *repository) AllocateNumber(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Exec(
		"UPDATE invoice_sequences SET next_number = next_number + 1 WHERE id = ?",
		models.InvoiceSequenceRowID,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		// Fresh datastore without the seeded row.
		seq := models.InvoiceSequence{ID: models.InvoiceSequenceRowID, NextNumber: 2}
		if err := r.db.WithContext(ctx).Create(&seq).Error; err != nil {
			return 0, fmt.Errorf("seeding invoice sequence: %w", err)
		}
		return 1, nil
	}

	var next int64
	err := r.db.WithContext(ctx).
		Model(&models.InvoiceSequence{}).
		Where("id = ?", models.InvoiceSequenceRowID).
		Select("next_number").
		Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next - 1, nil
}
