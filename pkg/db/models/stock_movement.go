package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rverduzco/stockroom-backend/pkg/enums"
)

// StockMovement is one immutable, signed ledger entry. Corrections are new
// offsetting rows, never edits; current stock is always the sum of Quantity
// for a product.
type StockMovement struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	ProductID      uuid.UUID          `gorm:"column:product_id;type:uuid;not null;index"`
	Kind           enums.MovementKind `gorm:"column:kind;not null"`
	Quantity       int                `gorm:"column:quantity;not null"`
	UnitPriceCents int64              `gorm:"column:unit_price_cents;not null;default:0"`
	InvoiceID      *uuid.UUID         `gorm:"column:invoice_id;type:uuid;index"`
	PurchaseID     *uuid.UUID         `gorm:"column:purchase_id;type:uuid;index"`
	Note           *string            `gorm:"column:note"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (m *StockMovement) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
