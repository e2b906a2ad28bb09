package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Purchase is the supplier-side counterpart to Invoice: header plus lines,
// driving purchase-kind ledger entries.
type Purchase struct {
	ID            uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	BillNo        *string        `gorm:"column:bill_no"`
	Supplier      *string        `gorm:"column:supplier"`
	Notes         *string        `gorm:"column:notes"`
	SubtotalCents int64          `gorm:"column:subtotal_cents;not null;default:0"`
	Items         []PurchaseItem `gorm:"foreignKey:PurchaseID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (p *Purchase) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type PurchaseItem struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PurchaseID    uuid.UUID `gorm:"column:purchase_id;type:uuid;not null;index"`
	ProductID     uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Qty           int       `gorm:"column:qty;not null"`
	UnitCostCents int64     `gorm:"column:unit_cost_cents;not null;default:0"`
}

func (p *PurchaseItem) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
