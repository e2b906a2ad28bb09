package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rverduzco/stockroom-backend/pkg/enums"
)

// Invoice is a finalized multi-line sale. Voiding flips Status and appends
// compensating ledger entries; the row itself is never deleted.
type Invoice struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	InvoiceNo     string              `gorm:"column:invoice_no;not null;uniqueIndex"`
	CustomerID    *uuid.UUID          `gorm:"column:customer_id;type:uuid;index"`
	Status        enums.InvoiceStatus `gorm:"column:status;not null"`
	SubtotalCents int64               `gorm:"column:subtotal_cents;not null"`
	TaxCents      int64               `gorm:"column:tax_cents;not null"`
	TotalCents    int64               `gorm:"column:total_cents;not null"`
	Notes         *string             `gorm:"column:notes"`
	Items         []InvoiceItem       `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *Invoice) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// InvoiceItem captures the price and tax rate at invoice time; later catalog
// edits do not touch it.
type InvoiceItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	InvoiceID      uuid.UUID `gorm:"column:invoice_id;type:uuid;not null;index"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Qty            int       `gorm:"column:qty;not null"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents;not null"`
	TaxRatePercent float64   `gorm:"column:tax_rate_percent;not null"`
	TaxCents       int64     `gorm:"column:tax_cents;not null"`
	LineTotalCents int64     `gorm:"column:line_total_cents;not null"`
}

func (i *InvoiceItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
