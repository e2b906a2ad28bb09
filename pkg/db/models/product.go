package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is a catalog entry. Rows are never hard-deleted once referenced by
// ledger entries; Active is flipped off instead so history stays resolvable.
type Product struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name              string    `gorm:"column:name;not null;uniqueIndex"`
	Category          *string   `gorm:"column:category"`
	Unit              string    `gorm:"column:unit;not null;default:pcs"`
	// NULL barcodes stay distinct under the unique index on both drivers,
	// matching the partial index in the SQL migration.
	Barcode           *string   `gorm:"column:barcode;uniqueIndex"`
	PriceCents        int64     `gorm:"column:price_cents;not null;default:0"`
	TaxRatePercent    float64   `gorm:"column:tax_rate_percent;not null;default:0"`
	LowStockThreshold int       `gorm:"column:low_stock_threshold;not null;default:0"`
	Active            bool      `gorm:"column:active;not null;default:true"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
