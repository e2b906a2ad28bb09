package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rverduzco/stockroom-backend/pkg/db/models"
	"github.com/rverduzco/stockroom-backend/pkg/pagination"
)

// Repository manages the append-only stock movement ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, movement *models.StockMovement) error
	LockProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	SumQuantity(ctx context.Context, productID uuid.UUID) (int64, error)
	List(ctx context.Context, filter MovementFilter) ([]models.StockMovement, error)
	LowStock(ctx context.Context) ([]LowStockItem, error)
	StockLevels(ctx context.Context, activeOnly bool) ([]StockLevel, error)
}

// MovementFilter narrows ledger listings.
type MovementFilter struct {
	ProductID uuid.UUID
	From      *time.Time
	To        *time.Time
	Page      pagination.Params
}

// StockLevel is one product's derived stock, summed from its movements.
type StockLevel struct {
	ProductID         uuid.UUID `gorm:"column:product_id"`
	Name              string    `gorm:"column:name"`
	Unit              string    `gorm:"column:unit"`
	Stock             int64     `gorm:"column:stock"`
	LowStockThreshold int       `gorm:"column:low_stock_threshold"`
	Active            bool      `gorm:"column:active"`
}

// LowStockItem is a product whose current stock is at or below its threshold.
type LowStockItem struct {
	ProductID         uuid.UUID `gorm:"column:product_id"`
	Name              string    `gorm:"column:name"`
	Unit              string    `gorm:"column:unit"`
	Stock             int64     `gorm:"column:stock"`
	LowStockThreshold int       `gorm:"column:low_stock_threshold"`
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, movement *models.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

// LockProduct loads the product row and, on postgres, takes a row lock so
// concurrent sufficiency checks for the same product serialize. sqlite
// serializes writers on its own and rejects FOR UPDATE syntax.
func (r *repository) LockProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var product models.Product
	if err := query.First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (r *repository) SumQuantity(ctx context.Context, productID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.StockMovement{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repository) List(ctx context.Context, filter MovementFilter) ([]models.StockMovement, error) {
	query := r.db.WithContext(ctx).Model(&models.StockMovement{})

	if filter.ProductID != uuid.Nil {
		query = query.Where("product_id = ?", filter.ProductID)
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

	var movements []models.StockMovement
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(filter.Page.Limit)).
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// StockLevels sums the ledger per product in one query. Never-stocked
// products appear with zero stock.
func (r *repository) StockLevels(ctx context.Context, activeOnly bool) ([]StockLevel, error) {
	query := r.db.WithContext(ctx).
		Table("products").
		Select("products.id AS product_id, products.name, products.unit, products.low_stock_threshold, products.active, COALESCE(SUM(stock_movements.quantity), 0) AS stock").
		Joins("LEFT JOIN stock_movements ON stock_movements.product_id = products.id").
		Group("products.id, products.name, products.unit, products.low_stock_threshold, products.active").
		Order("products.name ASC")
	if activeOnly {
		query = query.Where("products.active = ?", true)
	}

	var levels []StockLevel
	if err := query.Scan(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

// LowStock compares each active product's summed ledger quantity against its
// threshold. Products at exactly the threshold are included.
func (r *repository) LowStock(ctx context.Context) ([]LowStockItem, error) {
	var items []LowStockItem
	err := r.db.WithContext(ctx).
		Table("products").
		Select("products.id AS product_id, products.name, products.unit, products.low_stock_threshold, COALESCE(SUM(stock_movements.quantity), 0) AS stock").
		Joins("LEFT JOIN stock_movements ON stock_movements.product_id = products.id").
		Where("products.active = ?", true).
		Group("products.id, products.name, products.unit, products.low_stock_threshold").
		Having("COALESCE(SUM(stock_movements.quantity), 0) <= products.low_stock_threshold").
		Order("stock ASC, products.name ASC").
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
