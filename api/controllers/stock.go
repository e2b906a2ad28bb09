package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rverduzco/stockroom-backend/api/responses"
	"github.com/rverduzco/stockroom-backend/api/validators"
	"github.com/rverduzco/stockroom-backend/internal/ledger"
	pkgerrors "github.com/rverduzco/stockroom-backend/pkg/errors"
	"github.com/rverduzco/stockroom-backend/pkg/logger"
)

type adjustmentRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required"`
	Note      string    `json:"note"`
}

// CreateAdjustment records a manual stock correction.
func CreateAdjustment(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req adjustmentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		movement, err := svc.RecordAdjustment(ctx, ledger.AdjustmentInput{
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
			Note:      req.Note,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, movement)
	}
}

// GetProductStock returns the derived stock for one product.
func GetProductStock(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := parseIDParam(r, "productID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		stock, err := svc.CurrentStock(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"product_id": id,
			"stock":      stock,
		})
	}
}

// ListProductMovements pages through a product's ledger history.
func ListProductMovements(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := parseIDParam(r, "productID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		from, to, err := parseDateRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		movements, next, err := svc.ListMovements(ctx, ledger.MovementFilter{
			ProductID: id,
			From:      from,
			To:        to,
			Page:      pageParams(r),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"movements":   movements,
			"next_cursor": next,
		})
	}
}

// ListStockLevels returns derived stock for every product. Inactive products
// are included when include_inactive is set.
func ListStockLevels(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		activeOnly := r.URL.Query().Get("include_inactive") == ""
		levels, err := svc.StockLevels(ctx, activeOnly)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stock levels query"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"levels": levels})
	}
}

// ListLowStock returns active products at or below their threshold.
func ListLowStock(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		items, err := svc.LowStock(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "low stock query"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}
