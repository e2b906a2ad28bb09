package controllers

import (
	"net/http"

	"github.com/rverduzco/stockroom-backend/api/responses"
	"github.com/rverduzco/stockroom-backend/api/validators"
	"github.com/rverduzco/stockroom-backend/internal/purchases"
	"github.com/rverduzco/stockroom-backend/pkg/logger"
)

// CreatePurchase records a supplier delivery in one transaction.
func CreatePurchase(svc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req purchases.CreatePurchaseInput
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		purchase, err := svc.CreatePurchase(ctx, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, purchase)
	}
}

// GetPurchase fetches one purchase with its lines.
func GetPurchase(svc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := parseIDParam(r, "purchaseID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		purchase, err := svc.GetPurchase(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, purchase)
	}
}

// ListPurchases supports supplier and date filters.
func ListPurchases(svc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		query := r.URL.Query()

		from, to, err := parseDateRange(query.Get("from"), query.Get("to"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		list, next, err := svc.ListPurchases(ctx, purchases.ListFilter{
			Supplier: query.Get("supplier"),
			From:     from,
			To:       to,
			Page:     pageParams(r),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"purchases":   list,
			"next_cursor": next,
		})
	}
}
