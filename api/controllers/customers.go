package controllers

import (
	"net/http"

	"github.com/rverduzco/stockroom-backend/api/responses"
	"github.com/rverduzco/stockroom-backend/api/validators"
	"github.com/rverduzco/stockroom-backend/internal/customers"
	"github.com/rverduzco/stockroom-backend/pkg/logger"
)

// CreateCustomer adds a customer book entry.
func CreateCustomer(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req customers.CreateCustomerInput
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		customer, err := svc.CreateCustomer(ctx, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, customer)
	}
}

// UpdateCustomer applies a partial edit.
func UpdateCustomer(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := parseIDParam(r, "customerID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req customers.UpdateCustomerInput
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		customer, err := svc.UpdateCustomer(ctx, id, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}

// GetCustomer fetches one customer.
func GetCustomer(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := parseIDParam(r, "customerID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		customer, err := svc.GetCustomer(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}

// ListCustomers supports name and phone search.
func ListCustomers(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		list, next, err := svc.ListCustomers(ctx, customers.ListFilter{
			Query: r.URL.Query().Get("q"),
			Page:  pageParams(r),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"customers":   list,
			"next_cursor": next,
		})
	}
}
