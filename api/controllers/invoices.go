package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rverduzco/stockroom-backend/api/responses"
	"github.com/rverduzco/stockroom-backend/api/validators"
	"github.com/rverduzco/stockroom-backend/internal/invoices"
	"github.com/rverduzco/stockroom-backend/pkg/enums"
	pkgerrors "github.com/rverduzco/stockroom-backend/pkg/errors"
	"github.com/rverduzco/stockroom-backend/pkg/logger"
)

type voidInvoiceRequest struct {
	Reason string `json:"reason"`
}

// CreateInvoice finalizes a multi-line sale in one transaction.
func CreateInvoice(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req invoices.CreateInvoiceInput
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		invoice, err := svc.CreateInvoice(ctx, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, invoice)
	}
}

// VoidInvoice reverses a finalized invoice.
func VoidInvoice(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := parseIDParam(r, "invoiceID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req voidInvoiceRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		invoice, err := svc.VoidInvoice(ctx, id, req.Reason)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}

// GetInvoice fetches one invoice with its lines.
func GetInvoice(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := parseIDParam(r, "invoiceID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		invoice, err := svc.GetInvoice(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}

// GetInvoiceByNumber resolves a printed invoice number.
func GetInvoiceByNumber(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		invoice, err := svc.GetInvoiceByNumber(ctx, chi.URLParam(r, "invoiceNo"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}

// ListInvoices supports status, customer, and date filters.
func ListInvoices(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		query := r.URL.Query()

		filter := invoices.ListFilter{Page: pageParams(r)}

		if raw := query.Get("status"); raw != "" {
			status, err := enums.ParseInvoiceStatus(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			filter.Status = status
		}
		if raw := query.Get("customer_id"); raw != "" {
			customerID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer_id"))
				return
			}
			filter.CustomerID = customerID
		}

		from, to, err := parseDateRange(query.Get("from"), query.Get("to"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		filter.From = from
		filter.To = to

		list, next, err := svc.ListInvoices(ctx, filter)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"invoices":    list,
			"next_cursor": next,
		})
	}
}

// parseDateRange accepts RFC3339 timestamps or plain dates; both bounds are
// optional.
func parseDateRange(fromRaw, toRaw string) (*time.Time, *time.Time, error) {
	parse := func(value, name string) (*time.Time, error) {
		if value == "" {
			return nil, nil
		}
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			return &t, nil
		}
		if t, err := time.Parse("2006-01-02", value); err == nil {
			return &t, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+name+" date")
	}

	from, err := parse(fromRaw, "from")
	if err != nil {
		return nil, nil, err
	}
	to, err := parse(toRaw, "to")
	if err != nil {
		return nil, nil, err
	}
	if from != nil && to != nil && !from.Before(*to) {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "from must precede to")
	}
	return from, to, nil
}
