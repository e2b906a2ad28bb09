package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rverduzco/stockroom-backend/api/responses"
	"github.com/rverduzco/stockroom-backend/internal/reports"
	"github.com/rverduzco/stockroom-backend/pkg/logger"
)

const defaultReportWindow = 30 * 24 * time.Hour

// reportRange resolves the from/to query params, defaulting to the last 30
// days.
func reportRange(r *http.Request) (reports.Range, error) {
	from, to, err := parseDateRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		return reports.Range{}, err
	}

	now := time.Now().UTC()
	window := reports.Range{From: now.Add(-defaultReportWindow), To: now}
	if to != nil {
		window.To = *to
	}
	if from != nil {
		window.From = *from
	}
	return window, nil
}

// ReportSummary returns the dashboard KPIs.
func ReportSummary(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		window, err := reportRange(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		summary, err := svc.Summary(ctx, window)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// ReportSalesByDay returns per-day finalized sales.
func ReportSalesByDay(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		window, err := reportRange(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		days, err := svc.SalesByDay(ctx, window)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"days": days})
	}
}

// ReportTopProducts ranks products by quantity sold.
func ReportTopProducts(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		window, err := reportRange(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		top, err := svc.TopProducts(ctx, window, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"products": top})
	}
}

// ExportInvoiceLines streams a CSV of invoice lines in the window.
func ExportInvoiceLines(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		window, err := reportRange(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		writeCSVHeaders(w, "sales.csv")
		if err := svc.ExportInvoiceLinesCSV(ctx, window, w); err != nil {
			if logg != nil {
				logg.Error(ctx, "csv export failed", err)
			}
		}
	}
}

// ExportPurchaseLines streams a CSV of stock-in lines in the window.
func ExportPurchaseLines(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		window, err := reportRange(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		writeCSVHeaders(w, "purchases.csv")
		if err := svc.ExportPurchaseLinesCSV(ctx, window, w); err != nil {
			if logg != nil {
				logg.Error(ctx, "csv export failed", err)
			}
		}
	}
}

// ExportProducts streams the full catalog with derived stock as CSV.
func ExportProducts(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		writeCSVHeaders(w, "products.csv")
		if err := svc.ExportProductsCSV(ctx, w); err != nil {
			if logg != nil {
				logg.Error(ctx, "csv export failed", err)
			}
		}
	}
}

func writeCSVHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
}
