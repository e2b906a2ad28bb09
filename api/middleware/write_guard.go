package middleware

import (
	"net/http"

	"github.com/rverduzco/stockroom-backend/api/responses"
	"github.com/rverduzco/stockroom-backend/internal/backup"
	"github.com/rverduzco/stockroom-backend/pkg/logger"
)

// WriteGuard blocks mutating requests while a backup is running and after a
// restore has swapped the datastore underneath the process.
func WriteGuard(guard *backup.Guard, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
				if err := guard.CheckWritable(r.Context()); err != nil {
					responses.WriteError(r.Context(), logg, w, err)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
