package controllers

import (
	"net/http"

	"github.com/rverduzco/stockroom-backend/api/responses"
	"github.com/rverduzco/stockroom-backend/internal/backup"
	"github.com/rverduzco/stockroom-backend/pkg/logger"
)

// BackupQuiesce pauses writes so the datastore file can be copied.
func BackupQuiesce(guard *backup.Guard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		guard.Quiesce()
		responses.WriteSuccess(w, map[string]any{"quiesced": true})
	}
}

// BackupResume re-enables writes after a backup.
func BackupResume(guard *backup.Guard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guard.Resume()

		// A resume after restore must fail fast rather than accept writes
		// against a swapped datastore.
		if err := guard.Verify(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"quiesced": false})
	}
}

// BackupStatus reports the guard state.
func BackupStatus(guard *backup.Guard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stale := false
		if err := guard.Verify(r.Context()); err != nil {
			stale = true
		}
		responses.WriteSuccess(w, map[string]any{
			"quiesced": guard.Quiesced(),
			"stale":    stale,
		})
	}
}
