package controllers

import (
	"net/http"

	"github.com/rverduzco/stockroom-backend/api/responses"
	"github.com/rverduzco/stockroom-backend/internal/backup"
	"github.com/rverduzco/stockroom-backend/pkg/config"
	"github.com/rverduzco/stockroom-backend/pkg/db"
	"github.com/rverduzco/stockroom-backend/pkg/logger"
)

// HealthLive reports that the process is up.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"status": "ok",
			"env":    cfg.App.Env,
		})
	}
}

// HealthReady checks the datastore and the backup guard before reporting
// ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, guard *backup.Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := dbP.Ping(ctx); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := guard.Verify(ctx); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{
			"status": "ready",
			"env":    cfg.App.Env,
		})
	}
}
