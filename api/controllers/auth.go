package controllers

import (
	"net/http"
	"time"

	"github.com/rverduzco/stockroom-backend/api/responses"
	"github.com/rverduzco/stockroom-backend/api/validators"
	"github.com/rverduzco/stockroom-backend/internal/settings"
	pkgauth "github.com/rverduzco/stockroom-backend/pkg/auth"
	"github.com/rverduzco/stockroom-backend/pkg/config"
	pkgerrors "github.com/rverduzco/stockroom-backend/pkg/errors"
	"github.com/rverduzco/stockroom-backend/pkg/logger"
)

type loginRequest struct {
	Password string `json:"password" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

// AuthLogin verifies the admin password and issues a bearer token.
func AuthLogin(settingsSvc settings.Service, jwtCfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req loginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		ok, err := settingsSvc.VerifyAdminPassword(ctx, req.Password)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials"))
			return
		}

		token, err := pkgauth.MintAccessToken(jwtCfg, time.Now().UTC())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"access_token": token,
			"expires_in":   int(jwtCfg.Expiration().Seconds()),
		})
	}
}

// AuthChangePassword rotates the admin credential.
func AuthChangePassword(settingsSvc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req changePasswordRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := settingsSvc.ChangeAdminPassword(ctx, req.CurrentPassword, req.NewPassword); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "password changed"})
	}
}
