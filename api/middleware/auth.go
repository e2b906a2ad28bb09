package middleware

import (
	"net/http"

	"github.com/rverduzco/stockroom-backend/api/responses"
	pkgauth "github.com/rverduzco/stockroom-backend/pkg/auth"
	"github.com/rverduzco/stockroom-backend/pkg/config"
	pkgerrors "github.com/rverduzco/stockroom-backend/pkg/errors"
	"github.com/rverduzco/stockroom-backend/pkg/logger"
)

// Auth validates the admin bearer token.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := pkgauth.ExtractBearerToken(r.Header.Get("Authorization"))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			if _, err := pkgauth.ParseAccessToken(cfg, token); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
