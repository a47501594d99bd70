package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/mesflow-backend/api/responses"
	"github.com/angelmondragon/mesflow-backend/pkg/auth"
	"github.com/angelmondragon/mesflow-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/mesflow-backend/pkg/errors"
	"github.com/angelmondragon/mesflow-backend/pkg/logger"
)

// Auth requires a bearer token and puts its actor on the request context.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			claims, err := auth.Parse(cfg, raw, time.Now())
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, rejection(err)))
				return
			}

			ctx := WithActor(r.Context(), Actor{UserID: claims.UserID, CompanyID: claims.CompanyID})
			if logg != nil {
				ctx = logg.WithCompanyID(logg.WithUserID(ctx, claims.UserID.String()), claims.CompanyID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func rejection(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, auth.ErrMissingActor):
		return "token has no actor"
	default:
		return "invalid token"
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
