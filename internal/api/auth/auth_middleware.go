package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nepabhay/account-service/config"
	"github.com/nepabhay/account-service/internal/api"
	"github.com/nepabhay/account-service/internal/types"
)

// Authenticate validates the bearer token and stashes the caller's identity
// and role in the request context.
func Authenticate(jwtCfg config.JWTConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authorization header required")
				return
			}

			tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found {
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authorization header must be a bearer token")
				return
			}

			claims := &types.Claims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(jwtCfg.SecretKey), nil
			}, jwt.WithIssuer(jwtCfg.Issuer))
			if err != nil || !token.Valid {
				logger.WarnContext(r.Context(), "Rejected invalid token", slog.Any("error", err))
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			if !api.VerifyAudience(claims.Audience, jwtCfg.Audience) {
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Token audience mismatch")
				return
			}

			ctx := api.WithUserID(r.Context(), claims.UserID)
			ctx = api.WithUserRole(ctx, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates a route group on the administrator role. Must run after
// Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := api.GetUserRoleFromContext(r.Context())
		if !ok || role != string(types.RoleAdmin) {
			api.ErrorResponse(w, r, http.StatusForbidden, "Administrator access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
