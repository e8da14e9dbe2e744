package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
)

type callerKey struct{}

// RequireAdminJWT guards admin endpoints with a bearer token signed by the
// operator's HMAC key. The subject claim carries the caller's account address,
// which is placed in the context; the services decide whether that account is
// actually the admin. Transport auth and role checks stay separate on purpose.
func RequireAdminJWT(signingKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if raw == "" || raw == r.Header.Get("Authorization") {
				unauthorized(w, logger, r, "missing bearer token")
				return
			}

			token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(signingKey), nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				unauthorized(w, logger, r, "invalid bearer token")
				return
			}

			sub, err := token.Claims.GetSubject()
			if err != nil || !common.IsHexAddress(sub) {
				unauthorized(w, logger, r, "token subject is not an account address")
				return
			}

			ctx := context.WithValue(r.Context(), callerKey{}, common.HexToAddress(sub))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetCaller retrieves the authenticated caller address from the context.
// The zero address means no authenticated caller is present.
func GetCaller(ctx context.Context) common.Address {
	if addr, ok := ctx.Value(callerKey{}).(common.Address); ok {
		return addr
	}
	return common.Address{}
}

func unauthorized(w http.ResponseWriter, logger *slog.Logger, r *http.Request, reason string) {
	logger.WarnContext(r.Context(), "admin auth rejected",
		"reason", reason,
		"request_id", GetRequestID(r.Context()),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
}
