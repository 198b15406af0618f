package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	id "pharmledger/pkg/domain"
	"pharmledger/pkg/requestcontext"
)

// RequireAuth validates the bearer token and places the caller's account
// address into the request context. Wallet authentication itself happens
// upstream (the UI signs in and exchanges the wallet signature for a JWT);
// here we only trust the `sub` claim after signature verification.
func RequireAuth(signingKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(signingKey), nil
			})
			if err != nil || !token.Valid {
				logger.WarnContext(r.Context(), "rejected bearer token",
					"request_id", requestcontext.RequestID(r.Context()),
					"error", err,
				)
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			sub, err := claims.GetSubject()
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			acct, err := id.ParseAccount(sub)
			if err != nil {
				http.Error(w, "token subject is not an account address", http.StatusUnauthorized)
				return
			}

			ctx := requestcontext.WithAccount(r.Context(), acct)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
