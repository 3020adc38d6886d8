// Package middleware holds the HTTP middleware for the credential core.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	tokenservice "github.com/EdouardYu/ZeroDay/internal/token/service"
)

// Validator checks a presented bearer token and returns the identity it
// authorizes.
type Validator interface {
	Validate(ctx context.Context, raw string) (*tokenservice.Identity, error)
}

type ctxKey int

const identityKey ctxKey = iota

// Auth rejects requests without a valid Authorization: Bearer token and
// injects the authenticated identity into the request context. Signature and
// ownership failures are collapsed into a generic unauthorized response so
// callers cannot probe which check failed.
func Auth(v Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				unauthorized(w, "missing bearer token")
				return
			}

			id, err := v.Validate(r.Context(), raw)
			if err != nil {
				switch {
				case errors.Is(err, tokenservice.ErrExpiredToken):
					unauthorized(w, "expired token")
				case errors.Is(err, tokenservice.ErrUnknownToken):
					unauthorized(w, "unknown or revoked token")
				default:
					unauthorized(w, "unauthorized")
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
		})
	}
}

// IdentityFrom returns the authenticated identity injected by Auth.
func IdentityFrom(ctx context.Context) (*tokenservice.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*tokenservice.Identity)
	return id, ok
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return h[len(prefix):], true
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
