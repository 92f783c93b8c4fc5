package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/dailyblend/blender/internal/auth"
	domainerrors "github.com/dailyblend/blender/internal/errors"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// claimsKey is the context key for the verified token claims.
const claimsKey ctxKey = "claims"

// TokenVerifier checks bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// GetClaims returns the verified claims from context.
// Returns 401 error if the request carried no valid token.
func GetClaims(ctx context.Context) (*auth.Claims, error) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	if !ok || claims == nil {
		return nil, fromDomain(domainerrors.Unauthorized("Authentication required"))
	}
	return claims, nil
}

func setClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// authMiddleware validates Bearer tokens and stores the claims in context.
// If no token is present or invalid, continues without claims; handlers use
// RequireViewer or RequireOperator to reject.
func authMiddleware(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.Verify(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(setClaims(r.Context(), claims)))
		})
	}
}

// RequireViewer validates the caller holds any valid token.
func RequireViewer(ctx context.Context) (*auth.Claims, error) {
	return GetClaims(ctx)
}

// RequireOperator validates the caller may change selection state.
func RequireOperator(ctx context.Context) (*auth.Claims, error) {
	claims, err := GetClaims(ctx)
	if err != nil {
		return nil, err
	}
	if !claims.Role.CanMutate() {
		return nil, fromDomain(domainerrors.Forbidden("Operator role required"))
	}
	return claims, nil
}
