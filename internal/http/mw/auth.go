// Package mw contains HTTP middleware for the nanobanana-api.
package mw

import (
	"context"
	"net/http"
	"strings"

	"github.com/nanobanana/nanobanana-api/internal/auth"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// UserClaimsKey is the context key for user claims.
	UserClaimsKey ContextKey = "user_claims"
)

// UserClaims represents the authenticated user for a request.
type UserClaims struct {
	UserID string // Supabase user ID (sub claim)
	Email  string
	Name   string
	Admin  bool // From service_role or app_metadata.admin
}

// Auth returns an authentication middleware that validates Supabase
// session JWTs from the Authorization header.
func Auth(verifier *auth.SupabaseVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}

			token := authHeader
			if strings.HasPrefix(authHeader, "Bearer ") {
				token = strings.TrimPrefix(authHeader, "Bearer ")
			}

			claims, err := validateSupabaseToken(verifier, token)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validateSupabaseToken validates a Supabase JWT and converts to UserClaims.
func validateSupabaseToken(verifier *auth.SupabaseVerifier, tokenString string) (*UserClaims, error) {
	if verifier == nil {
		return nil, auth.ErrInvalidToken
	}
	sc, err := verifier.VerifyToken(tokenString)
	if err != nil {
		return nil, err
	}

	return &UserClaims{
		UserID: sc.UserID(),
		Email:  sc.Email,
		Name:   sc.DisplayName(),
		Admin:  sc.IsAdmin(),
	}, nil
}

// GetUserClaims retrieves user claims from context.
func GetUserClaims(ctx context.Context) *UserClaims {
	claims, ok := ctx.Value(UserClaimsKey).(*UserClaims)
	if !ok {
		return nil
	}
	return claims
}

// RequireAdmin returns middleware that requires admin access.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetUserClaims(r.Context())
			if claims == nil || !claims.Admin {
				http.Error(w, `{"error":"admin access required"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OptionalAuth validates auth if present but allows unauthenticated
// requests through without claims.
func OptionalAuth(verifier *auth.SupabaseVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := authHeader
			if strings.HasPrefix(authHeader, "Bearer ") {
				token = strings.TrimPrefix(authHeader, "Bearer ")
			}

			if claims, err := validateSupabaseToken(verifier, token); err == nil {
				ctx := context.WithValue(r.Context(), UserClaimsKey, claims)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
