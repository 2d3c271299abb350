package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nanobanana/nanobanana-api/internal/auth"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signTestToken(t *testing.T, claims *auth.SupabaseClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func userToken(t *testing.T) string {
	t.Helper()
	return signTestToken(t, &auth.SupabaseClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email: "user@example.com",
		Role:  "authenticated",
	})
}

func claimsEcho(t *testing.T) (http.Handler, *UserClaims) {
	t.Helper()
	captured := &UserClaims{}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims := GetUserClaims(r.Context()); claims != nil {
			*captured = *claims
		}
		w.WriteHeader(http.StatusOK)
	})
	return handler, captured
}

func TestAuth_ValidToken(t *testing.T) {
	verifier := auth.NewSupabaseVerifier(testSecret)
	next, captured := claimsEcho(t)
	handler := Auth(verifier)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/credits", nil)
	req.Header.Set("Authorization", "Bearer "+userToken(t))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if captured.UserID != "user-123" {
		t.Errorf("UserID = %q, want user-123", captured.UserID)
	}
	if captured.Email != "user@example.com" {
		t.Errorf("Email = %q", captured.Email)
	}
	if captured.Admin {
		t.Error("Admin = true for regular user")
	}
}

func TestAuth_MissingHeader(t *testing.T) {
	verifier := auth.NewSupabaseVerifier(testSecret)
	handler := Auth(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler called without auth")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/credits", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuth_InvalidToken(t *testing.T) {
	verifier := auth.NewSupabaseVerifier(testSecret)
	handler := Auth(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler called with invalid token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/credits", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuth_BareTokenWithoutBearerPrefix(t *testing.T) {
	verifier := auth.NewSupabaseVerifier(testSecret)
	next, captured := claimsEcho(t)
	handler := Auth(verifier)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/credits", nil)
	req.Header.Set("Authorization", userToken(t))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if captured.UserID != "user-123" {
		t.Errorf("UserID = %q", captured.UserID)
	}
}

func TestRequireAdmin_AdminClaims(t *testing.T) {
	verifier := auth.NewSupabaseVerifier(testSecret)
	token := signTestToken(t, &auth.SupabaseClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		AppMetadata: map[string]interface{}{"admin": true},
	})

	called := false
	handler := Auth(verifier)(RequireAdmin()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/payments", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !called {
		t.Error("admin handler was not reached")
	}
}

func TestRequireAdmin_RegularUserForbidden(t *testing.T) {
	verifier := auth.NewSupabaseVerifier(testSecret)

	handler := Auth(verifier)(RequireAdmin()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("admin handler reached by non-admin")
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/payments", nil)
	req.Header.Set("Authorization", "Bearer "+userToken(t))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestRequireAdmin_NoClaims(t *testing.T) {
	handler := RequireAdmin()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("admin handler reached without claims")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/payments", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestOptionalAuth_NoHeaderPassesThrough(t *testing.T) {
	verifier := auth.NewSupabaseVerifier(testSecret)
	handler := OptionalAuth(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserClaims(r.Context()) != nil {
			t.Error("claims set without a token")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/pricing/plans", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestOptionalAuth_InvalidTokenStillPassesThrough(t *testing.T) {
	verifier := auth.NewSupabaseVerifier(testSecret)
	handler := OptionalAuth(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserClaims(r.Context()) != nil {
			t.Error("claims set for invalid token")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/pricing/plans", nil)
	req.Header.Set("Authorization", "Bearer junk")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
