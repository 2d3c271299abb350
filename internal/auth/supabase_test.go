package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signToken(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func validClaims() *SupabaseClaims {
	return &SupabaseClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "a1b2c3d4-0000-0000-0000-000000000000",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Email: "user@example.com",
		Role:  "authenticated",
	}
}

func TestVerifyToken_Valid(t *testing.T) {
	verifier := NewSupabaseVerifier(testSecret)
	tokenString := signToken(t, testSecret, validClaims())

	claims, err := verifier.VerifyToken(tokenString)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.UserID() != "a1b2c3d4-0000-0000-0000-000000000000" {
		t.Errorf("UserID() = %q", claims.UserID())
	}
	if claims.Email != "user@example.com" {
		t.Errorf("Email = %q", claims.Email)
	}
	if claims.IsAdmin() {
		t.Error("IsAdmin() = true for regular user")
	}
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	verifier := NewSupabaseVerifier(testSecret)
	tokenString := signToken(t, "wrong-secret", validClaims())

	_, err := verifier.VerifyToken(tokenString)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyToken_Expired(t *testing.T) {
	verifier := NewSupabaseVerifier(testSecret)
	claims := validClaims()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	tokenString := signToken(t, testSecret, claims)

	_, err := verifier.VerifyToken(tokenString)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("error = %v, want ErrTokenExpired", err)
	}
}

func TestVerifyToken_MissingSubject(t *testing.T) {
	verifier := NewSupabaseVerifier(testSecret)
	claims := validClaims()
	claims.Subject = ""
	tokenString := signToken(t, testSecret, claims)

	_, err := verifier.VerifyToken(tokenString)
	if !errors.Is(err, ErrMissingClaims) {
		t.Fatalf("error = %v, want ErrMissingClaims", err)
	}
}

func TestVerifyToken_RejectsNonHMACAlgorithm(t *testing.T) {
	verifier := NewSupabaseVerifier(testSecret)

	// alg: none with an empty signature must never validate.
	token := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims())
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to build token: %v", err)
	}

	if _, err := verifier.VerifyToken(tokenString); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyToken_Garbage(t *testing.T) {
	verifier := NewSupabaseVerifier(testSecret)
	if _, err := verifier.VerifyToken("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("error = %v, want ErrInvalidToken", err)
	}
}

func TestIsAdmin(t *testing.T) {
	tests := []struct {
		name   string
		claims SupabaseClaims
		want   bool
	}{
		{"service role", SupabaseClaims{Role: "service_role"}, true},
		{"app_metadata admin", SupabaseClaims{AppMetadata: map[string]interface{}{"admin": true}}, true},
		{"app_metadata admin false", SupabaseClaims{AppMetadata: map[string]interface{}{"admin": false}}, false},
		{"admin as string ignored", SupabaseClaims{AppMetadata: map[string]interface{}{"admin": "true"}}, false},
		{"user_metadata admin ignored", SupabaseClaims{UserMetadata: map[string]interface{}{"admin": true}}, false},
		{"no metadata", SupabaseClaims{Role: "authenticated"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.claims.IsAdmin(); got != tt.want {
				t.Errorf("IsAdmin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name   string
		claims SupabaseClaims
		want   string
	}{
		{"full_name preferred", SupabaseClaims{UserMetadata: map[string]interface{}{"full_name": "Ada Lovelace", "name": "ada"}}, "Ada Lovelace"},
		{"name fallback", SupabaseClaims{UserMetadata: map[string]interface{}{"name": "ada"}}, "ada"},
		{"user_name fallback", SupabaseClaims{UserMetadata: map[string]interface{}{"user_name": "ada42"}}, "ada42"},
		{"empty values skipped", SupabaseClaims{UserMetadata: map[string]interface{}{"full_name": "", "name": "ada"}}, "ada"},
		{"no metadata", SupabaseClaims{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.claims.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}
