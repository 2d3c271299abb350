// Package auth handles session verification against Supabase.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")
	ErrMissingClaims = errors.New("missing required claims")
)

// SupabaseClaims represents the claims in a Supabase (GoTrue) access token.
type SupabaseClaims struct {
	jwt.RegisteredClaims
	Email        string                 `json:"email,omitempty"`
	Phone        string                 `json:"phone,omitempty"`
	Role         string                 `json:"role,omitempty"`
	AppMetadata  map[string]interface{} `json:"app_metadata,omitempty"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
	SessionID    string                 `json:"session_id,omitempty"`
}

// UserID returns the Supabase user UUID (sub claim).
func (c *SupabaseClaims) UserID() string {
	return c.Subject
}

// IsAdmin reports whether the token carries the admin flag in
// app_metadata. app_metadata is only writable server-side in Supabase,
// so the flag cannot be self-assigned by users.
func (c *SupabaseClaims) IsAdmin() bool {
	if c.Role == "service_role" {
		return true
	}
	if c.AppMetadata == nil {
		return false
	}
	admin, _ := c.AppMetadata["admin"].(bool)
	return admin
}

// DisplayName returns the user's display name from user_metadata, if set.
func (c *SupabaseClaims) DisplayName() string {
	if c.UserMetadata == nil {
		return ""
	}
	for _, key := range []string{"full_name", "name", "user_name"} {
		if name, ok := c.UserMetadata[key].(string); ok && name != "" {
			return name
		}
	}
	return ""
}

// SupabaseVerifier validates Supabase access tokens. GoTrue signs
// access tokens with HS256 using the project's JWT secret.
type SupabaseVerifier struct {
	secret []byte
}

// NewSupabaseVerifier creates a verifier for the given project JWT secret.
func NewSupabaseVerifier(secret string) *SupabaseVerifier {
	return &SupabaseVerifier{secret: []byte(secret)}
}

// VerifyToken validates a token's signature and registered claims and
// returns the parsed claims.
func (v *SupabaseVerifier) VerifyToken(tokenString string) (*SupabaseClaims, error) {
	claims := &SupabaseClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrMissingClaims
	}

	return claims, nil
}
