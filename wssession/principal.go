// File: wssession/principal.go
// Optional JWT-based user-principal extraction from the handshake's
// Authorization header (SPEC_FULL.md §10 DOMAIN STACK), grounded on
// irgordon-kari's api/internal/api/auth_service.go bearer-token
// verification.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package wssession

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const bearerPrefix = "Bearer "

// ExtractPrincipal validates a bearer token from authHeader against
// verificationKey and returns the "sub" claim. It returns ok=false
// whenever verificationKey is nil (JWT verification disabled for this
// endpoint), the header is missing/malformed, or the token fails
// validation — never an error, since an unauthenticated connection is
// simply one with no principal (spec §4.6 UserPrincipal).
func ExtractPrincipal(authHeader string, verificationKey any) (sub string, ok bool) {
	if verificationKey == nil || authHeader == "" {
		return "", false
	}
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", false
	}
	raw := strings.TrimPrefix(authHeader, bearerPrefix)

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return verificationKey, nil
	})
	if err != nil || !token.Valid {
		return "", false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}
	s, ok := claims["sub"].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
