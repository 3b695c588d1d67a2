// ABOUTME: Bearer token helpers and unverified JWT inspection
// ABOUTME: The console holds tokens for the gateway; it never verifies them

package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned by Inspect for opaque tokens. Opaque tokens are
// perfectly valid for the gateway; they just carry nothing to display.
var ErrNotJWT = errors.New("token is not a JWT")

// FromAuthHeader extracts the bearer token from an Authorization header
// value.
func FromAuthHeader(header string) (string, error) {
	if header == "" {
		return "", errors.New("missing authorization header")
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", errors.New("invalid authorization header format")
	}
	tok := strings.TrimPrefix(header, "Bearer ")
	if tok == "" {
		return "", errors.New("empty token")
	}
	return tok, nil
}

// Info is what a JWT reveals about itself without verification.
type Info struct {
	Subject   string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token was expired at now. Tokens without
// an expiry never expire.
func (i *Info) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// Inspect reads a JWT's claims without verifying its signature. The
// gateway is the verifier; the console only wants to warn about tokens
// that cannot work anymore.
func Inspect(raw string) (*Info, error) {
	parser := jwt.NewParser()
	tok, _, err := parser.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJWT, err)
	}

	info := &Info{}
	if sub, err := tok.Claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if iss, err := tok.Claims.GetIssuer(); err == nil {
		info.Issuer = iss
	}
	if iat, err := tok.Claims.GetIssuedAt(); err == nil && iat != nil {
		info.IssuedAt = iat.Time
	}
	if exp, err := tok.Claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info, nil
}
