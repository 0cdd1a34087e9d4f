// Package utils holds the helper the admin CLI uses to mint the single
// bearer token this service issues; the HTTP edge (internal/adminauth)
// verifies such tokens itself.
package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminToken is a signed HS256 JWT authorizing POST /events, along with
// its expiry.
type AdminToken struct {
	Token string
	Exp   time.Time
}

// NewAdminToken signs a new admin token for subject, valid for ttl.
// There is no user/password subsystem behind this: tokens are minted
// offline by an operator running cmd/admintoken with the same shared
// secret the server verifies against.
func NewAdminToken(secret, subject string, ttl time.Duration) (AdminToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": exp.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AdminToken{}, err
	}
	return AdminToken{Token: signed, Exp: exp}, nil
}
