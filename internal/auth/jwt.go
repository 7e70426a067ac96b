// Package auth verifies bearer tokens and carries the caller's user id through
// gin and context.Context. Token issuance belongs to the identity service.
package auth

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	Email string `json:"email,omitempty"`

	jwt.RegisteredClaims
}

// UserID parses the numeric subject.
func (c Claims) UserID() (uint64, error) {
	sub := strings.TrimSpace(c.Subject)
	if sub == "" {
		return 0, errors.New("token has no subject")
	}
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("token subject is not a user id")
	}
	return id, nil
}

type JWT struct {
	Secret   []byte
	Issuer   string
	TokenTTL time.Duration
}

// Sign is used by tests and the CLI to mint tokens for a user.
func (j JWT) Sign(userID uint64) (string, time.Time, error) {
	now := time.Now().UTC()
	ttl := j.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	expiresAt := now.Add(ttl)
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(userID, 10),
		Issuer:    j.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, expiresAt, nil
}

func (j JWT) Verify(token string) (Claims, error) {
	if len(j.Secret) == 0 {
		return Claims{}, errors.New("jwt secret not configured")
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if j.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.Issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return j.Secret, nil
	}, opts...)
	if err != nil {
		return Claims{}, err
	}
	c, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	return *c, nil
}
