package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/banca-bfa-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

const (
	operatorIssuer    = "banca-bfa"
	operatorTokenType = "operator"
)

// OperatorClaims represents the custom claims in operator tokens.
type OperatorClaims struct {
	Sub  string `json:"sub"`
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// OperatorAuth signs and validates HS256 operator bearer tokens.
type OperatorAuth struct {
	secret []byte
	ttl    time.Duration
	now    Clock
}

// NewOperatorAuth returns nil when secret is empty, which disables auth.
func NewOperatorAuth(secret string, ttl time.Duration) *OperatorAuth {
	if secret == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &OperatorAuth{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock overrides the time source.
func (a *OperatorAuth) WithClock(now Clock) *OperatorAuth {
	a.now = now
	return a
}

// Mint issues a token for operator. It returns the token and its expiry.
func (a *OperatorAuth) Mint(operator string) (string, time.Time, error) {
	if operator == "" {
		return "", time.Time{}, errors.New("operator name is required")
	}
	now := a.now()
	exp := now.Add(a.ttl)
	claims := OperatorClaims{
		Sub:  operator,
		Type: operatorTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			Issuer:    operatorIssuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign operator token: %w", err)
	}
	return signed, exp, nil
}

// Validate checks signature, expiry and token type.
func (a *OperatorAuth) Validate(tokenString string) (*OperatorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &OperatorClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithIssuer(operatorIssuer), jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido ou expirado"}
	}

	claims, ok := token.Claims.(*OperatorClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido"}
	}
	if claims.Type != operatorTokenType {
		return nil, &domain.ErrUnauthorized{Message: "Tipo de token inválido"}
	}
	return claims, nil
}
