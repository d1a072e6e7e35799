// Package security implements token signing and password hashing primitives.
package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind discriminates access tokens from refresh tokens inside the claim set.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

type Claims struct {
	Kind TokenKind `json:"token_kind"`
	jwt.RegisteredClaims
}

// JWTManager signs and parses HS256 tokens. Both token kinds share one secret;
// the kind claim is what keeps a refresh token from passing as an access token.
type JWTManager struct {
	issuer string
	secret []byte
}

func NewJWTManager(issuer, secret string) *JWTManager {
	return &JWTManager{issuer: issuer, secret: []byte(secret)}
}

// Sign issues a token for subject with the given kind and TTL. Every token
// carries a fresh JTI so it can be revoked individually.
func (m *JWTManager) Sign(subject string, kind TokenKind, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse validates signature, structure and expiry. Kind checking is the
// caller's job: a wrong-kind token is structurally valid and must be
// distinguishable from a malformed one.
func (m *JWTManager) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing algorithm")
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer))
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// ParseExpired parses a token ignoring its expiry. Revocation needs the claim
// set of a token that may already be past its lifetime.
func (m *JWTManager) ParseExpired(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing algorithm")
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, err
	}
	return claims, nil
}
