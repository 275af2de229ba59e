// ABOUTME: JWT issuance and verification for wallboard clients
// ABOUTME: Uses HS256 signing with configurable secret and token lifetime

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/2389/wallboard-relay/internal/identity"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// TokenVerifier defines the interface for token verification
type TokenVerifier interface {
	Verify(tokenString string) (identity.Identity, error)
}

// JWTVerifier implements TokenVerifier using HS256 signed JWTs
type JWTVerifier struct {
	secret   []byte
	tokenTTL time.Duration
}

// NewJWTVerifier creates a new JWT verifier with the given secret and
// token lifetime.
func NewJWTVerifier(secret []byte, tokenTTL time.Duration) *JWTVerifier {
	return &JWTVerifier{secret: secret, tokenTTL: tokenTTL}
}

// Issue creates a signed token carrying the identity's code, role and team.
func (v *JWTVerifier) Issue(id identity.Identity) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  id.Code,
		"role": string(id.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(v.tokenTTL).Unix(),
	}
	if id.TeamID != nil {
		claims["team_id"] = *id.TeamID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Verify validates the token and reconstructs the identity from its claims.
func (v *JWTVerifier) Verify(tokenString string) (identity.Identity, error) {
	var id identity.Identity

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method is HS256
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		// Check if it's specifically an expiration error
		if errors.Is(err, jwt.ErrTokenExpired) {
			return id, ErrExpiredToken
		}
		return id, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return id, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return id, ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return id, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	roleStr, ok := claims["role"].(string)
	if !ok || roleStr == "" {
		return id, fmt.Errorf("%w: role", ErrMissingClaim)
	}
	role := identity.Role(roleStr)
	if !role.Valid() {
		return id, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, roleStr)
	}

	id.Code = identity.NormalizeCode(sub)
	id.Role = role

	// JSON numbers decode as float64
	if raw, ok := claims["team_id"].(float64); ok {
		teamID := int(raw)
		id.TeamID = &teamID
	}

	return id, nil
}
