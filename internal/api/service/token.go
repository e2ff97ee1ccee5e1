package service

import (
	"fmt"
	"time"

	"ctchen222/galactic-tictactoe/internal/apperror"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "galactic-tictactoe"

// SeatClaims bind a bearer to one room.
type SeatClaims struct {
	RoomID string `json:"room"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies seat tokens with HS256.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates a TokenIssuer. Tokens expire after ttl.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue returns a signed token for roomID.
func (t *TokenIssuer) Issue(roomID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SeatClaims{
		RoomID: roomID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   roomID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	})

	tokenString, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign seat token: %w", err)
	}
	return tokenString, nil
}

// Parse verifies tokenString and returns the room it grants.
func (t *TokenIssuer) Parse(tokenString string) (string, error) {
	var claims SeatClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperror.ErrInvalidToken, err)
	}
	if claims.RoomID == "" {
		return "", fmt.Errorf("%w: token carries no room", apperror.ErrInvalidToken)
	}
	return claims.RoomID, nil
}
