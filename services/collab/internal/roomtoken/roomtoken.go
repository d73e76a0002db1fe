// Package roomtoken signs and validates the room-access token that
// confirm_match issues and connect verifies: proof of membership in one
// specific room, not identity auth (the gateway owns sessions).
package roomtoken

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoomTokenClaims is the payload of a room-access token: proof that UserID
// is a member of MatchID, checked by connect before any Redis lookup.
type RoomTokenClaims struct {
	MatchID string `json:"match_id"`
	UserID  string `json:"user_id"`
	jwt.RegisteredClaims
}

// Sign issues an HS256 room token valid for ttl.
func Sign(secret []byte, matchID, userID string, ttl time.Duration) (string, error) {
	claims := RoomTokenClaims{
		MatchID: matchID,
		UserID:  userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Validate parses and verifies a room token, rejecting anything not signed
// with HS256 using secret, and anything expired.
func Validate(tokenString string, secret []byte) (*RoomTokenClaims, error) {
	claims := &RoomTokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("roomtoken: unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("roomtoken: invalid token")
	}
	return claims, nil
}

// ExtractTokenFromHeader pulls the bearer token out of an Authorization
// header value ("Bearer <token>").
func ExtractTokenFromHeader(header string) (string, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) || len(header) <= len(prefix) {
		return "", errors.New("roomtoken: missing or malformed bearer token")
	}
	return strings.TrimPrefix(header, prefix), nil
}
