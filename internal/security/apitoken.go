package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidAPIToken = errors.New("invalid api token")

// APIClaims are the claims carried by a signed API token
type APIClaims struct {
	UserID int64 `json:"uid"`
	jwt.RegisteredClaims
}

// SignAPIToken mints a signed, expiring HS256 token for the given user.
// API clients present it as a bearer token instead of the session cookie.
func SignAPIToken(secret []byte, userID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &APIClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(secret)
}

// ParseAPIToken validates a signed token and returns its claims.
// Expired, malformed, or wrongly-signed tokens return ErrInvalidAPIToken.
func ParseAPIToken(secret []byte, tokenStr string) (*APIClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &APIClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidAPIToken
		}
		return secret, nil
	})
	if err != nil {
		return nil, ErrInvalidAPIToken
	}
	claims, ok := token.Claims.(*APIClaims)
	if !ok || !token.Valid || claims.UserID == 0 {
		return nil, ErrInvalidAPIToken
	}
	return claims, nil
}
