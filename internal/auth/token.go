package auth

import (
	"errors"
	"strconv"
	"time"

	"chess-quiz-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Claims embeds the registered claims and carries the account id.
type Claims struct {
	jwt.RegisteredClaims
	AccountID int64 `json:"accountId"`
}

// GenerateToken signs an HS256 token for accountID valid for ttl.
func GenerateToken(accountID int64, secret []byte, ttl time.Duration, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(accountID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		AccountID: accountID,
	})
	return token.SignedString(secret)
}

// ParseToken returns the account id of a valid token. Any failure, including expiry and
// a foreign signing method, is ErrInvalidToken.
func ParseToken(tokenString string, secret []byte) (int64, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, errors.Join(domain.ErrInvalidToken, jwt.ErrTokenExpired)
		}
		return 0, domain.ErrInvalidToken
	}
	if !token.Valid || claims.AccountID <= 0 {
		return 0, domain.ErrInvalidToken
	}
	return claims.AccountID, nil
}
