package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const ClaimsKey contextKey = "claims"

var ErrInvalidToken = errors.New("invalid token")

type JosekiUserClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// UserID returns the user ID carried in the subject claim.
func (c *JosekiUserClaims) UserID() (int, error) {
	id, err := strconv.Atoi(c.Subject)
	if err != nil {
		return 0, fmt.Errorf("%w: subject %q is not a user ID", ErrInvalidToken, c.Subject)
	}
	return id, nil
}

// Issuer signs and verifies HS256 access tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	return &Issuer{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (i *Issuer) Sign(userID int, username string) (string, error) {
	now := i.now()
	claims := JosekiUserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(userID),
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Username: username,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (i *Issuer) Parse(tokenString string) (*JosekiUserClaims, error) {
	claims := &JosekiUserClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}
