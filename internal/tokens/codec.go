package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mwegrzyn/movieclub/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Codec signs and verifies the two token categories with two distinct
// secrets. It holds no state beyond configuration.
type Codec struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

func New(accessSecret, refreshSecret []byte, accessTTLSec, refreshTTLSec int) *Codec {
	return &Codec{
		AccessSecret:  accessSecret,
		RefreshSecret: refreshSecret,
		AccessTTL:     time.Duration(accessTTLSec) * time.Second,
		RefreshTTL:    time.Duration(refreshTTLSec) * time.Second,
	}
}

func (c *Codec) SignAccess(user *models.User) (string, error) {
	claims := AccessClaims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(c.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.AccessSecret)
}

func (c *Codec) SignRefresh(user *models.User) (string, error) {
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(c.RefreshTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.RefreshSecret)
}

func (c *Codec) VerifyAccess(tokenStr string) (*AccessClaims, error) {
	var claims AccessClaims
	if err := c.verify(tokenStr, &claims, c.AccessSecret); err != nil {
		return nil, err
	}
	return &claims, nil
}

func (c *Codec) VerifyRefresh(tokenStr string) (*RefreshClaims, error) {
	var claims RefreshClaims
	if err := c.verify(tokenStr, &claims, c.RefreshSecret); err != nil {
		return nil, err
	}
	return &claims, nil
}

func (c *Codec) verify(tokenStr string, claims jwt.Claims, secret []byte) error {
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpiredToken
		}
		return ErrInvalidToken
	}
	if !tkn.Valid {
		return ErrInvalidToken
	}
	return nil
}
