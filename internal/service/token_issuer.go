package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenIssuer signs and verifies HS256 tokens whose subject is the user's email.
// Access and refresh tokens differ only in lifetime.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock returns a copy of the issuer that reads time from now.
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	cp := *i
	cp.now = now
	return &cp
}

func (i *TokenIssuer) AccessTTL() time.Duration { return i.accessTTL }
func (i *TokenIssuer) RefreshTTL() time.Duration { return i.refreshTTL }

// Issue signs a copy of claims with exp set ttl from now.
func (i *TokenIssuer) Issue(claims jwt.MapClaims, ttl time.Duration) (string, error) {
	now := i.now()

	toSign := make(jwt.MapClaims, len(claims)+2)
	for k, v := range claims {
		toSign[k] = v
	}
	toSign["exp"] = now.Add(ttl).Unix()
	toSign["iat"] = now.Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, toSign)
	return token.SignedString(i.secret)
}

func (i *TokenIssuer) AccessToken(email string) (string, error) {
	return i.Issue(jwt.MapClaims{"sub": email}, i.accessTTL)
}

func (i *TokenIssuer) RefreshToken(email string) (string, error) {
	return i.Issue(jwt.MapClaims{"sub": email}, i.refreshTTL)
}

func (i *TokenIssuer) Verify(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Subject verifies the token and returns its non-empty "sub" claim.
func (i *TokenIssuer) Subject(tokenString string) (string, error) {
	claims, err := i.Verify(tokenString)
	if err != nil {
		return "", err
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return sub, nil
}
