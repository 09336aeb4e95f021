// Package auth turns bearer tokens into an explicit domain.SessionContext.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"studyhub/internal/domain"
)

// ErrNoSecret is returned by a Parser built without a signing secret. Such a parser rejects every token.
var ErrNoSecret = errors.New("no token signing secret configured")

// Claims are the token claims issued by the platform.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Parser verifies HMAC-signed tokens.
type Parser struct {
	secret []byte
}

func NewParser(secret string) *Parser {
	return &Parser{secret: []byte(secret)}
}

// Parse returns the session for a token signed with the parser's secret.
func (p *Parser) Parse(token string) (domain.SessionContext, error) {
	if token == "" {
		return domain.SessionContext{}, fmt.Errorf("missing token: %w", domain.ErrUnauthorized)
	}
	if len(p.secret) == 0 {
		return domain.SessionContext{}, fmt.Errorf("%v: %w", ErrNoSecret, domain.ErrUnauthorized)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	return sessionFrom(token, claims, err)
}

// Unverified reads the claims without checking the signature. Only for callers that forward the
// token to the platform, which then authenticates every request made with it.
func Unverified(token string) (domain.SessionContext, error) {
	if token == "" {
		return domain.SessionContext{}, fmt.Errorf("missing token: %w", domain.ErrUnauthorized)
	}
	claims := &Claims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err == nil && claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		err = jwt.ErrTokenExpired
	}
	return sessionFrom(token, claims, err)
}

func sessionFrom(token string, claims *Claims, err error) (domain.SessionContext, error) {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return domain.SessionContext{}, fmt.Errorf("malformed token: %w", domain.ErrUnauthorized)
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.SessionContext{}, fmt.Errorf("token expired: %w", domain.ErrUnauthorized)
	case err != nil:
		return domain.SessionContext{}, fmt.Errorf("invalid token: %v: %w", err, domain.ErrUnauthorized)
	}

	if claims.Subject == "" {
		return domain.SessionContext{}, fmt.Errorf("token has no subject: %w", domain.ErrUnauthorized)
	}
	return domain.SessionContext{
		UserID:      claims.Subject,
		DisplayName: claims.Name,
		Token:       token,
	}, nil
}

// FromRequest reads the token from the Authorization header or, for browser websockets, the token query parameter.
func (p *Parser) FromRequest(r *http.Request) (domain.SessionContext, error) {
	token := r.URL.Query().Get("token")
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		token = strings.TrimPrefix(h, "Bearer ")
	}
	return p.Parse(token)
}
