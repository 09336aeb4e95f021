package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"studyhub/internal/domain"
)

func sign(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims() Claims {
	return Claims{
		Name: "Alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestParseVerified(t *testing.T) {
	token := sign(t, "s3cret", validClaims())

	sc, err := NewParser("s3cret").Parse(token)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionContext{UserID: "u1", DisplayName: "Alice", Token: token}, sc)

	_, err = NewParser("other").Parse(token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestParseRejectsTokenSignedWithAnotherKey(t *testing.T) {
	claims := validClaims()
	claims.Subject = "victim"
	forged := sign(t, "attacker-key", claims)

	sc, err := NewParser("s3cret").Parse(forged)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Empty(t, sc.UserID)
}

func TestParseWithoutSecretRejectsEverything(t *testing.T) {
	forged := sign(t, "attacker-key", validClaims())

	sc, err := NewParser("").Parse(forged)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.ErrorContains(t, err, ErrNoSecret.Error())
	assert.Empty(t, sc.UserID)
}

func TestUnverifiedStillChecksExpiry(t *testing.T) {
	claims := validClaims()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	token := sign(t, "whatever", claims)

	_, err := Unverified(token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	fresh := sign(t, "whatever", validClaims())
	sc, err := Unverified(fresh)
	require.NoError(t, err)
	assert.Equal(t, "u1", sc.UserID)
}

func TestParseRejectsGarbage(t *testing.T) {
	p := NewParser("k")
	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := p.Parse(token)
		assert.ErrorIs(t, err, domain.ErrUnauthorized, token)
		_, err = Unverified(token)
		assert.ErrorIs(t, err, domain.ErrUnauthorized, token)
	}

	noSubject := validClaims()
	noSubject.Subject = ""
	_, err := p.Parse(sign(t, "k", noSubject))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestFromRequestPrefersHeader(t *testing.T) {
	token := sign(t, "k", validClaims())
	p := NewParser("k")

	r := httptest.NewRequest("GET", "/ws/quiz?token=bogus", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	sc, err := p.FromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "u1", sc.UserID)

	r = httptest.NewRequest("GET", "/ws/quiz?token="+token, nil)
	sc, err = p.FromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "Alice", sc.DisplayName)
}
