package auth

import (
	"testing"
	"time"

	"spacehub/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123"

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong horse"))
	assert.False(t, CheckPassword("not-a-hash", "correct horse"))
}

func TestIssueAndParse(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour)
	user := &models.User{ID: "u-1", Email: "host@example.com", Name: "Host"}

	tok, err := issuer.Issue(user)
	require.NoError(t, err)
	assert.NotEmpty(t, tok.Value)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.ExpiresAt, 5*time.Second)

	claims, err := issuer.Parse(tok.Value)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID())
	assert.Equal(t, "host@example.com", claims.Email)
	assert.Equal(t, "Host", claims.Name)
}

func TestParseRejects(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour)
	user := &models.User{ID: "u-1", Email: "a@b.c"}

	t.Run("wrong secret", func(t *testing.T) {
		other := NewIssuer("another-secret-0123456789", time.Hour)
		tok, err := other.Issue(user)
		require.NoError(t, err)
		_, err = issuer.Parse(tok.Value)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		past := NewIssuer(testSecret, time.Minute)
		past.now = func() time.Time { return time.Now().Add(-time.Hour) }
		tok, err := past.Issue(user)
		require.NoError(t, err)
		_, err = issuer.Parse(tok.Value)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = issuer.Parse(unsigned)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Parse("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
