package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestMakeAndParseToken(t *testing.T) {
	raw, err := MakeToken("user-1", secret, time.Minute)
	require.NoError(t, err)

	claims, err := ParseToken(raw, secret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestParseToken_Rejects(t *testing.T) {
	valid, err := MakeToken("user-1", secret, time.Minute)
	require.NoError(t, err)

	expired, err := MakeToken("user-1", secret, -time.Hour)
	require.NoError(t, err)

	noUser, err := MakeToken("", secret, time.Minute)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "user-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		raw    string
		secret string
	}{
		{"wrong secret", valid, "other"},
		{"expired", expired, secret},
		{"missing uid", noUser, secret},
		{"alg none", none, secret},
		{"garbage", "not-a-token", secret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.raw, tt.secret)
			assert.ErrorIs(t, err, ErrBadToken)
		})
	}
}
