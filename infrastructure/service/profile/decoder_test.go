package profile

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerror "github.com/fixora/sessionkit/domain/error"
)

func mintToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestDecodeFullClaimSet(t *testing.T) {
	token := mintToken(t, jwt.MapClaims{
		"sub":                "user-1",
		"preferred_username": "jdoe",
		"email":              "jdoe@example.com",
		"given_name":         "Jane",
		"family_name":        "Doe",
	})

	profile, err := NewDecoder().Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "jdoe", profile.Username)
	assert.Equal(t, "jdoe@example.com", profile.Email)
	assert.Equal(t, "Jane", profile.FirstName)
	assert.Equal(t, "Doe", profile.LastName)
}

func TestDecodeUsernameFallbackOrder(t *testing.T) {
	decoder := NewDecoder()

	cases := []struct {
		name   string
		claims jwt.MapClaims
		want   string
	}{
		{"preferred username wins", jwt.MapClaims{"sub": "s", "preferred_username": "handle", "email": "e@x.com", "name": "Full Name"}, "handle"},
		{"email next", jwt.MapClaims{"sub": "s", "email": "e@x.com", "name": "Full Name"}, "e@x.com"},
		{"display name next", jwt.MapClaims{"sub": "s", "name": "Full Name"}, "Full Name"},
		{"subject last", jwt.MapClaims{"sub": "s"}, "s"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			profile, err := decoder.Decode(mintToken(t, tc.claims))
			require.NoError(t, err)
			assert.Equal(t, tc.want, profile.Username)
		})
	}
}

func TestDecodeMissingSubject(t *testing.T) {
	token := mintToken(t, jwt.MapClaims{"preferred_username": "jdoe"})

	_, err := NewDecoder().Decode(token)
	require.Error(t, err)
	assert.Equal(t, domainerror.ErrCodeTokenMissingClaims, domainerror.CodeOf(err))
}

func TestDecodeMalformedToken(t *testing.T) {
	for _, token := range []string{"", "garbage", "a.b", "not.a.jwt"} {
		_, err := NewDecoder().Decode(token)
		require.Error(t, err, "token %q", token)
		assert.Equal(t, domainerror.ErrCodeTokenMalformed, domainerror.CodeOf(err), "token %q", token)
	}
}

func TestDecodeIgnoresSignature(t *testing.T) {
	// the decoder reads the payload without verifying; a token signed with
	// an unknown key still decodes
	claims := jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(time.Hour).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("some-other-secret"))
	require.NoError(t, err)

	profile, decodeErr := NewDecoder().Decode(token)
	require.NoError(t, decodeErr)
	assert.Equal(t, "user-1", profile.Username)
}

func TestDecodeNonStringClaimsIgnored(t *testing.T) {
	token := mintToken(t, jwt.MapClaims{"sub": "user-1", "email": 12345})

	profile, err := NewDecoder().Decode(token)
	require.NoError(t, err)
	assert.Empty(t, profile.Email)
	assert.Equal(t, "user-1", profile.Username)
}
