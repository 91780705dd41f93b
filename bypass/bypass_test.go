package bypass

import (
	"crypto/ed25519"
	"encoding/base64"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, key ed25519.PrivateKey, claims jwt.Claims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(key)
	require.NoError(t, err)

	return token
}

func TestVerifier_Verify(t *testing.T) {
	t.Parallel()

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	_, otherPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	v := NewVerifier(pub)

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{
			name:  "valid token",
			token: signToken(t, priv, &Claims{Origin: "https://app.example.com", Path: "/api"}),
		},
		{
			name: "valid token with future expiry",
			token: signToken(t, priv, &Claims{
				Origin:           "https://app.example.com",
				Path:             "/",
				RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
			}),
		},
		{
			name: "expired token",
			token: signToken(t, priv, &Claims{
				Origin:           "https://app.example.com",
				Path:             "/",
				RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))},
			}),
			wantErr: true,
		},
		{
			name:    "wrong signing key",
			token:   signToken(t, otherPriv, &Claims{Origin: "https://app.example.com", Path: "/"}),
			wantErr: true,
		},
		{
			name:    "missing origin claim",
			token:   signToken(t, priv, &Claims{Path: "/"}),
			wantErr: true,
		},
		{
			name:    "missing path claim",
			token:   signToken(t, priv, &Claims{Origin: "https://app.example.com"}),
			wantErr: true,
		},
		{
			name:    "not a jwt",
			token:   "garbage",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			claims, err := v.Verify(tt.token)
			if tt.wantErr {
				assert.Error(t, err)

				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, claims.Origin)
			assert.NotEmpty(t, claims.Path)
		})
	}
}

func TestVerifier_RejectsNonEdDSA(t *testing.T) {
	t.Parallel()

	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	// HMAC-signed token using the public key bytes as the secret; must be
	// rejected on algorithm, not signature.
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256,
		&Claims{Origin: "https://app.example.com", Path: "/"}).SignedString([]byte(pub))
	require.NoError(t, err)

	_, err = NewVerifier(pub).Verify(token)
	assert.Error(t, err)
}

func TestClaims_Allows(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		claims Claims
		url    string
		want   bool
	}{
		{"exact path", Claims{Origin: "https://app.example.com", Path: "/api"}, "https://app.example.com/api", true},
		{"sub path", Claims{Origin: "https://app.example.com", Path: "/api"}, "https://app.example.com/api/v1/users", true},
		{"root path scopes everything", Claims{Origin: "https://app.example.com", Path: "/"}, "https://app.example.com/anything", true},
		{"path not a prefix", Claims{Origin: "https://app.example.com", Path: "/api"}, "https://app.example.com/admin", false},
		{"origin host mismatch", Claims{Origin: "https://app.example.com", Path: "/"}, "https://other.example.com/", false},
		{"origin scheme mismatch", Claims{Origin: "https://app.example.com", Path: "/"}, "http://app.example.com/", false},
		{"origin with port mismatch", Claims{Origin: "https://app.example.com", Path: "/"}, "https://app.example.com:8443/", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			u, err := url.Parse(tt.url)
			require.NoError(t, err)

			if got := tt.claims.Allows(u); got != tt.want {
				t.Errorf("Allows(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestParsePublicKey(t *testing.T) {
	t.Parallel()

	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	got, err := ParsePublicKey(base64.RawURLEncoding.EncodeToString(pub))
	require.NoError(t, err)
	assert.Equal(t, pub, got)

	// Padded encodings are tolerated.
	got, err = ParsePublicKey(base64.URLEncoding.EncodeToString(pub))
	require.NoError(t, err)
	assert.Equal(t, pub, got)

	_, err = ParsePublicKey("dG9vLXNob3J0")
	assert.Error(t, err)

	_, err = ParsePublicKey("!!!")
	assert.Error(t, err)
}
