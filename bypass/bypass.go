// Package bypass validates pre-issued signed tokens that let non-browser
// callers skip the session/login flow for a scoped origin and path prefix.
// Trust derives entirely from the Ed25519 signature; the verifier never
// touches session state or storage.
package bypass

import (
	"crypto/ed25519"
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/go-playground/errors/v5"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the scope claims carried by a bypass token. Standard
// registered claims (exp, nbf) are honored when present.
type Claims struct {
	Origin string `json:"origin"`
	Path   string `json:"path"`
	jwt.RegisteredClaims
}

// Allows reports whether the claims grant access to u: the origin must
// match exactly and the path claim must be a prefix of the request path.
// The prefix match is deliberate, scoping a token to a whole subtree.
func (c *Claims) Allows(u *url.URL) bool {
	return c.Origin == u.Scheme+"://"+u.Host && strings.HasPrefix(u.Path, c.Path)
}

// Verifier checks bypass tokens against a public key configured out of band.
type Verifier struct {
	key ed25519.PublicKey
}

func NewVerifier(key ed25519.PublicKey) *Verifier {
	return &Verifier{key: key}
}

// ParsePublicKey decodes a base64url-encoded raw Ed25519 public key, the
// same encoding as the "x" member of an OKP JWK.
func ParsePublicKey(encoded string) (ed25519.PublicKey, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
	if err != nil {
		return nil, errors.Wrap(err, "base64.Encoding.DecodeString()")
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, errors.Newf("ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}

	return ed25519.PublicKey(raw), nil
}

// Verify checks the token's signature and registered claims and returns its
// scope claims. The signing algorithm is restricted to EdDSA.
func (v *Verifier) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	if _, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return v.key, nil },
		jwt.WithValidMethods([]string{"EdDSA"}),
	); err != nil {
		return nil, errors.Wrap(err, "jwt.ParseWithClaims()")
	}

	if claims.Origin == "" || claims.Path == "" {
		return nil, errors.New("token is missing the origin or path claim")
	}

	return claims, nil
}
