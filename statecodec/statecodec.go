// Package statecodec encrypts and decrypts the opaque state that survives
// the round trip through an external identity provider. The state binds a
// freshly minted session id to the URL the browser should return to, inside
// a single authenticated ciphertext, so neither half can be swapped out
// independently.
package statecodec

import (
	"encoding/base64"
	"encoding/json"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-playground/errors/v5"
)

// KeySize is the symmetric key size required by A256GCM.
const KeySize = 32

// Codec is a compact-JWE codec using direct encryption with a single
// 256-bit key (alg=dir, enc=A256GCM). Tokens are self-contained; no key
// lookup is needed to decrypt.
type Codec struct {
	key []byte
}

// New returns a Codec for the given 256-bit key.
func New(key []byte) (*Codec, error) {
	if len(key) != KeySize {
		return nil, errors.Newf("state key must be %d bytes, got %d", KeySize, len(key))
	}

	return &Codec{key: key}, nil
}

// ParseKey decodes a base64url-encoded (unpadded) 256-bit key.
func ParseKey(encoded string) ([]byte, error) {
	key, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "base64.Encoding.DecodeString()")
	}
	if len(key) != KeySize {
		return nil, errors.Newf("state key must be %d bytes, got %d", KeySize, len(key))
	}

	return key, nil
}

// Encrypt serializes the (sessionID, returnURL) pair and encrypts it into
// a compact JWE string.
func (c *Codec) Encrypt(sessionID, returnURL string) (string, error) {
	plaintext, err := json.Marshal([2]string{sessionID, returnURL})
	if err != nil {
		return "", errors.Wrap(err, "json.Marshal()")
	}

	enc, err := jose.NewEncrypter(
		jose.A256GCM,
		jose.Recipient{Algorithm: jose.DIRECT, Key: c.key},
		nil,
	)
	if err != nil {
		return "", errors.Wrap(err, "jose.NewEncrypter()")
	}

	obj, err := enc.Encrypt(plaintext)
	if err != nil {
		return "", errors.Wrap(err, "jose.Encrypter.Encrypt()")
	}

	token, err := obj.CompactSerialize()
	if err != nil {
		return "", errors.Wrap(err, "jose.JSONWebEncryption.CompactSerialize()")
	}

	return token, nil
}

// Decrypt is the inverse of Encrypt. Any tag mismatch, wrong key, header
// algorithm other than dir+A256GCM, or malformed payload is a terminal
// failure; no part of an unverified token is ever returned.
func (c *Codec) Decrypt(token string) (sessionID, returnURL string, err error) {
	obj, err := jose.ParseEncrypted(token,
		[]jose.KeyAlgorithm{jose.DIRECT},
		[]jose.ContentEncryption{jose.A256GCM},
	)
	if err != nil {
		return "", "", errors.Wrap(err, "jose.ParseEncrypted()")
	}

	plaintext, err := obj.Decrypt(c.key)
	if err != nil {
		return "", "", errors.Wrap(err, "jose.JSONWebEncryption.Decrypt()")
	}

	var pair []string
	if err := json.Unmarshal(plaintext, &pair); err != nil {
		return "", "", errors.Wrap(err, "json.Unmarshal()")
	}
	if len(pair) != 2 {
		return "", "", errors.Newf("state payload must hold 2 elements, got %d", len(pair))
	}

	return pair[0], pair[1], nil
}
