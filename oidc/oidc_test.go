package oidc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/google/go-cmp/cmp"
)

// testIdP is an httptest-backed identity provider serving a JWKS document
// and a token endpoint whose response is set per test.
type testIdP struct {
	srv        *httptest.Server
	signingKey *rsa.PrivateKey
	keyID      string

	tokenResponse map[string]any
}

func newTestIdP(t *testing.T) *testIdP {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey() error = %v", err)
	}

	idp := &testIdP{signingKey: key, keyID: "test-key"}

	mux := http.NewServeMux()
	mux.HandleFunc("/keys", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(jose.JSONWebKeySet{
			Keys: []jose.JSONWebKey{{
				Key:       key.Public(),
				KeyID:     idp.keyID,
				Algorithm: "RS256",
				Use:       "sig",
			}},
		}); err != nil {
			t.Errorf("failed to encode JWKS: %v", err)
		}
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)

			return
		}
		if got := r.PostForm.Get("grant_type"); got != "authorization_code" {
			http.Error(w, "bad grant_type", http.StatusBadRequest)

			return
		}
		if got := r.PostForm.Get("code"); got != "test-code" {
			http.Error(w, "bad code", http.StatusBadRequest)

			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(idp.tokenResponse); err != nil {
			t.Errorf("failed to encode token response: %v", err)
		}
	})

	idp.srv = httptest.NewServer(mux)
	t.Cleanup(idp.srv.Close)

	return idp
}

func (idp *testIdP) config(clientID string) ProviderConfig {
	return ProviderConfig{
		ID:           "test",
		Description:  "Test",
		ClientID:     clientID,
		ClientSecret: "test-secret",
		AuthorizeURL: idp.srv.URL + "/authorize",
		TokenURL:     idp.srv.URL + "/token",
		JWKSURL:      idp.srv.URL + "/keys",
		Issuer:       idp.srv.URL,
	}
}

// signIDToken signs claims as a compact JWS with the IdP's key.
func (idp *testIdP) signIDToken(t *testing.T, claims map[string]any) string {
	t.Helper()

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: idp.signingKey},
		(&jose.SignerOptions{}).WithHeader("kid", idp.keyID).WithType("JWT"),
	)
	if err != nil {
		t.Fatalf("jose.NewSigner() error = %v", err)
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	jws, err := signer.Sign(payload)
	if err != nil {
		t.Fatalf("jose.Signer.Sign() error = %v", err)
	}

	token, err := jws.CompactSerialize()
	if err != nil {
		t.Fatalf("jose.JSONWebSignature.CompactSerialize() error = %v", err)
	}

	return token
}

func TestRegistry_Provider(t *testing.T) {
	t.Parallel()

	r := NewRegistry(context.Background(), "https://auth.example.com/", []ProviderConfig{
		Google("google-id", "google-secret"),
		Microsoft("microsoft-id", "microsoft-secret"),
	})

	if _, ok := r.Provider("google"); !ok {
		t.Error(`Provider("google") not found`)
	}
	if _, ok := r.Provider("github"); ok {
		t.Error(`Provider("github") should not be found`)
	}

	var ids []string
	for _, p := range r.Providers() {
		ids = append(ids, p.ID())
	}
	if diff := cmp.Diff([]string{"google", "microsoft"}, ids); diff != "" {
		t.Errorf("Providers() mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_AuthCodeURL(t *testing.T) {
	t.Parallel()

	r := NewRegistry(context.Background(), "https://auth.example.com", []ProviderConfig{
		Google("google-id", "google-secret"),
	})
	p, ok := r.Provider("google")
	if !ok {
		t.Fatal(`Provider("google") not found`)
	}

	u, err := url.Parse(p.AuthCodeURL("opaque-state"))
	if err != nil {
		t.Fatalf("url.Parse() error = %v", err)
	}

	if got, want := u.Scheme+"://"+u.Host+u.Path, "https://accounts.google.com/o/oauth2/v2/auth"; got != want {
		t.Errorf("authorize endpoint = %q, want %q", got, want)
	}

	want := url.Values{
		"state":         {"opaque-state"},
		"client_id":     {"google-id"},
		"redirect_uri":  {"https://auth.example.com/callback/google"},
		"response_type": {"code"},
		"response_mode": {"query"},
		"scope":         {"openid email"},
		"prompt":        {"select_account"},
	}
	if diff := cmp.Diff(want, u.Query()); diff != "" {
		t.Errorf("authorize URL query mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_ExchangeAndVerify(t *testing.T) {
	t.Parallel()

	idp := newTestIdP(t)
	cfg := idp.config("test-client")

	idToken := idp.signIDToken(t, map[string]any{
		"iss":   idp.srv.URL,
		"aud":   "test-client",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
		"email": "Alice@Example.com",
	})
	idp.tokenResponse = map[string]any{
		"access_token": "test-access-token",
		"token_type":   "Bearer",
		"id_token":     idToken,
	}

	r := NewRegistry(context.Background(), "https://auth.example.com", []ProviderConfig{cfg})
	p, ok := r.Provider("test")
	if !ok {
		t.Fatal(`Provider("test") not found`)
	}

	rawIDToken, err := p.Exchange(context.Background(), "test-code")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if rawIDToken != idToken {
		t.Error("Exchange() did not return the issued id_token")
	}

	email, err := p.VerifyIDToken(context.Background(), rawIDToken)
	if err != nil {
		t.Fatalf("VerifyIDToken() error = %v", err)
	}
	// The claim is returned as issued; normalization is the caller's job.
	if email != "Alice@Example.com" {
		t.Errorf("VerifyIDToken() email = %q, want %q", email, "Alice@Example.com")
	}
}

func TestClient_ExchangeMissingIDToken(t *testing.T) {
	t.Parallel()

	idp := newTestIdP(t)
	idp.tokenResponse = map[string]any{
		"access_token": "test-access-token",
		"token_type":   "Bearer",
	}

	r := NewRegistry(context.Background(), "https://auth.example.com", []ProviderConfig{idp.config("test-client")})
	p, _ := r.Provider("test")

	if _, err := p.Exchange(context.Background(), "test-code"); err == nil {
		t.Error("Exchange() expected error for missing id_token, got nil")
	}
}

func TestClient_VerifyIDToken(t *testing.T) {
	t.Parallel()

	idp := newTestIdP(t)
	cfg := idp.config("test-client")

	tests := []struct {
		name    string
		claims  map[string]any
		wantErr bool
	}{
		{
			name: "wrong audience",
			claims: map[string]any{
				"iss": idp.srv.URL, "aud": "other-client",
				"exp": time.Now().Add(time.Hour).Unix(), "email": "alice@example.com",
			},
			wantErr: true,
		},
		{
			name: "expired token",
			claims: map[string]any{
				"iss": idp.srv.URL, "aud": "test-client",
				"exp": time.Now().Add(-time.Hour).Unix(), "email": "alice@example.com",
			},
			wantErr: true,
		},
		{
			name: "wrong issuer",
			claims: map[string]any{
				"iss": "https://evil.example.com", "aud": "test-client",
				"exp": time.Now().Add(time.Hour).Unix(), "email": "alice@example.com",
			},
			wantErr: true,
		},
		{
			name: "missing email claim",
			claims: map[string]any{
				"iss": idp.srv.URL, "aud": "test-client",
				"exp": time.Now().Add(time.Hour).Unix(),
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := NewRegistry(context.Background(), "https://auth.example.com", []ProviderConfig{cfg})
			p, _ := r.Provider("test")

			_, err := p.VerifyIDToken(context.Background(), idp.signIDToken(t, tt.claims))
			if (err != nil) != tt.wantErr {
				t.Errorf("VerifyIDToken() error = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestClient_VerifyIDTokenUnknownKey(t *testing.T) {
	t.Parallel()

	idp := newTestIdP(t)
	stranger := newTestIdP(t)
	stranger.keyID = "stranger-key"

	// Token signed by a key the provider never published; the key set is
	// refetched once for the unknown kid and verification fails closed.
	token := stranger.signIDToken(t, map[string]any{
		"iss": idp.srv.URL, "aud": "test-client",
		"exp": time.Now().Add(time.Hour).Unix(), "email": "alice@example.com",
	})

	r := NewRegistry(context.Background(), "https://auth.example.com", []ProviderConfig{idp.config("test-client")})
	p, _ := r.Provider("test")

	if _, err := p.VerifyIDToken(context.Background(), token); err == nil {
		t.Error("VerifyIDToken() expected error for unknown signing key, got nil")
	}
}
