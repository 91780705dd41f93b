// Package oidc implements the static identity-provider registry: per
// provider, authorize-URL construction, the authorization-code exchange,
// and ID-token validation against the provider's published key set.
package oidc

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-playground/errors/v5"
	"github.com/hashicorp/go-cleanhttp"
	"golang.org/x/oauth2"
)

// upstreamTimeout bounds every outbound identity-provider call (token
// exchange, key-set fetch) so a slow or unreachable provider cannot stall
// the gateway.
const upstreamTimeout = 10 * time.Second

var _ Authenticator = &Registry{}

// Registry is the set of enabled identity providers, built once at startup
// and safe for concurrent readers. Each provider's key set is cached by
// key id and refetched at most once per verification on an unresolved id.
type Registry struct {
	providers []*client
}

// NewRegistry builds the runtime registry from static provider rows.
// callbackOrigin is the externally visible origin of this gateway; each
// provider's redirect URI is callbackOrigin + "/callback/" + id.
func NewRegistry(ctx context.Context, callbackOrigin string, configs []ProviderConfig) *Registry {
	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = upstreamTimeout

	// Key sets are fetched lazily and refreshed on cache miss; they must
	// outlive the startup context.
	keyCtx := oidc.ClientContext(context.WithoutCancel(ctx), httpClient)

	callbackOrigin = strings.TrimSuffix(callbackOrigin, "/")

	r := &Registry{}
	for _, cfg := range configs {
		r.providers = append(r.providers, &client{
			cfg:    cfg,
			keySet: oidc.NewRemoteKeySet(keyCtx, cfg.JWKSURL),
			http:   httpClient,
			oauth: oauth2.Config{
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				RedirectURL:  callbackOrigin + "/callback/" + cfg.ID,
				Scopes:       []string{oidc.ScopeOpenID, "email"},
				Endpoint: oauth2.Endpoint{
					AuthURL:   cfg.AuthorizeURL,
					TokenURL:  cfg.TokenURL,
					AuthStyle: oauth2.AuthStyleInParams,
				},
			},
		})
	}

	return r
}

// Provider resolves a provider by id.
func (r *Registry) Provider(id string) (Provider, bool) {
	for _, p := range r.providers {
		if p.cfg.ID == id {
			return p, true
		}
	}

	return nil, false
}

// Providers returns all enabled providers in registration order.
func (r *Registry) Providers() []Provider {
	providers := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		providers = append(providers, p)
	}

	return providers
}

var _ Provider = &client{}

type client struct {
	cfg    ProviderConfig
	oauth  oauth2.Config
	keySet oidc.KeySet
	http   *http.Client
}

func (c *client) ID() string {
	return c.cfg.ID
}

func (c *client) Description() string {
	return c.cfg.Description
}

func (c *client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("response_mode", "query"),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
}

func (c *client) Exchange(ctx context.Context, code string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, upstreamTimeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)

	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return "", errors.Wrap(err, "oauth2.Config.Exchange()")
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return "", errors.New("no id_token in token response")
	}

	return rawIDToken, nil
}

func (c *client) VerifyIDToken(ctx context.Context, rawIDToken string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, upstreamTimeout)
	defer cancel()

	verifier := oidc.NewVerifier(c.cfg.Issuer, c.keySet, &oidc.Config{
		ClientID:             c.cfg.ClientID,
		SupportedSigningAlgs: []string{oidc.RS256},
		SkipIssuerCheck:      c.cfg.Issuer == "",
	})

	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return "", errors.Wrap(err, "oidc.IDTokenVerifier.Verify()")
	}

	var claims struct {
		Email string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return "", errors.Wrap(err, "oidc.IDToken.Claims()")
	}
	if claims.Email == "" {
		return "", errors.New("no email claim in ID token")
	}

	return claims.Email, nil
}
