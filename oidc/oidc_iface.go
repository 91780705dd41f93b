package oidc

import "context"

// Authenticator is the provider registry surface consumed by the gateway
// handlers.
type Authenticator interface {
	// Provider resolves a provider by id.
	Provider(id string) (Provider, bool)
	// Providers returns all enabled providers in registration order.
	Providers() []Provider
}

// Provider is one enabled identity provider.
type Provider interface {
	ID() string
	Description() string
	// AuthCodeURL builds the provider authorize URL carrying the opaque
	// state unchanged.
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for the raw ID token. One
	// attempt, no retry; failures propagate.
	Exchange(ctx context.Context, code string) (rawIDToken string, err error)
	// VerifyIDToken validates signature (RS256 against the provider key
	// set), audience, expiry and issuer (when declared), and returns the
	// email claim as issued.
	VerifyIDToken(ctx context.Context, rawIDToken string) (email string, err error)
}
