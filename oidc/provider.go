package oidc

// ProviderConfig is one row of the static provider table. Provider
// endpoints are configured here rather than discovered; extending the
// gateway to a new identity provider means adding a row, not a type.
type ProviderConfig struct {
	ID           string
	Description  string
	ClientID     string
	ClientSecret string
	AuthorizeURL string
	TokenURL     string
	JWKSURL      string

	// Issuer enables the issuer check on ID tokens when non-empty.
	// Multi-tenant providers (Microsoft common endpoint) leave it empty.
	Issuer string
}

// Google returns the provider row for Google accounts.
func Google(clientID, clientSecret string) ProviderConfig {
	return ProviderConfig{
		ID:           "google",
		Description:  "Google",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		AuthorizeURL: "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL:     "https://oauth2.googleapis.com/token",
		JWKSURL:      "https://www.googleapis.com/oauth2/v3/certs",
		Issuer:       "https://accounts.google.com",
	}
}

// Microsoft returns the provider row for Microsoft accounts (common
// tenant). The issuer varies per tenant on the common endpoint, so no
// issuer check is configured.
func Microsoft(clientID, clientSecret string) ProviderConfig {
	return ProviderConfig{
		ID:           "microsoft",
		Description:  "Microsoft",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		AuthorizeURL: "https://login.microsoftonline.com/common/oauth2/v2.0/authorize",
		TokenURL:     "https://login.microsoftonline.com/common/oauth2/v2.0/token",
		JWKSURL:      "https://login.microsoftonline.com/common/discovery/v2.0/keys",
	}
}
