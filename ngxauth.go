// Package ngxauth implements an HTTP forward-auth gateway. A reverse proxy
// delegates every protected request to the /auth endpoint, which answers
// allow or deny, or mediates a browser-facing OpenID Connect login when no
// valid credential exists. Authorization is a per-(user, origin) matrix
// persisted in a database; being logged in is necessary but not sufficient.
package ngxauth

import (
	"strings"
	"time"

	"github.com/sloonz/ngx-auth/bypass"
	"github.com/sloonz/ngx-auth/oidc"
	"github.com/sloonz/ngx-auth/statecodec"
)

const name = "github.com/sloonz/ngx-auth"

const defaultSessionLifetime = 24 * time.Hour

// App holds the wiring for the gateway handlers. All fields are set at
// startup and read-only afterwards; handlers are re-entrant per request.
type App struct {
	oidc            oidc.Authenticator
	storage         SessionStorage
	state           *statecodec.Codec
	bypass          *bypass.Verifier
	callbackOrigin  string
	sessionLifetime time.Duration
	cookieSecure    bool
}

// New creates the gateway. callbackOrigin is the externally visible origin
// of this gateway, used to build the login redirect; it must match the
// origin the provider registry was built with.
func New(authenticator oidc.Authenticator, storage SessionStorage, state *statecodec.Codec, callbackOrigin string, options ...Option) *App {
	a := &App{
		oidc:            authenticator,
		storage:         storage,
		state:           state,
		callbackOrigin:  strings.TrimSuffix(callbackOrigin, "/"),
		sessionLifetime: defaultSessionLifetime,
		cookieSecure:    true,
	}
	for _, opt := range options {
		opt(a)
	}

	return a
}
