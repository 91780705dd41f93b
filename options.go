package ngxauth

import (
	"time"

	"github.com/sloonz/ngx-auth/bypass"
)

// Option defines a function signature for configuring the App.
type Option func(*App)

// WithBypassVerifier enables the signed-token bypass path for non-browser
// callers. Without it, bypass tokens are ignored and requests fall through
// to the session path.
func WithBypassVerifier(v *bypass.Verifier) Option {
	return func(a *App) {
		a.bypass = v
	}
}

// WithSessionLifetime sets the lifetime of sessions persisted by the
// callback handler. (default: 24h)
func WithSessionLifetime(d time.Duration) Option {
	return func(a *App) {
		a.sessionLifetime = d
	}
}

// WithSecureCookie sets the Secure flag on the session cookie.
// (default: true)
func WithSecureCookie(secure bool) Option {
	return func(a *App) {
		a.cookieSecure = secure
	}
}
