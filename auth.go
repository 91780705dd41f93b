package ngxauth

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/cccteam/httpio"
	"github.com/cccteam/logger"
	"github.com/go-playground/errors/v5"
	"go.opentelemetry.io/otel"
)

const (
	// HeaderOriginalURL carries the original request's target URL. It is
	// set by the reverse proxy and trusted; a missing or malformed value
	// is an upstream contract violation, not an authorization decision.
	HeaderOriginalURL = "X-Original-Url"
	// HeaderOriginalMethod carries the original request's method.
	HeaderOriginalMethod = "X-Original-Method"
	// HeaderBypassToken carries a pre-issued signed token for non-browser
	// callers.
	HeaderBypassToken = "X-Ngx-Auth-Token"

	headerCORSRequestMethod = "Access-Control-Request-Method"
)

// Auth is the forward-auth decision endpoint, called by the reverse proxy
// once per protected request. It answers 200 (allow), 403 (deny), or 401
// with a login redirect. Branches are evaluated in order; first match wins.
func (a *App) Auth() http.HandlerFunc {
	return a.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "App.Auth()")
		defer span.End()

		originalURL, err := parseOriginalURL(r)
		if err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, err)
		}

		// CORS preflight requests carry no credentials, and browsers do
		// not follow redirects for them; they must pass unconditionally.
		if r.Header.Get(HeaderOriginalMethod) == http.MethodOptions && r.Header.Get(headerCORSRequestMethod) != "" {
			return httpio.NewEncoder(w).Ok(nil)
		}

		// Bypass path: trust derives from the token signature alone. This
		// branch never consults the store and never redirects; failures
		// surface the verifier's diagnostic, which only the token's issuer
		// ever sees.
		if token := r.Header.Get(HeaderBypassToken); token != "" && a.bypass != nil {
			claims, err := a.bypass.Verify(token)
			if err != nil {
				return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewForbiddenMessage("invalid bypass token: "+err.Error()))
			}
			if !claims.Allows(originalURL) {
				return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewForbiddenMessage("token is not valid for this origin and path"))
			}

			return httpio.NewEncoder(w).Ok(nil)
		}

		// Best-effort sweep; expiry is enforced by predicate below even
		// when deletion lags.
		if err := a.storage.DeleteExpiredSessions(ctx, time.Now()); err != nil {
			logger.Req(r).Errorf("failed to sweep expired sessions: %v", err)
		}

		if sessionID, ok := a.readSessionCookie(r); ok {
			sess, err := a.storage.Session(ctx, sessionID)
			if err != nil {
				return httpio.NewEncoder(w).ClientMessage(ctx, errors.Wrap(err, "SessionStorage.Session()"))
			}
			if sess != nil && !sess.Expired(time.Now()) {
				authorized, err := a.storage.Authorized(ctx, sess.UserID, origin(originalURL))
				if err != nil {
					return httpio.NewEncoder(w).ClientMessage(ctx, errors.Wrap(err, "SessionStorage.Authorized()"))
				}
				if authorized {
					return httpio.NewEncoder(w).Ok(nil)
				}

				// A logged-in user without a grant for this origin is
				// denied outright: redirecting to login again could never
				// produce a grant, only a loop.
				return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewForbiddenMessage("not authorized for this origin"))
			}
		}

		return a.loginRedirect(ctx, w, originalURL)
	})
}

// loginRedirect mints a session id, binds it to the original URL inside
// the encrypted state, and points the browser at the login endpoint. The
// cookie is set now; the session row is persisted by the callback only
// after authorization succeeds, under this same id.
func (a *App) loginRedirect(ctx context.Context, w http.ResponseWriter, originalURL *url.URL) error {
	sessionID, err := newSessionID()
	if err != nil {
		return httpio.NewEncoder(w).ClientMessage(ctx, err)
	}

	state, err := a.state.Encrypt(sessionID, originalURL.String())
	if err != nil {
		return httpio.NewEncoder(w).ClientMessage(ctx, errors.Wrap(err, "statecodec.Codec.Encrypt()"))
	}

	a.writeSessionCookie(w, sessionID)
	w.Header().Set("Location", a.callbackOrigin+"/login?"+url.Values{"state": {state}}.Encode())

	return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewUnauthorizedMessage("login required"))
}

func parseOriginalURL(r *http.Request) (*url.URL, error) {
	raw := r.Header.Get(HeaderOriginalURL)
	if raw == "" {
		return nil, httpio.NewBadRequestMessage("missing " + HeaderOriginalURL + " header")
	}

	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, httpio.NewBadRequestMessage("malformed " + HeaderOriginalURL + " header")
	}

	return u, nil
}

// origin renders the exact scheme+host origin string used for
// authorization lookups. No normalization is applied; origins must be
// registered exactly as presented.
func origin(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}
