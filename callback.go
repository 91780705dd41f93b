package ngxauth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cccteam/httpio"
	"github.com/go-playground/errors/v5"
	"github.com/sloonz/ngx-auth/dbtypes"
	"go.opentelemetry.io/otel"
)

// Callback completes the login flow after the identity provider redirects
// the browser back. It exchanges the authorization code, verifies the ID
// token, and persists a session under the id carried in the state only when
// the authenticated user holds a grant for the original URL's origin.
func (a *App) Callback() http.HandlerFunc {
	return a.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "App.Callback()")
		defer span.End()

		sessionID, returnURL, err := a.state.Decrypt(r.URL.Query().Get("state"))
		if err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewBadRequestMessageWithError(err, "invalid state parameter"))
		}

		originalURL, err := parseReturnURL(returnURL)
		if err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, err)
		}

		provider, ok := a.oidc.Provider(httpio.Param[string](r, paramProvider))
		if !ok {
			return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewBadRequestMessage("Invalid provider"))
		}

		rawIDToken, err := provider.Exchange(ctx, r.URL.Query().Get("code"))
		if err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewInternalServerErrorMessageWithError(err, "Failed to exchange token"))
		}

		email, err := provider.VerifyIDToken(ctx, rawIDToken)
		if err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewUnauthorizedMessageWithError(err, "Failed to verify ID token"))
		}

		// Providers differ on email casing; the store holds lowercase only.
		email = strings.ToLower(email)

		user, err := a.findOrCreateUser(ctx, email)
		if err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, err)
		}

		authorized, err := a.storage.Authorized(ctx, user.ID, origin(originalURL))
		if err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, errors.Wrap(err, "SessionStorage.Authorized()"))
		}
		if !authorized {
			return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewForbiddenMessage(fmt.Sprintf("%s is not authorized to access %s", email, origin(originalURL))))
		}

		if err := a.storage.InsertSession(ctx, &dbtypes.InsertSession{
			ID:             sessionID,
			UserID:         user.ID,
			ExpirationDate: time.Now().Add(a.sessionLifetime),
		}); err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, errors.Wrap(err, "SessionStorage.InsertSession()"))
		}

		// The browser already holds the cookie for this session id from the
		// redirect that started the flow; no Set-Cookie here.
		http.Redirect(w, r, originalURL.String(), http.StatusFound)

		return nil
	})
}

func (a *App) findOrCreateUser(ctx context.Context, email string) (*dbtypes.User, error) {
	user, err := a.storage.User(ctx, email)
	if err != nil {
		return nil, errors.Wrap(err, "SessionStorage.User()")
	}
	if user != nil {
		return user, nil
	}

	user, err = a.storage.CreateUser(ctx, email)
	if err != nil {
		return nil, errors.Wrap(err, "SessionStorage.CreateUser()")
	}

	return user, nil
}

func parseReturnURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, httpio.NewBadRequestMessage("invalid return URL in state")
	}

	return u, nil
}
