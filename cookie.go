package ngxauth

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/go-playground/errors/v5"
)

// SessionCookieName is the cookie carrying the session id. The value is
// the id exactly as minted; the id itself is the bearer credential.
const SessionCookieName = "ngx-auth-session"

// newSessionID mints an unguessable 128-bit token rendered as hex.
func newSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "rand.Read()")
	}

	return hex.EncodeToString(b), nil
}

// validSessionID checks that the sessionID is a 128-bit hex token
func validSessionID(sessionID string) bool {
	if len(sessionID) != 32 {
		return false
	}
	if _, err := hex.DecodeString(sessionID); err != nil {
		return false
	}

	return true
}

func (a *App) readSessionCookie(r *http.Request) (string, bool) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil || !validSessionID(c.Value) {
		return "", false
	}

	return c.Value, true
}

// writeSessionCookie sets the session cookie. SameSite=Lax still sends the
// cookie on the top-level navigation back from the identity provider.
func (a *App) writeSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
