package ngxauth

import (
	"github.com/go-chi/chi/v5"
)

// paramProvider is the router path parameter naming the identity provider
// on the callback route.
const paramProvider = "provider"

// Routes mounts the gateway's three endpoints on r.
func (a *App) Routes(r chi.Router) {
	r.Get("/auth", a.Auth())
	r.Get("/login", a.Login())
	r.Get("/callback/{provider}", a.Callback())
}
