package ngxauth

import (
	"net/http"

	"github.com/cccteam/httpio"
	"go.opentelemetry.io/otel"
)

// LoginOption is one identity provider choice offered on the login page.
type LoginOption struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Login lists the configured identity providers along with their
// authorization URLs. The state parameter is opaque here; it is embedded
// in the authorize URLs unchanged and only the callback decrypts it.
func (a *App) Login() http.HandlerFunc {
	return a.handle(func(w http.ResponseWriter, r *http.Request) error {
		_, span := otel.Tracer(name).Start(r.Context(), "App.Login()")
		defer span.End()

		state := r.URL.Query().Get("state")

		providers := a.oidc.Providers()
		options := make([]LoginOption, 0, len(providers))
		for _, p := range providers {
			options = append(options, LoginOption{
				ID:          p.ID(),
				Description: p.Description(),
				URL:         p.AuthCodeURL(state),
			})
		}

		return httpio.NewEncoder(w).Ok(options)
	})
}
