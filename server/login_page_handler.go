package server

import (
	"net/http"
	"net/url"
	"strings"

	errs "github.com/jrsteele09/storefront-console/internal/errors"
	"github.com/rs/zerolog"
)

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	Title    string
	Error    string
	Username string // Preserve username on error
}

// LoginPageUIHandler displays the login page (GET / and GET /login)
func (s *Server) LoginPageUIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, r, s.pages.login, LoginPageData{
			Title:    s.config.GetAppName(),
			Error:    r.URL.Query().Get("error"),
			Username: r.URL.Query().Get("username"),
		})
	}
}

// LoginSubmissionHandler processes the login form submission and sends the
// user to their role's home.
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		username := strings.TrimSpace(r.FormValue("username"))
		password := r.FormValue("password")
		rememberMe := r.FormValue("remember_me") != ""

		if username == "" || password == "" {
			s.renderLoginError(w, r, "Username and password are required", username)
			return
		}

		c, err := sessionFrom(r).Login(r.Context(), username, password, rememberMe)
		switch {
		case errs.Is(err, errs.ErrInvalidCredentials):
			s.renderLoginError(w, r, "Invalid username or password", username)
			return
		case err != nil:
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("login failed")
			s.renderLoginError(w, r, "Sign-in is unavailable right now, please try again", username)
			return
		}

		redirectSuccess(w, r, s.homeFor(c.Role))
	}
}

// LogoutHandler runs the logout cascade; the session's navigator writes the
// redirect to the landing page.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionFrom(r).Logout(r.Context())
	}
}

// renderLoginError redirects to login page with an error message
func (s *Server) renderLoginError(w http.ResponseWriter, r *http.Request, errorMsg, username string) {
	q := url.Values{"error": {errorMsg}}
	if username != "" {
		q.Set("username", username)
	}
	redirectSuccess(w, r, RouteLogin+"?"+q.Encode())
}
