package server_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/storefront-console/apiclient"
	"github.com/jrsteele09/storefront-console/internal/config"
	"github.com/jrsteele09/storefront-console/server"
	"github.com/jrsteele09/storefront-console/session"
	"github.com/stretchr/testify/require"
)

func mint(t *testing.T, c jwtlib.MapClaims) string {
	t.Helper()
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, c).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

// storefrontAPI fakes the remote API the console talks to.
type storefrontAPI struct {
	srv            *httptest.Server
	validations    atomic.Int32
	logouts        atomic.Int32
	validateStatus int
	valid          bool
	renewed        string
	lastAuth       atomic.Value
	lastCookie     atomic.Value
	loginAccess    string
}

func newStorefrontAPI(t *testing.T) *storefrontAPI {
	t.Helper()
	api := &storefrontAPI{validateStatus: http.StatusOK, valid: true}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+apiclient.PathLogin, func(w http.ResponseWriter, r *http.Request) {
		var body apiclient.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(apiclient.LoginResponse{AccessToken: api.loginAccess, RefreshToken: "refresh-1"})
	})
	mux.HandleFunc("POST "+apiclient.PathValidateTokens, func(w http.ResponseWriter, r *http.Request) {
		api.validations.Add(1)
		if api.validateStatus != http.StatusOK {
			w.WriteHeader(api.validateStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(apiclient.ValidateResponse{Valid: api.valid, AccessToken: api.renewed})
	})
	mux.HandleFunc("POST "+apiclient.PathLogout, func(w http.ResponseWriter, r *http.Request) {
		api.logouts.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /products", func(w http.ResponseWriter, r *http.Request) {
		api.lastAuth.Store(r.Header.Get("Authorization"))
		api.lastCookie.Store(r.Header.Get("Cookie"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"sku":"A1"}]`)
	})

	api.srv = httptest.NewServer(mux)
	t.Cleanup(api.srv.Close)
	return api
}

func newTestServer(t *testing.T, api *storefrontAPI) *server.Server {
	t.Helper()
	t.Setenv("ENV", "TEST")
	t.Setenv("API_BASE_URL", api.srv.URL)
	t.Setenv("INSECURE_COOKIES", "1")

	client := apiclient.New(api.srv.URL)
	s, err := server.New(config.New(), session.NewManager(client))
	require.NoError(t, err)
	return s
}

func withSession(req *http.Request, access string) *http.Request {
	req.AddCookie(&http.Cookie{Name: "access_token", Value: access})
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "refresh-1"})
	return req
}

func serve(s http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func cookiesByName(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func TestLandingPage(t *testing.T) {
	api := newStorefrontAPI(t)
	s := newTestServer(t, api)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Sign in")
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	admin := mint(t, jwtlib.MapClaims{"role": "admin"})
	rec = serve(s, withSession(httptest.NewRequest(http.MethodGet, "/login", nil), admin))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/admin", rec.Header().Get("Location"))
}

func TestLogin(t *testing.T) {
	api := newStorefrontAPI(t)
	api.loginAccess = mint(t, jwtlib.MapClaims{"role": "cashier"})
	s := newTestServer(t, api)

	t.Run("remembered login lands on role home", func(t *testing.T) {
		form := url.Values{"username": {"ada"}, "password": {"secret"}, "remember_me": {"on"}}
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.RemoteAddr = "10.0.0.1:1234"

		rec := serve(s, req)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/cashier", rec.Header().Get("Location"))

		cookies := cookiesByName(rec)
		require.Equal(t, api.loginAccess, cookies["access_token"].Value)
		require.Equal(t, "refresh-1", cookies["refresh_token"].Value)
		require.True(t, cookies["access_token"].HttpOnly)
		require.False(t, cookies["access_token"].Expires.IsZero())
		require.NotEmpty(t, cookies["session_horizon"].Value)
	})

	t.Run("wrong password re-renders the form", func(t *testing.T) {
		form := url.Values{"username": {"ada"}, "password": {"nope"}}
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.RemoteAddr = "10.0.0.2:1234"

		rec := serve(s, req)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		location, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "/login", location.Path)
		require.Equal(t, "Invalid username or password", location.Query().Get("error"))
		require.Equal(t, "ada", location.Query().Get("username"))
		require.Empty(t, rec.Result().Cookies())
	})
}

func TestLogin_RateLimited(t *testing.T) {
	api := newStorefrontAPI(t)
	s := newTestServer(t, api)

	codes := make([]int, 0, 6)
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(""))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.RemoteAddr = "10.0.0.9:5555"
		codes = append(codes, serve(s, req).Code)
	}
	require.Equal(t, []int{303, 303, 303, 303, 303, 429}, codes)
}

func loginAttempt(remoteAddr, forwardedFor string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	return req
}

func TestLogin_RateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	api := newStorefrontAPI(t)
	s := newTestServer(t, api)

	codes := make([]int, 0, 6)
	for i := 0; i < 6; i++ {
		codes = append(codes, serve(s, loginAttempt("10.0.0.9:5555", fmt.Sprintf("203.0.113.%d", i))).Code)
	}
	require.Equal(t, []int{303, 303, 303, 303, 303, 429}, codes)
}

func TestLogin_RateLimitBehindTrustedProxy(t *testing.T) {
	api := newStorefrontAPI(t)
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/24")
	s := newTestServer(t, api)

	for i := 0; i < 6; i++ {
		rec := serve(s, loginAttempt("10.0.0.254:443", fmt.Sprintf("203.0.113.%d, 10.0.0.7", i)))
		require.Equal(t, http.StatusSeeOther, rec.Code, "each forwarded client has its own bucket")
	}

	codes := make([]int, 0, 6)
	for i := 0; i < 6; i++ {
		codes = append(codes, serve(s, loginAttempt("10.0.0.254:443", "198.51.100.1")).Code)
	}
	require.Equal(t, []int{303, 303, 303, 303, 303, 429}, codes)
}

func TestGuardedAreas(t *testing.T) {
	api := newStorefrontAPI(t)
	s := newTestServer(t, api)

	testCases := []struct {
		name     string
		path     string
		claims   jwtlib.MapClaims
		code     int
		location string
	}{
		{name: "no session", path: "/admin", claims: nil, code: http.StatusSeeOther, location: "/login"},
		{name: "admin allowed", path: "/admin/products", claims: jwtlib.MapClaims{"role": "admin"}, code: http.StatusOK},
		{name: "cashier in admin area", path: "/admin", claims: jwtlib.MapClaims{"role": "cashier"}, code: http.StatusSeeOther, location: "/unauthorized"},
		{name: "expired trial", path: "/cashier", claims: jwtlib.MapClaims{"role": "cashier", "trial_days_remaining": 0}, code: http.StatusSeeOther, location: "/license-expired"},
		{name: "setup page itself", path: "/setup", claims: jwtlib.MapClaims{"role": "admin", "configured": false}, code: http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.claims != nil {
				req = withSession(req, mint(t, tc.claims))
			}
			rec := serve(s, req)
			require.Equal(t, tc.code, rec.Code)
			if tc.location != "" {
				require.Equal(t, tc.location, rec.Header().Get("Location"))
			}
		})
	}

	t.Run("setup incomplete carries a notice", func(t *testing.T) {
		req := withSession(httptest.NewRequest(http.MethodGet, "/admin", nil), mint(t, jwtlib.MapClaims{"role": "admin", "configured": false}))
		rec := serve(s, req)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		location, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "/setup", location.Path)
		require.NotEmpty(t, location.Query().Get("notice"))
	})

	t.Run("unconfigured cashier reaches setup", func(t *testing.T) {
		access := mint(t, jwtlib.MapClaims{"role": "cashier", "configured": false})
		rec := serve(s, withSession(httptest.NewRequest(http.MethodGet, "/cashier", nil), access))
		require.Equal(t, http.StatusSeeOther, rec.Code)

		location, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "/setup", location.Path)

		rec = serve(s, withSession(httptest.NewRequest(http.MethodGet, location.String(), nil), access))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "Finish setting up your store")
	})

	t.Run("trial warning", func(t *testing.T) {
		req := withSession(httptest.NewRequest(http.MethodGet, "/cashier", nil), mint(t, jwtlib.MapClaims{"role": "cashier", "trial_days_remaining": 3}))
		rec := serve(s, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "3", rec.Header().Get("X-Trial-Days-Remaining"))
		require.Contains(t, rec.Body.String(), "Your trial ends in 3 days")
	})

	t.Run("htmx redirect", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cashier", nil)
		req.Header.Set("HX-Request", "true")
		rec := serve(s, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, "/login", rec.Header().Get("HX-Redirect"))
	})

	require.Zero(t, api.validations.Load(), "page navigation decides from claims only")
}

func TestSessionSummary(t *testing.T) {
	api := newStorefrontAPI(t)
	s := newTestServer(t, api)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"no_token"}`, rec.Body.String())

	access := mint(t, jwtlib.MapClaims{"role": "cashier", "name": "Ada", "location": "Main St", "trial_days_remaining": 9})
	rec = serve(s, withSession(httptest.NewRequest(http.MethodGet, "/api/session", nil), access))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"role":"cashier","display_name":"Ada","location_name":"Main St","trial_days_remaining":9}`, rec.Body.String())
}

func TestAPIProxy(t *testing.T) {
	old := "old-access"

	t.Run("renews and forwards with bearer token", func(t *testing.T) {
		api := newStorefrontAPI(t)
		api.renewed = "new-access"
		s := newTestServer(t, api)

		rec := serve(s, withSession(httptest.NewRequest(http.MethodGet, "/api/products", nil), old))
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `[{"sku":"A1"}]`, rec.Body.String())
		require.Equal(t, "Bearer new-access", api.lastAuth.Load())
		require.Empty(t, api.lastCookie.Load())
		require.Equal(t, "new-access", cookiesByName(rec)["access_token"].Value)
	})

	t.Run("rejected session signs out", func(t *testing.T) {
		api := newStorefrontAPI(t)
		api.valid = false
		s := newTestServer(t, api)

		rec := serve(s, withSession(httptest.NewRequest(http.MethodGet, "/api/products", nil), old))
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/", rec.Header().Get("Location"))
		for _, name := range []string{"access_token", "refresh_token", "session_horizon"} {
			c := cookiesByName(rec)[name]
			require.NotNil(t, c, name)
			require.Negative(t, c.MaxAge, name)
		}
		require.EqualValues(t, 1, api.logouts.Load())
		require.Nil(t, api.lastAuth.Load(), "nothing reaches the business endpoint")
	})

	t.Run("no session over htmx", func(t *testing.T) {
		api := newStorefrontAPI(t)
		s := newTestServer(t, api)

		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		req.Header.Set("HX-Request", "true")
		rec := serve(s, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, "/", rec.Header().Get("HX-Redirect"))
		require.Zero(t, api.validations.Load())
	})

	t.Run("renewal unavailable keeps cookies", func(t *testing.T) {
		api := newStorefrontAPI(t)
		api.validateStatus = http.StatusServiceUnavailable
		s := newTestServer(t, api)

		rec := serve(s, withSession(httptest.NewRequest(http.MethodGet, "/api/products", nil), old))
		require.Equal(t, http.StatusBadGateway, rec.Code)
		require.JSONEq(t, `{"error":"renewal_unavailable"}`, rec.Body.String())
		require.Empty(t, rec.Result().Cookies())
		require.Zero(t, api.logouts.Load())
	})
}

func TestLogout(t *testing.T) {
	api := newStorefrontAPI(t)
	s := newTestServer(t, api)

	rec := serve(s, withSession(httptest.NewRequest(http.MethodPost, "/auth/logout", nil), "some-access"))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/", rec.Header().Get("Location"))
	require.Negative(t, cookiesByName(rec)["access_token"].MaxAge)
	require.EqualValues(t, 1, api.logouts.Load())

	// Signing out twice is harmless.
	rec = serve(s, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.EqualValues(t, 1, api.logouts.Load(), "no token, nothing to notify")
}

func TestLogout_RequiresPost(t *testing.T) {
	api := newStorefrontAPI(t)
	s := newTestServer(t, api)

	rec := serve(s, withSession(httptest.NewRequest(http.MethodGet, "/auth/logout", nil), "some-access"))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Empty(t, rec.Result().Cookies())
	require.Zero(t, api.logouts.Load())
}
