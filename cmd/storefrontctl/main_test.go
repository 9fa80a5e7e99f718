package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/storefront-console/apiclient"
	"github.com/stretchr/testify/require"
)

type fakeStorefront struct {
	access  string
	valid   atomic.Bool
	logouts atomic.Int32
}

func setup(t *testing.T) (*fakeStorefront, string) {
	t.Helper()
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"role":                 "admin",
		"name":                 "Ada",
		"trial_days_remaining": 4,
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	f := &fakeStorefront{access: token}
	f.valid.Store(true)

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+apiclient.PathLogin, func(w http.ResponseWriter, r *http.Request) {
		var body apiclient.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(apiclient.LoginResponse{AccessToken: f.access, RefreshToken: "refresh"})
	})
	mux.HandleFunc("POST "+apiclient.PathValidateTokens, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(apiclient.ValidateResponse{Valid: f.valid.Load()})
	})
	mux.HandleFunc("POST "+apiclient.PathLogout, func(w http.ResponseWriter, r *http.Request) {
		f.logouts.Add(1)
	})
	mux.HandleFunc("GET /products", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+f.access {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `[{"sku":"A1"}]`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	credsFile := filepath.Join(t.TempDir(), "creds", "credentials.json")
	t.Setenv("API_BASE_URL", srv.URL)
	t.Setenv("CREDENTIALS_FILE", credsFile)
	t.Setenv("LOG_LEVEL", "disabled")
	return f, credsFile
}

func invoke(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRememberedSessionAcrossInvocations(t *testing.T) {
	f, credsFile := setup(t)

	code, out, _ := invoke("login", "-u", "ada", "-p", "secret", "-remember")
	require.Equal(t, 0, code)
	require.Equal(t, "signed in as Ada (admin)\n", out)

	info, err := os.Stat(credsFile)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	code, out, _ = invoke("whoami")
	require.Equal(t, 0, code)
	require.Contains(t, out, "role:     admin")
	require.Contains(t, out, "trial:    4 days remaining")

	code, out, _ = invoke("get", "products")
	require.Equal(t, 0, code)
	require.JSONEq(t, `[{"sku":"A1"}]`, out)

	code, _, errOut := invoke("logout")
	require.Equal(t, 0, code)
	require.Contains(t, errOut, "signing out...")
	require.EqualValues(t, 1, f.logouts.Load())

	_, err = os.Stat(credsFile)
	require.True(t, os.IsNotExist(err))

	code, _, errOut = invoke("whoami")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "not signed in")
}

func TestSessionScopedLoginIsNotWritten(t *testing.T) {
	_, credsFile := setup(t)

	code, _, errOut := invoke("login", "-u", "ada", "-p", "secret")
	require.Equal(t, 0, code)
	require.Contains(t, errOut, "-remember")

	_, err := os.Stat(credsFile)
	require.True(t, os.IsNotExist(err))
}

func TestRejectedSessionSignsOut(t *testing.T) {
	f, credsFile := setup(t)

	code, _, _ := invoke("login", "-u", "ada", "-p", "secret", "-remember")
	require.Equal(t, 0, code)

	f.valid.Store(false)
	code, _, errOut := invoke("get", "/products")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "session expired")

	_, err := os.Stat(credsFile)
	require.True(t, os.IsNotExist(err))
}

func TestLoginErrors(t *testing.T) {
	setup(t)

	code, _, errOut := invoke("login", "-u", "ada", "-p", "wrong")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "invalid username or password")

	code, _, _ = invoke("login", "-u", "ada")
	require.Equal(t, 1, code)

	code, _, _ = invoke("frobnicate")
	require.Equal(t, 2, code)
}
