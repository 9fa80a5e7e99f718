package server

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	errs "github.com/jrsteele09/storefront-console/internal/errors"
	"github.com/rs/zerolog"
)

// SessionSummaryHandler returns the read-only summary of the signed-in user.
func (s *Server) SessionSummaryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, ok := sessionFrom(r).Summary()
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "no_session")
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

// APIProxyHandler forwards /api/{path...} to the storefront API with the
// request's bearer token attached.
func (s *Server) APIProxyHandler() http.HandlerFunc {
	return s.proxy.ServeHTTP
}

func newAPIProxy(target *url.URL) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL.Path = strings.TrimPrefix(pr.In.URL.Path, strings.TrimSuffix(RouteAPIPrefix, "/"))
			pr.Out.URL.RawPath = ""
			pr.SetURL(target)
			pr.SetXForwarded()
			// Session cookies stay at the edge; the API sees only the bearer token.
			pr.Out.Header.Del("Cookie")
		},
		Transport:    sessionTransport{},
		ErrorHandler: proxyErrorHandler,
	}
}

// sessionTransport sends through the transport of the session bound to the
// outgoing request's context.
type sessionTransport struct{}

func (sessionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return sessionFrom(req).Transport().RoundTrip(req)
}

func proxyErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	logger := zerolog.Ctx(r.Context())

	// A rejected session already ran the logout cascade and redirected.
	if navigatorFrom(r).Navigated() {
		logger.Info().Err(err).Msg("api call ended the session")
		return
	}

	switch {
	case errs.Is(err, errs.ErrRenewalTransport):
		logger.Warn().Err(err).Msg("token renewal unavailable")
		writeJSONError(w, http.StatusBadGateway, "renewal_unavailable")
	case errs.Is(err, context.Canceled):
		logger.Debug().Msg("client went away")
	default:
		logger.Error().Err(err).Msg("api proxy failed")
		writeJSONError(w, http.StatusBadGateway, "upstream_unavailable")
	}
}
