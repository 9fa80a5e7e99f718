package server

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/jrsteele09/storefront-console/gate"
	"github.com/jrsteele09/storefront-console/internal/config"
	"github.com/jrsteele09/storefront-console/session"
	"github.com/jrsteele09/storefront-console/session/claims"
	"github.com/jrsteele09/storefront-console/session/credentials"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env        string // Environment (e.g., "DEV", "PROD")
	mux        *http.ServeMux
	routes     []string
	config     config.Config
	sessions   *session.Manager
	cookieOpts credentials.CookieOptions
	homes      gate.HomeTable
	pages      *pages
	proxy      *httputil.ReverseProxy
	loginLimit *ipRateLimiter
	clientIPs  clientIPResolver
}

// New builds the console server. Every request gets its own session over its
// cookies; all of them share sessions for renewal and logout.
func New(cfg config.Config, sessions *session.Manager) (*Server, error) {
	apiURL, err := url.Parse(cfg.GetAPIBaseURL())
	if err != nil {
		return nil, fmt.Errorf("[Server New] invalid API base URL: %w", err)
	}

	pg, err := parsePages()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse templates: %w", err)
	}

	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		sessions: sessions,
		cookieOpts: credentials.CookieOptions{
			Names: credentials.CookieNames{
				Access:  cfg.GetAccessCookieName(),
				Refresh: cfg.GetRefreshCookieName(),
				Horizon: cfg.GetHorizonCookieName(),
			},
			Secure:    cfg.GetSecureCookies(),
			Retention: credentials.Retention{RememberFor: cfg.GetRememberMeRetention()},
		},
		homes: gate.HomesFromConfig(cfg.GetHomeRoutes()),
		pages: pg,
		proxy: newAPIProxy(apiURL),
	}
	s.clientIPs, err = newClientIPResolver(cfg.GetTrustedProxies())
	if err != nil {
		return nil, fmt.Errorf("[Server New] %w", err)
	}
	if cfg.GetEnableRateLimiting() {
		every, burst := cfg.GetLoginRateLimit()
		s.loginLimit = newIPRateLimiter(every, burst)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// guard builds a gate guard for roles using the configured warning threshold.
func (s *Server) guard(roles ...claims.Role) gate.Guard {
	g := gate.NewGuard(roles...)
	g.TrialWarningDays = s.config.GetTrialWarningDays()
	return g
}

// homeFor is where a signed-in user of role lands.
func (s *Server) homeFor(role claims.Role) string {
	if home, ok := s.homes.HomeFor(role); ok {
		return home
	}
	return RouteUnauthorized
}

const (
	green      = "\033[32m"
	blue       = "\033[34m"
	cyan       = "\033[36m"
	yellow     = "\033[33m"
	magenta    = "\033[35m"
	gray       = "\033[90m"
	resetColor = "\033[0m"
)

var methodColors = map[string]string{
	"GET":    green,
	"POST":   blue,
	"PUT":    cyan,
	"DELETE": yellow,
	"PATCH":  magenta,
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	color, ok := methodColors[method]
	if !ok {
		color = gray
	}
	log.Debug().Msgf("[%s %-7s%s] %s", color, method, resetColor, path)
}
