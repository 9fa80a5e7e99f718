package server

import (
	"github.com/jrsteele09/storefront-console/gate"
	"github.com/jrsteele09/storefront-console/internal/metrics"
	"github.com/jrsteele09/storefront-console/session/claims"
)

func (s *Server) initRoutes() {
	guest := gate.Guest{Homes: s.homes}
	admin := s.guard(claims.RoleAdmin)
	cashier := s.guard(claims.RoleCashier)
	// Any role may be sent to setup, so any role may finish it.
	setup := s.guard(claims.RoleAdmin, claims.RoleCashier)
	anyRole := s.guard(claims.RoleAdmin, claims.RoleCashier)
	anyRole.DenyUnauthenticated = true

	// LOGIN
	s.RegisterRouteHandler("GET /{$}", ChainMiddleware(s.LoginPageUIHandler(), s.HTMLMiddleWare(s.RequireGate(guest))...))
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageUIHandler(), s.HTMLMiddleWare(s.RequireGate(guest))...))
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleWare(s.RateLimitMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))

	// Protected areas
	s.RegisterRouteHandler("GET "+RouteAdmin, ChainMiddleware(s.AreaHandler("Back office"), s.HTMLMiddleWare(s.RequireGate(admin))...))
	s.RegisterRouteHandler("GET "+RouteAdmin+"/{rest...}", ChainMiddleware(s.AreaHandler("Back office"), s.HTMLMiddleWare(s.RequireGate(admin))...))
	s.RegisterRouteHandler("GET "+RouteCashier, ChainMiddleware(s.AreaHandler("Till"), s.HTMLMiddleWare(s.RequireGate(cashier))...))
	s.RegisterRouteHandler("GET "+RouteCashier+"/{rest...}", ChainMiddleware(s.AreaHandler("Till"), s.HTMLMiddleWare(s.RequireGate(cashier))...))
	s.RegisterRouteHandler("GET "+RouteSetup, ChainMiddleware(s.AreaHandler("Store setup"), s.HTMLMiddleWare(s.RequireGate(setup))...))

	// Gate landing pages
	s.RegisterRouteHandler("GET "+RouteLicenseExpired, ChainMiddleware(s.NoticeHandler(licenseExpiredNotice), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteUnauthorized, ChainMiddleware(s.NoticeHandler(unauthorizedNotice), s.HTMLMiddleWare()...))

	// API routes
	s.RegisterRouteHandler("GET "+RouteAPISession, ChainMiddleware(s.SessionSummaryHandler(), s.APIMiddleware(s.RequireGate(anyRole))...))
	s.RegisterRouteHandler(RouteAPIPrefix+"{path...}", ChainMiddleware(s.APIProxyHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteMetrics, metrics.Handler())
}
