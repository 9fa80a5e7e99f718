package server

// Route path constants
const (
	RouteRoot  = "/"
	RouteLogin = "/login"

	// Auth Routes - Login & Logout
	RouteAuthLogin  = "/auth/login"
	RouteAuthLogout = "/auth/logout"

	// Protected areas
	RouteAdmin   = "/admin"
	RouteCashier = "/cashier"
	RouteSetup   = "/setup"

	// Gate landing pages
	RouteLicenseExpired = "/license-expired"
	RouteUnauthorized   = "/unauthorized"

	// API Routes
	RouteAPISession = "/api/session"
	RouteAPIPrefix  = "/api/"

	RouteMetrics = "/metrics"
)
