package gate

import "github.com/jrsteele09/storefront-console/session/claims"

// HomeTable maps a role to its home area. It is consulted both after login
// and when a signed-in user opens the landing page.
type HomeTable map[claims.Role]string

// DefaultHomes returns the standard role homes
func DefaultHomes() HomeTable {
	return HomeTable{
		claims.RoleAdmin:   "/admin",
		claims.RoleCashier: "/cashier",
	}
}

// HomesFromConfig builds a table from role name to path pairs.
func HomesFromConfig(routes map[string]string) HomeTable {
	homes := make(HomeTable, len(routes))
	for role, path := range routes {
		homes[claims.Role(role)] = path
	}
	return homes
}

// HomeFor returns the home area for role
func (h HomeTable) HomeFor(role claims.Role) (string, bool) {
	home, ok := h[role]
	return home, ok && home != ""
}

// Guest guards the landing page: a signed-in user is sent to their home
// instead of seeing the login form.
type Guest struct {
	Homes HomeTable
}

// Evaluate allows the landing page unless the request carries a session
// whose role has a home.
func (g Guest) Evaluate(req Request) Decision {
	if !req.HasSession {
		return allow()
	}
	home, ok := g.Homes.HomeFor(req.Claims.Role)
	if !ok {
		return allow()
	}
	return redirect(home, ReasonAuthenticated)
}
